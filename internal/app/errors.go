package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func notFoundError() *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "not found")
}

func trackingError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "TRACKING_ERROR", message)
}

func importError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "IMPORT_ERROR", message)
}

// identityError maps upstream identity-provider failures to 502: the client
// did nothing wrong, the provider gave us no usable identity.
func identityError(message string) *DomainError {
	return domainError(http.StatusBadGateway, "IDENTITY_ERROR", message)
}
