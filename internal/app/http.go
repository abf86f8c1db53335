package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxImportBytes caps the uploaded CSV size, matching the original client's
// 10 MB multipart limit.
const maxImportBytes = 10 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/login/github" {
		authURL, err := s.service.BeginLogin(r.Context())
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/login/github/callback" {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		state := strings.TrimSpace(r.URL.Query().Get("state"))
		user, err := s.service.CompleteLogin(r.Context(), code, state)
		if err != nil {
			status, errCode, message := mapError(err)
			writeError(w, status, errCode, message)
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/vanes" {
		vanes, err := s.service.ListVanes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list vanes")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vanes": vanes})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/vanes/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer")
				return
			}
			limit = parsed
		}
		writeJSON(w, http.StatusOK, s.service.Search(q, limit))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/vane" {
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		created, err := s.service.CreateVane(r.Context(), body.Title)
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"_id": created.ID, "title": created.Title})
		return
	}

	if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/vane/") {
		parts := splitPath(r.URL.Path)
		if len(parts) != 2 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
			return
		}
		if err := s.service.DeleteVane(r.Context(), parts[1]); err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/vane/log" {
		var body struct {
			VaneID string `json:"vaneId"`
			Day    string `json:"day"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		updated, err := s.service.LogDay(r.Context(), body.VaneID, body.Day)
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"vaneId":  updated.ID,
			"log":     updated.Log,
			"message": "logged",
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/vane/unlog" {
		var body struct {
			VaneID string `json:"vaneId"`
			Day    string `json:"day"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if err := s.service.UnlogDay(r.Context(), body.VaneID, body.Day); err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"vaneId":  body.VaneID,
			"message": "unlogged",
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/data/import" {
		s.handleImport(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

// handleImport reads the multipart CSV upload and responds in plain text,
// the contract the importing spreadsheet tooling expects.
func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeText(w, http.StatusBadRequest, "CSV is not valid")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeText(w, http.StatusBadRequest, "CSV is not valid")
		return
	}
	defer file.Close()

	count, err := s.service.ImportCSV(r.Context(), file)
	if err != nil {
		status, _, message := mapError(err)
		writeText(w, status, message)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Parsed %d rows", count))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	header.Set("Access-Control-Allow-Credentials", "true")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":  code,
		"error": message,
	})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "not found"
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}
