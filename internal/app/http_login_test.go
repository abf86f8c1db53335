package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"vane/api/internal/config"
	"vane/api/internal/github"
)

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestLoginRedirectsToProvider(t *testing.T) {
	server := newTestServer(t, &fakeStore{})

	resp, err := noRedirectClient().Get(server.URL + "/login/github")
	if err != nil {
		t.Fatalf("GET /login/github failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	if location.Query().Get("state") == "" {
		t.Error("expected a state nonce in the authorize URL")
	}
}

func TestLoginUnavailableWithoutProvider(t *testing.T) {
	svc := New(config.Config{}, &fakeStore{}, newFakeSessions(), nil, &fakeSearch{})
	server := httptest.NewServer(NewHTTPServer(svc, "http://localhost:3011").Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/login/github")
	if err != nil {
		t.Fatalf("GET /login/github failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	decodeResponse(t, resp, &body)
	if body.Code != "AUTH_UNAVAILABLE" {
		t.Errorf("expected AUTH_UNAVAILABLE, got %q", body.Code)
	}
}

func TestCallbackReturnsUser(t *testing.T) {
	sessions := newFakeSessions()
	svc := New(config.Config{}, &fakeStore{}, sessions, &fakeIdentity{}, &fakeSearch{})
	server := httptest.NewServer(NewHTTPServer(svc, "http://localhost:3011").Handler())
	t.Cleanup(server.Close)

	_ = sessions.Set(context.Background(), "state:nonce-1", "pending", loginStateTTL)

	resp, err := http.Get(server.URL + "/login/github/callback?code=auth-code&state=nonce-1")
	if err != nil {
		t.Fatalf("GET callback failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		UID      string `json:"uid"`
		GithubID string `json:"github_id"`
	}
	decodeResponse(t, resp, &body)
	if body.UID == "" {
		t.Error("expected a uid in the response")
	}
	if body.GithubID != "123" {
		t.Errorf("expected github_id 123, got %q", body.GithubID)
	}
}

func TestCallbackWithoutCode(t *testing.T) {
	server := newTestServer(t, &fakeStore{})

	resp, err := http.Get(server.URL + "/login/github/callback?state=nonce-1")
	if err != nil {
		t.Fatalf("GET callback failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	decodeResponse(t, resp, &body)
	if body.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %q", body.Code)
	}
}

func TestCallbackProviderFailureMapsToBadGateway(t *testing.T) {
	sessions := newFakeSessions()
	identity := &fakeIdentity{
		userFn: func(context.Context, string) (github.UserInfo, error) {
			return github.UserInfo{}, errors.New("api down")
		},
	}
	svc := New(config.Config{}, &fakeStore{}, sessions, identity, &fakeSearch{})
	server := httptest.NewServer(NewHTTPServer(svc, "http://localhost:3011").Handler())
	t.Cleanup(server.Close)

	_ = sessions.Set(context.Background(), "state:nonce-1", "pending", loginStateTTL)

	resp, err := http.Get(server.URL + "/login/github/callback?code=auth-code&state=nonce-1")
	if err != nil {
		t.Fatalf("GET callback failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	decodeResponse(t, resp, &body)
	if body.Code != "IDENTITY_ERROR" {
		t.Errorf("expected IDENTITY_ERROR, got %q", body.Code)
	}
	if strings.Contains(body.Error, "api down") {
		t.Errorf("expected provider detail kept out of the response, got %q", body.Error)
	}
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	server := newTestServer(t, &fakeStore{})

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready failed: %v", err)
	}
	var body struct {
		OK     bool   `json:"ok"`
		Status string `json:"status"`
	}
	decodeResponse(t, resp, &body)
	if !body.OK || body.Status != "ready" {
		t.Errorf("expected ready status, got %+v", body)
	}
}
