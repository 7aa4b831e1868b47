package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lakegate/internal/database"
	"github.com/lakegate/internal/platform"
)

func TestWriteBackendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"query error", &database.QueryError{StatementID: "s1", Message: "bad sql"}, http.StatusBadRequest, "QUERY_ERROR"},
		{"timeout", &database.TimeoutError{StatementID: "s1", Timeout: "10m"}, http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{"connection", &database.ConnectionError{Err: errors.New("refused")}, http.StatusBadGateway, "CONNECTION_ERROR"},
		{"auth", &database.AuthError{Err: errors.New("rejected")}, http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
		{"escape", &database.EscapeError{Name: "o`rders", Reason: "contains backtick"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteBackendError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestWriteBackendErrorMessageVerbatim(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBackendError(rec, &database.QueryError{Message: "TABLE_OR_VIEW_NOT_FOUND: missing"})

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "TABLE_OR_VIEW_NOT_FOUND: missing" {
		t.Errorf("message = %v, want remote message verbatim", body["message"])
	}
}

func TestHealthHandlerFallback(t *testing.T) {
	s := New(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	s.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestUserTokenMiddleware(t *testing.T) {
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = platform.UserTokenFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(ForwardedTokenHeader, "user-tok-1")
	UserTokenMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	if gotToken != "user-tok-1" {
		t.Errorf("token = %q, want user-tok-1", gotToken)
	}

	gotToken = "sentinel"
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	UserTokenMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)
	if gotToken != "" {
		t.Errorf("token without header = %q, want empty", gotToken)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("wildcard by default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		CORSMiddleware(nil)(next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("allow-origin = %q, want *", got)
		}
	})

	t.Run("allowed origin echoed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://app.example.com")
		CORSMiddleware([]string{"https://app.example.com"})(next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("allow-origin = %q", got)
		}
	})

	t.Run("other origin not echoed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		CORSMiddleware([]string{"https://app.example.com"})(next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("allow-origin = %q, want unset", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
		CORSMiddleware(nil)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("preflight status = %d, want 200", rec.Code)
		}
	})
}

func TestQueryHandlerValidation(t *testing.T) {
	s := New(nil)

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		s.QueryHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing sql", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"backend":"warehouse"}`))
		rec := httptest.NewRecorder()
		s.QueryHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
