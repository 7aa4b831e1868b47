package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(&Config{Host: srv.URL, Token: "pat-123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	}))

	var out map[string]string
	if err := client.do(context.Background(), http.MethodGet, "/api/2.0/test", nil, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer pat-123" {
		t.Errorf("Authorization = %q, want Bearer pat-123", gotAuth)
	}
}

func TestClientAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error_code": "RESOURCE_DOES_NOT_EXIST",
			"message":    "warehouse not found",
		})
	}))

	err := client.do(context.Background(), http.MethodGet, "/api/2.0/test", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.ErrorCode != "RESOURCE_DOES_NOT_EXIST" {
		t.Errorf("error code = %q", apiErr.ErrorCode)
	}
	if apiErr.Message != "warehouse not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestClientAPIErrorNonJSON(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))

	err := client.do(context.Background(), http.MethodGet, "/api/2.0/test", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("message = %q, want raw body", apiErr.Message)
	}
}

func TestClientHostValidation(t *testing.T) {
	if _, err := New(&Config{Token: "t"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := New(&Config{Host: "https://x.example.com"}); err == nil {
		t.Error("expected error for missing credentials")
	}
	if _, err := New(&Config{Host: "https://x.example.com", PerRequestAuth: true}); err != nil {
		t.Errorf("per-request auth needs no static credential: %v", err)
	}
}

func TestClientHostTrailingSlash(t *testing.T) {
	client, err := New(&Config{Host: "https://x.example.com/", Token: "t"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Host() != "https://x.example.com" {
		t.Errorf("host = %q, want trailing slash stripped", client.Host())
	}
}

func TestCurrentUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/preview/scim/v2/Me" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "123",
			"userName":    "alice@example.com",
			"displayName": "Alice",
			"active":      true,
			"emails":      []map[string]any{{"value": "alice@example.com", "primary": true}},
		})
	}))

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.UserName != "alice@example.com" || !user.Active {
		t.Errorf("user = %+v", user)
	}
	if user.Email() != "alice@example.com" {
		t.Errorf("email = %q", user.Email())
	}
}

func TestUserEmailFallback(t *testing.T) {
	u := &User{UserName: "svc-principal"}
	if u.Email() != "" {
		t.Errorf("email = %q, want empty for non-address username", u.Email())
	}
	u = &User{UserName: "bob@example.com"}
	if u.Email() != "bob@example.com" {
		t.Errorf("email = %q, want username fallback", u.Email())
	}
}

func TestGetDatabaseInstance(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/database/instances/analytics-db" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":           "analytics-db",
			"read_write_dns": "instance-abc.database.example.com",
			"state":          "AVAILABLE",
		})
	}))

	inst, err := client.GetDatabaseInstance(context.Background(), "analytics-db")
	if err != nil {
		t.Fatalf("GetDatabaseInstance: %v", err)
	}
	if inst.ReadWriteDNS != "instance-abc.database.example.com" {
		t.Errorf("dns = %q", inst.ReadWriteDNS)
	}
}

func TestGenerateDatabaseCredential(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		names, _ := body["instance_names"].([]any)
		if len(names) != 1 || names[0] != "analytics-db" {
			t.Errorf("instance_names = %v", names)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token":           "db-token-xyz",
			"expiration_time": expiry.Format(time.RFC3339),
		})
	}))

	cred, err := client.GenerateDatabaseCredential(context.Background(), "analytics-db")
	if err != nil {
		t.Fatalf("GenerateDatabaseCredential: %v", err)
	}
	if cred.Token != "db-token-xyz" {
		t.Errorf("token = %q", cred.Token)
	}
	if !cred.ExpirationTime.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", cred.ExpirationTime, expiry)
	}
}
