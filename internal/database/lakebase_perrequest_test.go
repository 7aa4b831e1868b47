package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lakegate/internal/platform"
)

// forwardedSource mirrors the per-request credential source: the token is
// whatever the request context carries.
type forwardedSource struct{}

func (forwardedSource) DatabaseCredential(ctx context.Context) (Credential, error) {
	token := platform.UserTokenFromContext(ctx)
	if token == "" {
		return Credential{}, errors.New("no forwarded token")
	}
	return Credential{Token: token}, nil
}

func TestLakebasePerRequestDedicatedConn(t *testing.T) {
	var connects int64
	var lastDSN atomic.Value
	var conns []*fakeConn

	b, err := NewLakebaseBackend(forwardedSource{}, LakebaseConfig{
		Host:           "db.example.com",
		User:           "alice@example.com",
		PerRequestAuth: true,
	})
	if err != nil {
		t.Fatalf("NewLakebaseBackend: %v", err)
	}
	b.connect = func(ctx context.Context, dsn string) (pgConn, error) {
		atomic.AddInt64(&connects, 1)
		lastDSN.Store(dsn)
		c := &fakeConn{rows: usersRows()}
		conns = append(conns, c)
		return c, nil
	}

	ctx := platform.WithUserToken(context.Background(), "user-token-1")
	if _, err := b.Fetch(ctx, "SELECT 1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := b.Fetch(ctx, "SELECT 1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Each fetch gets its own connection, closed when the fetch ends.
	if connects != 2 {
		t.Errorf("connects = %d, want one per fetch", connects)
	}
	for i, c := range conns {
		if !c.closed {
			t.Errorf("conn %d left open", i)
		}
	}
	if dsn, _ := lastDSN.Load().(string); !strings.Contains(dsn, "user-token-1") {
		t.Errorf("dsn %q does not carry the forwarded token", dsn)
	}
}

func TestLakebasePerRequestMissingToken(t *testing.T) {
	b, err := NewLakebaseBackend(forwardedSource{}, LakebaseConfig{
		Host:           "db.example.com",
		User:           "alice@example.com",
		PerRequestAuth: true,
	})
	if err != nil {
		t.Fatalf("NewLakebaseBackend: %v", err)
	}
	b.connect = func(ctx context.Context, dsn string) (pgConn, error) {
		t.Fatal("connect should not be reached without a token")
		return nil, nil
	}

	_, err = b.Fetch(context.Background(), "SELECT 1")
	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("error type = %T, want *AuthError", err)
	}
}
