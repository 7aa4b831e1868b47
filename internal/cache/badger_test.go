package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(&BadgerConfig{
		Path:        t.TempDir(),
		MaxMemoryMB: 16,
	})
	if err != nil {
		t.Fatalf("NewBadgerCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBadgerSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}
}

func TestBadgerGetMissing(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBadgerTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want expiry", err)
	}
}

func TestBadgerDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestBadgerMetrics(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	c.Get(ctx, "k")
	c.Get(ctx, "absent")

	m := c.GetMetrics()
	if m.Hits != 1 || m.Misses != 1 || m.Sets != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if rate := m.HitRate(); rate != 50 {
		t.Errorf("hit rate = %.1f, want 50", rate)
	}
}

func TestUserKey(t *testing.T) {
	k1 := UserKey("token-a")
	k2 := UserKey("token-b")

	if k1 == k2 {
		t.Error("distinct tokens must map to distinct keys")
	}
	if k1 != UserKey("token-a") {
		t.Error("key derivation must be deterministic")
	}
	// Raw tokens never appear in keys.
	if len(k1) != len("user:")+16 {
		t.Errorf("key %q has unexpected shape", k1)
	}
}
