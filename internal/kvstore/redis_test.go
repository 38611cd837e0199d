package kvstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	backend, err := NewRedisBackend("redis://"+s.Addr(), "portal:")
	if err != nil {
		t.Fatalf("failed to create redis backend: %v", err)
	}
	return backend, s
}

func TestRedisBackendRoundTrip(t *testing.T) {
	backend, s := setupTestRedis(t)
	defer backend.Close()
	defer s.Close()

	ctx := context.Background()
	if err := backend.Set(ctx, "mdas", `[]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := backend.Get(ctx, "mdas")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != `[]` {
		t.Errorf("expected [], got %q", value)
	}

	// The stored key carries the namespace prefix.
	if !s.Exists("portal:mdas") {
		t.Error("expected prefixed key in redis")
	}
}

func TestRedisBackendMissingKey(t *testing.T) {
	backend, s := setupTestRedis(t)
	defer backend.Close()
	defer s.Close()

	_, err := backend.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisBackendDelete(t *testing.T) {
	backend, s := setupTestRedis(t)
	defer backend.Close()
	defer s.Close()

	ctx := context.Background()
	if err := backend.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := backend.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := backend.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisBackendKeysStripPrefix(t *testing.T) {
	backend, s := setupTestRedis(t)
	defer backend.Close()
	defer s.Close()

	ctx := context.Background()
	for _, key := range []string{"audit_logs", "mdas", "mda_tenders"} {
		if err := backend.Set(ctx, key, "x"); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	keys, err := backend.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(keys), keys)
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "portal:") {
			t.Errorf("key %q still carries the prefix", k)
		}
	}
}

func TestFacadeOverRedis(t *testing.T) {
	backend, s := setupTestRedis(t)
	defer backend.Close()
	defer s.Close()

	ctx := context.Background()
	f := New(ctx, backend)
	if !f.Available() {
		t.Fatal("expected facade over miniredis to be available")
	}

	f.SetItem(ctx, "currentUser", `{"email":"x@y.com"}`)
	got, err := f.GetItem(ctx, "currentUser")
	if err != nil || got != `{"email":"x@y.com"}` {
		t.Errorf("round trip over redis failed: %q %v", got, err)
	}

	// Killing the server mid-session must degrade, not error.
	s.Close()
	f.SetItem(ctx, "afterOutage", "v")
	if f.Available() {
		t.Error("expected degradation after redis went away")
	}
	if got, err := f.GetItem(ctx, "afterOutage"); err != nil || got != "v" {
		t.Errorf("memory fallback failed after outage: %q %v", got, err)
	}
}
