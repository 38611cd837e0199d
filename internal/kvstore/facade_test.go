package kvstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// flakyBackend wraps a MemoryBackend and can be switched to fail all calls.
type flakyBackend struct {
	inner   *MemoryBackend
	failing bool
	setKeys []string
}

func (f *flakyBackend) Set(ctx context.Context, key, value string) error {
	if f.failing {
		return errors.New("backend down")
	}
	f.setKeys = append(f.setKeys, key)
	return f.inner.Set(ctx, key, value)
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, error) {
	if f.failing {
		return "", errors.New("backend down")
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyBackend) Delete(ctx context.Context, key string) error {
	if f.failing {
		return errors.New("backend down")
	}
	return f.inner.Delete(ctx, key)
}

func (f *flakyBackend) Keys(ctx context.Context) ([]string, error) {
	if f.failing {
		return nil, errors.New("backend down")
	}
	return f.inner.Keys(ctx)
}

func (f *flakyBackend) Ping(ctx context.Context) error {
	if f.failing {
		return errors.New("backend down")
	}
	return nil
}

func TestFacadeSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := New(ctx, NewMemoryBackend())

	if !f.Available() {
		t.Fatal("expected facade to be available after probe")
	}

	f.SetItem(ctx, "greeting", "hello")
	got, err := f.GetItem(ctx, "greeting")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestFacadeMissingKey(t *testing.T) {
	ctx := context.Background()
	f := New(ctx, NewMemoryBackend())

	_, err := f.GetItem(ctx, "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFacadeDegradesToMemoryOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{inner: NewMemoryBackend()}
	f := New(ctx, backend)

	f.SetItem(ctx, "before", "1")

	backend.failing = true
	f.SetItem(ctx, "after", "2")

	if f.Available() {
		t.Error("expected availability latch to flip after backend failure")
	}

	// Both values must still be readable from the memory mirror, even with
	// the backend recovered; the latch never resets within a session.
	backend.failing = false
	for _, key := range []string{"before", "after"} {
		if _, err := f.GetItem(ctx, key); err != nil {
			t.Errorf("GetItem(%s) after degradation: %v", key, err)
		}
	}
	if f.Available() {
		t.Error("availability latch must not reset after recovery")
	}
}

func TestFacadeProbeFailureStartsMemoryOnly(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{inner: NewMemoryBackend(), failing: true}
	f := New(ctx, backend)

	if f.Available() {
		t.Fatal("expected memory-only facade when the probe fails")
	}

	f.SetItem(ctx, "k", "v")
	got, err := f.GetItem(ctx, "k")
	if err != nil || got != "v" {
		t.Errorf("memory-only round trip failed: %q %v", got, err)
	}
}

func TestFacadeBackendAuthoritativeOverMirror(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	f := New(ctx, backend)

	f.SetItem(ctx, "k", "stale")
	// Another process updates the backend directly.
	if err := backend.Set(ctx, "k", "fresh"); err != nil {
		t.Fatalf("backend set: %v", err)
	}

	got, err := f.GetItem(ctx, "k")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got != "fresh" {
		t.Errorf("expected backend value to win, got %q", got)
	}
}

func TestFacadeChangeNotifications(t *testing.T) {
	ctx := context.Background()
	f := New(ctx, NewMemoryBackend())

	var changes []Change
	unsubscribe := f.Subscribe(func(c Change) { changes = append(changes, c) })

	f.SetItem(ctx, "a", "1")
	f.RemoveItem(ctx, "a")

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Key != "a" || changes[0].NewValue == nil || *changes[0].NewValue != "1" {
		t.Errorf("unexpected set change: %+v", changes[0])
	}
	if changes[1].NewValue != nil {
		t.Errorf("expected nil NewValue on removal, got %v", *changes[1].NewValue)
	}

	unsubscribe()
	f.SetItem(ctx, "b", "2")
	if len(changes) != 2 {
		t.Error("listener fired after unsubscribe")
	}
}

func TestFacadeTriggerMirror(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{inner: NewMemoryBackend()}
	f := New(ctx, backend)

	f.SetItem(ctx, "watched", "v")

	var sawTrigger bool
	for _, key := range backend.setKeys {
		if strings.HasSuffix(key, triggerSuffix) {
			sawTrigger = true
		}
	}
	if !sawTrigger {
		t.Error("expected a trigger key write alongside the mutation")
	}

	// The trigger key must not linger in the backend.
	if _, err := backend.inner.Get(ctx, "watched"+triggerSuffix); !errors.Is(err, ErrNotFound) {
		t.Errorf("trigger key left behind: %v", err)
	}
}

func TestFacadeKeysUnion(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Set(ctx, "backend-only", "1"); err != nil {
		t.Fatalf("backend set: %v", err)
	}

	f := New(ctx, backend)
	f.SetItem(ctx, "both", "2")

	keys := f.Keys(ctx)
	want := map[string]bool{"backend-only": false, "both": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected key %s in union", k)
		}
	}
}
