// Package kvstore provides the portal's persistent key-value facade: a
// pluggable backend (Redis, Postgres, or in-process memory) fronted by an
// in-memory mirror, a latched availability flag, and a same-process change
// notification bus.
//
// Every mutation lands in the memory mirror first, so reads never miss even
// if the backend fails mid-session. Writes are whole-value; there is no
// versioning, so two independent processes writing the same key race
// last-write-wins. Same-process access is serialized by the facade mutex.
package kvstore

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
)

var (
	// ErrNotFound indicates the key is absent from both the backend and
	// the memory mirror.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrUnavailable indicates the backend rejected the operation.
	ErrUnavailable = errors.New("kvstore: backend unavailable")
)

// Backend is the durable store the facade fronts.
type Backend interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Change describes a single facade mutation. NewValue is nil for removals.
type Change struct {
	Key      string
	NewValue *string
}

// Listener receives facade change notifications.
type Listener func(Change)

const probeKey = "__kvstore_probe"

// triggerSuffix marks the best-effort mirror key written and immediately
// deleted on every mutation, so external watchers of the backend see a
// change signal without polling every data key.
const triggerSuffix = "__trigger"

// Facade fronts a Backend with a memory mirror and change notifications.
type Facade struct {
	backend Backend

	mu        sync.Mutex
	memory    map[string]string
	available bool

	subMu       sync.Mutex
	subscribers map[int]Listener
	nextSubID   int
}

// New builds a facade over backend and probes it once with a sentinel
// write/read/delete. The probe result latches the availability flag for the
// lifetime of the facade; a later backend failure flips it off permanently.
func New(ctx context.Context, backend Backend) *Facade {
	f := &Facade{
		backend:     backend,
		memory:      make(map[string]string),
		subscribers: make(map[int]Listener),
	}
	f.available = f.probe(ctx)
	if !f.available {
		log.Printf("kvstore: backend unavailable, running memory-only")
	}
	return f
}

func (f *Facade) probe(ctx context.Context) bool {
	if f.backend == nil {
		return false
	}
	if err := f.backend.Set(ctx, probeKey, "ok"); err != nil {
		return false
	}
	value, err := f.backend.Get(ctx, probeKey)
	if err != nil || value != "ok" {
		return false
	}
	_ = f.backend.Delete(ctx, probeKey)
	return true
}

// Available reports whether the backend was reachable at the last attempt.
// A false value means all state lives in the memory mirror only.
func (f *Facade) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

// SetItem stores value under key. The memory mirror is written first; the
// backend write is best-effort and a failure latches the facade to
// memory-only for the rest of the session. Backend errors are logged, never
// returned.
func (f *Facade) SetItem(ctx context.Context, key, value string) {
	f.mu.Lock()
	f.memory[key] = value
	if f.available {
		if err := f.backend.Set(ctx, key, value); err != nil {
			log.Printf("kvstore: set %s failed, degrading to memory-only: %v", key, err)
			f.available = false
		} else {
			f.mirrorTrigger(ctx, key)
		}
	}
	f.mu.Unlock()

	f.notify(Change{Key: key, NewValue: &value})
}

// GetItem returns the value for key. A backend hit is authoritative over the
// memory mirror; absence in both yields ErrNotFound. Backend read errors
// degrade to the mirror and latch the facade to memory-only.
func (f *Facade) GetItem(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.available {
		value, err := f.backend.Get(ctx, key)
		switch {
		case err == nil:
			return value, nil
		case errors.Is(err, ErrNotFound):
			// fall through to the mirror
		default:
			log.Printf("kvstore: get %s failed, degrading to memory-only: %v", key, err)
			f.available = false
		}
	}

	value, ok := f.memory[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// RemoveItem deletes key from the mirror and, best-effort, from the backend.
func (f *Facade) RemoveItem(ctx context.Context, key string) {
	f.mu.Lock()
	delete(f.memory, key)
	if f.available {
		if err := f.backend.Delete(ctx, key); err != nil {
			log.Printf("kvstore: delete %s failed, degrading to memory-only: %v", key, err)
			f.available = false
		} else {
			f.mirrorTrigger(ctx, key)
		}
	}
	f.mu.Unlock()

	f.notify(Change{Key: key, NewValue: nil})
}

// Keys returns the union of backend and mirror keys, sorted.
func (f *Facade) Keys(ctx context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{}, len(f.memory))
	if f.available {
		keys, err := f.backend.Keys(ctx)
		if err != nil {
			log.Printf("kvstore: list keys failed, degrading to memory-only: %v", err)
			f.available = false
		} else {
			for _, k := range keys {
				seen[k] = struct{}{}
			}
		}
	}
	for k := range f.memory {
		seen[k] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a listener for facade changes and returns an
// unsubscribe function. Listeners run synchronously on the mutating
// goroutine, after the write has landed.
func (f *Facade) Subscribe(listener Listener) func() {
	f.subMu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.subscribers[id] = listener
	f.subMu.Unlock()

	return func() {
		f.subMu.Lock()
		delete(f.subscribers, id)
		f.subMu.Unlock()
	}
}

func (f *Facade) notify(change Change) {
	f.subMu.Lock()
	listeners := make([]Listener, 0, len(f.subscribers))
	for _, l := range f.subscribers {
		listeners = append(listeners, l)
	}
	f.subMu.Unlock()

	for _, l := range listeners {
		l(change)
	}
}

// mirrorTrigger writes and deletes a companion trigger key on the backend.
// External watchers keyed on the trigger name see two events per mutation;
// delivery is best-effort and failures are ignored. Caller holds f.mu.
func (f *Facade) mirrorTrigger(ctx context.Context, key string) {
	trigger := key + triggerSuffix
	if err := f.backend.Set(ctx, trigger, "1"); err != nil {
		return
	}
	_ = f.backend.Delete(ctx, trigger)
}
