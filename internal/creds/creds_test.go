package creds

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tenderhub/internal/kvstore"
)

func newTestService(t *testing.T) (*Service, *kvstore.Facade) {
	t.Helper()
	facade := kvstore.New(context.Background(), kvstore.NewMemoryBackend())
	return NewService(facade), facade
}

func TestRegisterAndVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "Admin@Works.gov", "correct horse", "mda-1", "mda_admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	identity, err := svc.Verify(ctx, "admin@works.gov", "correct horse")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.MDAID != "mda-1" || identity.Role != "mda_admin" {
		t.Errorf("unexpected identity: %+v", identity)
	}
	if identity.Email != "admin@works.gov" {
		t.Errorf("email must be stored lowercased, got %s", identity.Email)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, "admin@works.gov", "correct horse", "mda-1", "mda_admin")

	if _, err := svc.Verify(ctx, "admin@works.gov", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Verify(ctx, "nobody@works.gov", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email must return the same error, got %v", err)
	}
}

func TestRegisterDuplicateAndWeakPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, "admin@works.gov", "correct horse", "mda-1", "mda_admin")

	if err := svc.Register(ctx, "ADMIN@works.gov", "another pass", "mda-2", "mda_admin"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := svc.Register(ctx, "new@works.gov", "short", "mda-1", "mda_user"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, "admin@works.gov", "correct horse", "mda-1", "mda_admin")

	if err := svc.ChangePassword(ctx, "admin@works.gov", "wrong", "brand new pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "admin@works.gov", "correct horse", "brand new pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Verify(ctx, "admin@works.gov", "correct horse"); err == nil {
		t.Error("old password must stop working")
	}
	if _, err := svc.Verify(ctx, "admin@works.gov", "brand new pass"); err != nil {
		t.Errorf("new password must work: %v", err)
	}
}

func TestRemove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, "admin@works.gov", "correct horse", "mda-1", "mda_admin")
	if err := svc.Remove(ctx, "admin@works.gov"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Verify(ctx, "admin@works.gov", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("removed account must not verify, got %v", err)
	}
	// Removing again is a no-op.
	if err := svc.Remove(ctx, "admin@works.gov"); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestPlaintextNeverStored(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, "admin@works.gov", "correct horse", "mda-1", "mda_admin")

	raw, err := facade.GetItem(ctx, "mdaCredentials")
	if err != nil {
		t.Fatalf("read stored credentials: %v", err)
	}
	if strings.Contains(raw, "correct horse") {
		t.Error("plaintext password leaked into storage")
	}
}

func TestCorruptCredentialsSurfaced(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	facade.SetItem(ctx, "mdaCredentials", "{broken")
	if _, err := svc.Verify(ctx, "a@b.c", "whatever"); !errors.Is(err, ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}
