// Package creds manages MDA sign-in credentials stored through the
// key-value facade. Passwords are bcrypt-hashed; plaintext never touches
// storage.
package creds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tenderhub/internal/kvstore"
)

const storageKey = "mdaCredentials"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers cannot distinguish which.
	ErrInvalidCredentials = errors.New("creds: invalid email or password")
	// ErrAlreadyRegistered indicates the email already has credentials.
	ErrAlreadyRegistered = errors.New("creds: email already registered")
	// ErrWeakPassword indicates the password fails the minimum length check.
	ErrWeakPassword = errors.New("creds: password must be at least 8 characters")
	// ErrCorruptData indicates the stored credential list failed to parse.
	ErrCorruptData = errors.New("creds: stored credentials are corrupt")
)

// Credential binds an email to an MDA account.
type Credential struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	MDAID        string    `json:"mdaId"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated projection returned by Verify; it never
// carries the hash.
type Identity struct {
	Email string
	MDAID string
	Role  string
}

// Service stores and verifies credentials.
type Service struct {
	facade *kvstore.Facade
}

func NewService(facade *kvstore.Facade) *Service {
	return &Service{facade: facade}
}

// Register creates credentials for an MDA account.
func (s *Service) Register(ctx context.Context, email, password, mdaID, role string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("creds: email required")
	}

	all, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.Email == email {
			return ErrAlreadyRegistered
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	all = append(all, Credential{
		Email:        email,
		PasswordHash: string(hash),
		MDAID:        mdaID,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return s.saveAll(ctx, all)
}

// Verify checks a password and returns the account identity.
func (s *Service) Verify(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	all, err := s.loadAll(ctx)
	if err != nil {
		return Identity{}, err
	}
	for _, c := range all {
		if c.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{Email: c.Email, MDAID: c.MDAID, Role: c.Role}, nil
	}
	return Identity{}, ErrInvalidCredentials
}

// ChangePassword rotates a password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, email, current, next string) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}
	email = strings.ToLower(strings.TrimSpace(email))

	all, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	for i, c := range all {
		if c.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(current)); err != nil {
			return ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		all[i].PasswordHash = string(hash)
		all[i].UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
		return s.saveAll(ctx, all)
	}
	return ErrInvalidCredentials
}

// Remove deletes credentials for an email. Removing an unknown email is a
// no-op.
func (s *Service) Remove(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	all, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, c := range all {
		if c.Email != email {
			kept = append(kept, c)
		}
	}
	return s.saveAll(ctx, kept)
}

func (s *Service) loadAll(ctx context.Context) ([]Credential, error) {
	raw, err := s.facade.GetItem(ctx, storageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	var all []Credential
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return all, nil
}

func (s *Service) saveAll(ctx context.Context, all []Credential) error {
	if all == nil {
		all = []Credential{}
	}
	payload, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	s.facade.SetItem(ctx, storageKey, string(payload))
	return nil
}
