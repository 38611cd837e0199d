package portal

import (
	"errors"
	"fmt"

	"tenderhub/internal/audit"
	"tenderhub/internal/auth"
	"tenderhub/internal/creds"
	"tenderhub/internal/inbox"
	"tenderhub/internal/kvstore"
	"tenderhub/internal/mda"
)

// DomainError is the API-facing error envelope. Status follows HTTP
// conventions so transport layers can pass it through unchanged.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Describe maps internal sentinel errors onto the envelope. Unrecognized
// errors become opaque internal errors so storage details never leak to
// callers.
func Describe(err error) *DomainError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mda.ErrNotFound):
		return domainError(404, "not_found", "record not found", nil)
	case errors.Is(err, inbox.ErrNotFound):
		return domainError(404, "message_not_found", "message not found", nil)
	case errors.Is(err, kvstore.ErrNotFound):
		return domainError(404, "key_not_found", "key not found", nil)
	case errors.Is(err, creds.ErrInvalidCredentials):
		return domainError(401, "invalid_credentials", "invalid email or password", nil)
	case errors.Is(err, auth.ErrExpiredToken):
		return domainError(401, "session_expired", "session expired", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		return domainError(401, "invalid_session", "invalid session", nil)
	case errors.Is(err, creds.ErrAlreadyRegistered):
		return domainError(409, "already_registered", "email already registered", nil)
	case errors.Is(err, creds.ErrWeakPassword):
		return domainError(400, "weak_password", "password must be at least 8 characters", nil)
	case errors.Is(err, inbox.ErrNoRecipient):
		return domainError(400, "no_recipient", "no recipient resolvable", nil)
	case errors.Is(err, mda.ErrCorruptData),
		errors.Is(err, audit.ErrCorruptData),
		errors.Is(err, inbox.ErrCorruptData),
		errors.Is(err, creds.ErrCorruptData):
		return domainError(500, "corrupt_data", "stored data is corrupt", nil)
	case errors.Is(err, kvstore.ErrUnavailable):
		return domainError(503, "storage_unavailable", "persistent storage unavailable", nil)
	default:
		return domainError(500, "internal", "internal error", nil)
	}
}
