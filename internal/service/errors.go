package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/donation-identity/internal/repository"
)

// Domain failures. Handlers map each of these to one HTTP status and one
// fixed message; InvalidCredentials and InvalidOrExpiredOTP never say which
// part of the check failed.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrRateLimited         = errors.New("too many attempts, try again later")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already registered")
	ErrOAuthNotConfigured  = errors.New("oauth is not configured")
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrProfileFetchFailed  = errors.New("profile fetch failed")
)

// ValidationError carries a human readable reason for ErrValidation.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError names the field that is already taken: "email",
// "phoneNumber" or "nationalId".
type ConflictError struct{ Field string }

func (e *ConflictError) Error() string { return e.Field + " already registered" }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// ProviderError carries the OAuth provider's raw error text for operators.
type ProviderError struct {
	Stage  error // ErrTokenExchangeFailed or ErrProfileFetchFailed
	Detail string
}

func (e *ProviderError) Error() string { return e.Stage.Error() + ": " + e.Detail }
func (e *ProviderError) Unwrap() error { return e.Stage }

// fromStore turns repository uniqueness violations into ConflictError and
// missing rows into ErrNotFound. Other errors pass through.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrEmailExists):
		return &ConflictError{Field: "email"}
	case errors.Is(err, repository.ErrPhoneExists):
		return &ConflictError{Field: "phoneNumber"}
	case errors.Is(err, repository.ErrNationalIDExists):
		return &ConflictError{Field: "nationalId"}
	case errors.Is(err, repository.ErrConflict):
		return &ConflictError{Field: "record"}
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	}
	return err
}
