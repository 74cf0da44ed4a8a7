// Package common defines shared constants and sentinel errors used across
// the server layers of ReadBack. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Request errors: missing or malformed fields, user-correctable.
	ErrValidation = errors.New("validation error")

	// Operator errors: a required external credential is not configured.
	ErrConfiguration = errors.New("configuration error")

	// The speech provider rejected the request or could not be reached.
	ErrSynthesis = errors.New("synthesis error")

	// Plan limits.
	ErrSectionLimit       = errors.New("section limit reached")
	ErrVoiceNotAvailable  = errors.New("voice not available on current plan")
	ErrEmailAlreadyExists = errors.New("email already registered")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
