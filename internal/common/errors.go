// Package common defines shared constants and sentinel errors used across
// client and server layers of GophChat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrorValidation    = errors.New("validation error")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
