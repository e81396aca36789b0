package client

import "errors"

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrStaleKey       = errors.New("server key changed")
	ErrNotFound       = errors.New("message not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrLimitExceeded  = errors.New("size limit exceeded")
)
