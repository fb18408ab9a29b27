package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("too many requests")

	// ErrLimitReached is returned by state stores when a bounded counter is already at its limit.
	ErrLimitReached = errors.New("limit reached")
)

// Error is a classified failure whose Message is safe to show to clients.
// Kind is one of the sentinels above; errors.Is matches against it.
type Error struct {
	Kind    error
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Validation reports malformed input, OTP failures, locks and cooldowns (400).
func Validation(msg string, details ...any) error {
	e := &Error{Kind: ErrBadRequest, Message: msg}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Auth reports bad credentials or a missing/invalid token (401).
func Auth(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }

// Forbidden reports a role mismatch (403).
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

// NotFound reports an absent referenced entity (404).
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// RateLimit reports an exceeded global request ceiling (429).
func RateLimit(msg string) error { return &Error{Kind: ErrRateLimited, Message: msg} }
