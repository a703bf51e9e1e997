package domain

import "errors"

// Error taxonomy shared by all packages. Callers wrap these with context
// and the HTTP layer maps them with errors.Is.
var (
	// ErrValidation marks bad client input (symbol, amount).
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent symbol, price or holding.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable marks a failed upstream call with no usable fallback.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistence marks a failed durability write.
	ErrPersistence = errors.New("persistence error")
)
