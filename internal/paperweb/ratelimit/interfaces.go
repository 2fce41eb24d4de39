// Package ratelimit guards the upload front end against request floods. The
// e-paper panel behind it can only absorb one render every few seconds, so
// command and upload endpoints carry much lower limits than reads.
package ratelimit

import (
	"context"
	"time"
)

// LimitKey identifies a specific rate limit
type LimitKey struct {
	Type     string // e.g., "upload", "command"
	RemoteIP string // remote IP of the caller
	Endpoint string // API endpoint for specific limits
}

// Store handles rate limit state persistence
type Store interface {
	// Increment attempts to increment a counter and returns the current count.
	// Returns ErrLimitExceeded if the limit is exceeded.
	Increment(ctx context.Context, key LimitKey, limit Limit) (int, error)

	// Reset clears a rate limit counter
	Reset(ctx context.Context, key LimitKey) error
}

// Service manages rate limiting for the front end
type Service interface {
	// Allow checks if an operation should be allowed
	Allow(ctx context.Context, key LimitKey) error

	// GetLimit returns the configured limit for a key type
	GetLimit(limitType string) Limit

	// Reset clears rate limit counters for a key
	Reset(ctx context.Context, key LimitKey) error

	// RegisterLimit adds or updates a rate limit configuration
	RegisterLimit(limitType string, limit Limit) error

	// RegisterDefaultLimits configures standard rate limits
	RegisterDefaultLimits()
}

// Limit defines the rate limit configuration
type Limit struct {
	// Rate is the number of operations allowed
	Rate int

	// Period is the time window for the rate
	Period time.Duration

	// BurstSize allows a short burst over the rate (optional)
	BurstSize int
}

// Error types for rate limiting
var (
	ErrLimitExceeded = NewError("RATE_LIMITED", "rate limit exceeded")
	ErrStoreError    = NewError("STORE_ERROR", "rate limit store error")
	ErrInvalidLimit  = NewError("INVALID_LIMIT", "invalid rate limit configuration")
	ErrInvalidKey    = NewError("INVALID_KEY", "invalid rate limit key")
)

// Error represents a rate limiting error
type Error struct {
	Code    string
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// NewError creates a new rate limit error
func NewError(code string, message string) Error {
	return Error{
		Code:    code,
		Message: message,
	}
}
