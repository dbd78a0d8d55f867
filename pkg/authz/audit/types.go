package audit

import (
	"context"
	"fmt"
	"time"
)

// Record is one audited authorization decision.
type Record struct {
	// ID is a unique record identifier (UUID).
	ID string `json:"id"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`

	// Path is the request path component that was evaluated.
	Path string `json:"path"`

	// Method is the HTTP method that was evaluated.
	Method string `json:"method"`

	// Allowed is the decision outcome.
	Allowed bool `json:"allowed"`

	// Reason classifies the outcome (granted, no_grant, unmatched,
	// no_config, no_policies, read_failure).
	Reason string `json:"reason"`

	// PolicyIndex is the index of the terminal policy, -1 when none.
	PolicyIndex int `json:"policy_index"`

	// Role is the granting role, empty unless access was granted.
	Role string `json:"role,omitempty"`
}

// Storage persists audit records.
type Storage interface {
	// Store persists a single record.
	Store(ctx context.Context, rec *Record) error

	// List returns records matching the query, newest first.
	List(ctx context.Context, q Query) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records with a timestamp before cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases storage resources.
	Close() error
}

// Query filters List results. Zero values mean "no constraint".
type Query struct {
	// Path restricts results to an exact request path.
	Path string

	// DeniedOnly restricts results to deny decisions.
	DeniedOnly bool

	// Limit caps the number of returned records (0 = backend default).
	Limit int
}

// StorageError represents a failure in an audit storage backend.
type StorageError struct {
	// Backend names the backend ("sqlite", "memory").
	Backend string

	// Operation is the storage operation that failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s failed during %s: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
