package authz

import "fmt"

// StoreReadError represents a failed initial read of the authorization
// configuration. Decisions blocked on that read are denied fail-closed and
// the failure is logged distinctly from policy denies.
type StoreReadError struct {
	// Cause is the underlying store error.
	Cause error
}

// Error implements the error interface.
func (e *StoreReadError) Error() string {
	return fmt.Sprintf("authorization store read failed: %v", e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *StoreReadError) Unwrap() error {
	return e.Cause
}

// SubscribeError represents a failure to register the change subscription
// at activation time.
type SubscribeError struct {
	// Cause is the underlying store error.
	Cause error
}

// Error implements the error interface.
func (e *SubscribeError) Error() string {
	return fmt.Sprintf("authorization change subscription failed: %v", e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *SubscribeError) Unwrap() error {
	return e.Cause
}
