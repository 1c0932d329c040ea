package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers branch on.
var (
	// ErrNoCredentials means the owner has no usable cloud credentials.
	// Fatal for the call, never retried.
	ErrNoCredentials = errors.New("no usable credentials for owner")

	// ErrNotFoundOrUnauthorized covers both a missing record and a record
	// owned by someone else. Deliberately indistinguishable so existence
	// never leaks to non-owners.
	ErrNotFoundOrUnauthorized = errors.New("not found or not authorized")

	// ErrResourceNotFound means the external resource no longer exists.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnauthorized means the cloud credentials lack permission.
	ErrUnauthorized = errors.New("insufficient cloud permissions")

	// ErrForceRequired gates irreversible operations behind an explicit flag.
	ErrForceRequired = errors.New("irreversible action requires force")

	// ErrResizeTimeout means the resource did not converge to a stopped
	// state within the bounded wait of a resize sequence.
	ErrResizeTimeout = errors.New("resize wait timed out")
)

// InvalidStateError means the resource is not in a state compatible with
// the requested transition. Reported, not retried.
type InvalidStateError struct {
	ResourceID string
	Current    string
	Wanted     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("resource %s is %s, need %s", e.ResourceID, e.Current, e.Wanted)
}

// ProviderError wraps an opaque upstream failure, preserving the
// provider's error code for diagnostics.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}
