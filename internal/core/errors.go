package core

import "fmt"

// TransportError is a connection-level failure (dial, reset, DNS).
// Retryable at the caller's discretion.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that a call's explicit deadline expired before the
// backend answered. Kept distinct from TransportError so callers can tell
// a hung relay acquisition from a refused connection.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout: %s: %v", e.Op, e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response. Retryable only for idempotent calls.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Body)
}

// ConflictError reports an etag/version mismatch on a concurrent update.
// The caller must re-fetch the resource and retry with fresh state.
type ConflictError struct {
	Status int
	Body   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: status %d: %s", e.Status, e.Body)
}

// EncodingError means an input violated a byte-length or format
// precondition of an encoder. Not retryable, caller bug.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string { return "encoding: " + e.Reason }

// FramingError means a received custom-message envelope is malformed.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return "framing: " + e.Reason }
