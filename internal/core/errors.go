package core

import "errors"

// Sentinel errors for lookup and input failures. Business-rule outcomes
// (already processed, insufficient quantity) are not errors; they come back
// as structured results so callers can render them.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrLockTimeout wraps a failed row-lock acquisition. The whole operation
	// rolled back and is safe to retry.
	ErrLockTimeout = errors.New("lock acquisition timed out")
)
