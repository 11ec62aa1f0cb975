// Package common defines the sentinel errors shared across the couplesync
// core. Callers should use errors.Is to match these values; remote adapters
// wrap transport failures onto them with fmt.Errorf("...: %w", ...).
package common

import "errors"

var (
	// ErrNetwork indicates a remote call failed. Transient; the caller may
	// retry or revert an optimistic UI state.
	ErrNetwork = errors.New("remote call failed")

	// ErrNotFound indicates a referenced document or blob is absent,
	// usually meaning local state is stale and should be refreshed.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded indicates a hard cap (comments per entity, photos
	// per entity) was reached. Not retryable.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrValidation indicates malformed input, e.g. an update without an id.
	ErrValidation = errors.New("validation error")

	// ErrResolution indicates a legacy blob reference could not be mapped
	// to a storage key. Per-item; batch callers skip the item and continue.
	ErrResolution = errors.New("reference resolution failed")
)
