// Package common defines sentinel errors shared by the client and server
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write rejected by the last-writer-wins rule.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable is returned when no remote store is configured.
	ErrStoreUnavailable = errors.New("sync store not configured")
)
