// Package common defines shared sentinel errors used across the server
// layers of filekeeper. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrLedgerCorrupt = errors.New("ledger record corrupt")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")

	// Storage-level errors (underlying filesystem or object store failure).
	ErrStorage     = errors.New("storage error")
	ErrInvalidPath = errors.New("invalid path")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
