// Package common defines shared constants and sentinel errors used across
// the sync core and the dev server. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Transport-level errors. ErrUnavailable covers every "server
	// unreachable" cause: timeout, connection refused, DNS failure.
	ErrUnavailable = errors.New("server unavailable")
	ErrServer      = errors.New("server error")

	// Auth errors. ErrUnauthorized is an explicit credential rejection
	// and is authoritative: it never triggers an offline fallback.
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")

	// Local store errors (fatal only to the single operation).
	ErrLocalStorage = errors.New("local storage error")

	// Informational signals, not failures.
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrDuplicateSkipped = errors.New("duplicate skipped")

	// Offline login preconditions.
	ErrNoInitialAuth = errors.New("initial online authentication required")
	ErrNoOfflineData = errors.New("no cached credentials for offline login")
)
