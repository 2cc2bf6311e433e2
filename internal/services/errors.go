// Package services implements the business logic of the curation core:
// phrase catalog, proposal registry and quorum resolution, user ledger,
// badge evaluation, and account linking. This file centralizes the
// service-level error values so they can be consistently returned by service
// methods and checked by callers with errors.Is.
//
// These errors mirror the core's error taxonomy. Translation into
// user-facing messages or HTTP status codes is performed at the handler
// layer; exceptions are never used for control flow inside the core.
package services

import "errors"

var (
	// ErrNotFound indicates the referenced entity is absent. Surfaced to the
	// caller, never logged as an error.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput covers malformed ids, unknown kinds, and vote signs
	// outside {-1, 1}.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotCurator is returned when a voter is not in the current curator
	// set.
	ErrNotCurator = errors.New("voter is not a curator")

	// ErrAlreadyResolved is returned when voting on (or resolving) a
	// proposal whose voting has ended. The operation is a no-op.
	ErrAlreadyResolved = errors.New("proposal already resolved")

	// ErrSameIdentity is returned when an account link would merge an
	// identity with itself.
	ErrSameIdentity = errors.New("source and target are the same identity")

	// ErrLinkExpired is returned when a link token's deadline has passed.
	// The token is deleted as a side effect.
	ErrLinkExpired = errors.New("link request expired")

	// ErrExternalUnavailable indicates a transient notifier or store
	// failure. The caller may retry; the core never retries on its own.
	ErrExternalUnavailable = errors.New("external dependency unavailable")

	// ErrConflict indicates a concurrent mutation detected on re-read after
	// the single internal retry of a read-modify-write.
	ErrConflict = errors.New("conflicting concurrent mutation")
)
