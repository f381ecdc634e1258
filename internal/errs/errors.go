// Package errs defines the error taxonomy shared across the ingestion and
// retrieval pipeline. Components wrap one of these sentinels with
// fmt.Errorf("...: %w", err) so callers can classify failures with
// errors.Is/errors.As without string matching.
package errs

import "errors"

var (
	// ErrAuthenticationFailed indicates invalid credentials or an invalid ticket.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPermissionDenied indicates the source or lake rejected a request with
	// 401/403. Terminal for the affected document during ingestion.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict indicates a 409 from a create-like operation; callers treat
	// this as success for idempotent folder creation.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransientBackend indicates a 5xx or I/O failure from an external
	// service. The caller may retry the whole batch job; no automatic retry
	// happens within a single task.
	ErrTransientBackend = errors.New("transient backend failure")

	// ErrEmbeddingInputTooLarge indicates the embedding model rejected an
	// input as too large. Recovered locally via split-and-average or
	// aggressive trimming; surfaced only if recovery itself fails.
	ErrEmbeddingInputTooLarge = errors.New("embedding input too large")

	// ErrInvariantViolation indicates a programming error: mismatched vector
	// dimensions after a split, an unexpected schema section type, or
	// similar. Never silently swallowed.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrBootstrapIncomplete indicates the content lake's model did not
	// converge to the desired shape after applying the add-only patch.
	ErrBootstrapIncomplete = errors.New("model bootstrap incomplete")
)

// Classify maps an HTTP status code observed from an external collaborator
// to one of the sentinels above, following the policy in the error handling
// design: 401/403 -> permission denied, 409 -> conflict, 404 -> not found,
// 5xx -> transient backend.
func Classify(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrPermissionDenied
	case status == 409:
		return ErrConflict
	case status == 404:
		return ErrNotFound
	case status >= 500:
		return ErrTransientBackend
	default:
		return nil
	}
}
