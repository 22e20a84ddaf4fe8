package common

import "errors"

// Sentinel errors for the failure taxonomy shared by services and jobs.
// Callers classify with errors.Is and decide between a user-facing reply,
// a rejected no-op, or reliance on redelivery.
var (
	// ErrNotFound: unknown identity, session key or invite link.
	ErrNotFound = errors.New("record not found")

	// ErrConflict: attempt to rebind an already-bound session key or to
	// issue over a live invite. Rejected without state change.
	ErrConflict = errors.New("conflicting state")

	// ErrExternalUnavailable: a platform or store call failed or timed out.
	// The operation aborts without partial mutation; redelivery retries.
	ErrExternalUnavailable = errors.New("external service unavailable")

	// ErrMalformed: an ill-formed identity token inside an event.
	ErrMalformed = errors.New("malformed input")
)
