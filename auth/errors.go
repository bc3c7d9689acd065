package auth

import (
	"fmt"

	"github.com/coreroom/stateres/spec"
)

// AuthorizationFailedError reports why Check rejected an event. It is not an
// error from the resolver's point of view — a failing check causes the
// resolver to silently discard the event (spec.md §7) — but it is the
// concrete error type returned to callers that invoke Check directly.
type AuthorizationFailedError struct {
	EventID spec.EventID
	Reason  string
}

func (e *AuthorizationFailedError) Error() string {
	return fmt.Sprintf("stateres: authorization failed for %s: %s", e.EventID, e.Reason)
}

// StoreError wraps an error returned by the EventGetter capability, so
// callers can distinguish a store failure from an ordinary authorization
// rejection.
type StoreError struct {
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("stateres: event store error: %s", e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
