package stateres

import (
	"fmt"

	"github.com/coreroom/stateres/spec"
)

// StoreInconsistentError reports a referenced event missing from the store,
// or a cycle detected in the power-event ancestor graph — both are hard
// errors the resolver cannot recover from (spec.md §7).
type StoreInconsistentError struct {
	RoomID spec.RoomID
	Reason string
	Cause  error
}

func (e *StoreInconsistentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stateres: store inconsistent for room %s: %s: %s", e.RoomID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("stateres: store inconsistent for room %s: %s", e.RoomID, e.Reason)
}

func (e *StoreInconsistentError) Unwrap() error { return e.Cause }
