package rules

import (
	"fmt"

	"github.com/coreroom/stateres/spec"
)

// UnknownRoomVersionError is returned when RulesForVersion is asked to
// derive a bundle for a room version this package has no behaviour table
// entry for.
type UnknownRoomVersionError struct {
	Version spec.RoomVersion
}

func (e *UnknownRoomVersionError) Error() string {
	return fmt.Sprintf("stateres: unknown room version %q", e.Version)
}
