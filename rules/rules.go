// Package rules derives the single, opaque room-version rule bundle ("the
// AuthorizationRules struct" of spec.md §6) consumed by every rule-dependent
// function across pdu, powerlevels, auth and stateres. Room version fan-out
// lives here, once, instead of being duplicated per call site (spec.md §9
// design notes).
package rules

import "github.com/coreroom/stateres/spec"

// EventFormat distinguishes the two PDU shapes described in spec.md §3: v1's
// randomly-assigned event id carried as an explicit field, versus v3+'s
// event id derived from the event's own content hash.
type EventFormat int

const (
	// EventFormatV1 carries an explicit "event_id" field.
	EventFormatV1 EventFormat = iota + 1
	// EventFormatV3 derives the event id from a content hash; no
	// "event_id" field is present on the wire.
	EventFormatV3
)

// Rules bundles every room-version-derived behavioural flag needed by the
// core. It is constructed once per room version via RulesForVersion and
// threaded through format checking, redaction, power-level parsing, and
// authorization.
type Rules struct {
	RoomVersion spec.RoomVersion

	// EventFormat selects the PDU shape (spec.md §6).
	EventFormat EventFormat

	// RequireEventID is true for v1/v2 (event_id is a required field) and
	// false for v3+ (event_id is forbidden; it is derived).
	RequireEventID bool

	// IntegerPowerLevels is true for v10+: power-levels numeric fields
	// must be strict JSON integers rather than also accepting
	// stringified integers.
	IntegerPowerLevels bool

	// ExplicitlyPrivilegeRoomCreators is true for room versions that give
	// the room's creator(s) an infinite power level regardless of what
	// any m.room.power_levels event says.
	ExplicitlyPrivilegeRoomCreators bool

	// RedactContentKeepsCreatorField is true for room versions where
	// redacting an m.room.create event keeps only the legacy "creator"
	// content key. It is false for v11+, where redaction keeps the
	// entire create-event content instead.
	RedactContentKeepsCreatorField bool

	// RestrictedJoinRule is true for v8+: the "restricted" join rule
	// value, and a "join_authorised_via_users_server" member content
	// key, are recognised.
	RestrictedJoinRule bool

	// KnockJoinRule is true for v7+: the "knock" join rule is
	// recognised.
	KnockJoinRule bool

	// KnockRestrictedJoinRule is true for v10+: the combined
	// "knock_restricted" join rule is recognised.
	KnockRestrictedJoinRule bool
}

// RulesForVersion derives the rule bundle for a known room version.
func RulesForVersion(version spec.RoomVersion) (*Rules, error) {
	if !version.IsKnown() {
		return nil, &UnknownRoomVersionError{Version: version}
	}

	atLeast := func(v spec.RoomVersion) bool { return versionOrder[version] >= versionOrder[v] }

	r := &Rules{
		RoomVersion:                     version,
		RequireEventID:                  version.RequiresEventID(),
		IntegerPowerLevels:              atLeast(spec.RoomVersionV10),
		ExplicitlyPrivilegeRoomCreators: atLeast(spec.RoomVersionV11),
		RedactContentKeepsCreatorField:  !atLeast(spec.RoomVersionV11),
		RestrictedJoinRule:              atLeast(spec.RoomVersionV8),
		KnockJoinRule:                   atLeast(spec.RoomVersionV7),
		KnockRestrictedJoinRule:         atLeast(spec.RoomVersionV10),
	}
	if version.RequiresEventID() {
		r.EventFormat = EventFormatV1
	} else {
		r.EventFormat = EventFormatV3
	}
	return r, nil
}

var versionOrder = map[spec.RoomVersion]int{
	spec.RoomVersionV1:  1,
	spec.RoomVersionV2:  2,
	spec.RoomVersionV3:  3,
	spec.RoomVersionV4:  4,
	spec.RoomVersionV5:  5,
	spec.RoomVersionV6:  6,
	spec.RoomVersionV7:  7,
	spec.RoomVersionV8:  8,
	spec.RoomVersionV9:  9,
	spec.RoomVersionV10: 10,
	spec.RoomVersionV11: 11,
	spec.RoomVersionV12: 12,
}
