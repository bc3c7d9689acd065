// Package event defines the narrow, read-only event capability (spec.md
// §4.3, component C4) that the resolver is polymorphic over, plus the
// StateKeyTuple/StateMap value types used throughout.
package event

import (
	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/spec"
)

// Event is the read-only view the resolver consumes. Implementations are
// free to back this with a concrete struct, a cached deserialized JSON blob,
// or a lazily-parsed wrapper; the resolver never mutates or type-asserts
// down to a concrete type.
type Event interface {
	EventID() spec.EventID
	EventType() string
	// StateKey reports the event's state_key and whether it is present.
	// Presence, not value, distinguishes state events from message events;
	// the empty string is a legitimate state key.
	StateKey() (key string, ok bool)
	Sender() spec.UserID
	RoomID() spec.RoomID
	OriginServerTS() int64
	// Content returns the event's raw content object, unparsed beyond the
	// canonical JSON value representation.
	Content() *canonicaljson.Object
	AuthEvents() []spec.EventID
	PrevEvents() []spec.EventID
	// Redacts reports the event_id an m.room.redaction targets, if any.
	Redacts() (target spec.EventID, ok bool)
}

// StateKeyTuple identifies a slot in room state: the pair (event type,
// state key). The empty string is a legitimate state key, so callers must
// not rely on the Go zero value to mean "absent".
type StateKeyTuple struct {
	EventType string
	StateKey  string
}

// StateMap maps a state slot to the id of the event currently occupying it.
// Key order carries no meaning.
type StateMap map[StateKeyTuple]spec.EventID

// Clone returns a shallow copy of m, safe to mutate independently of m.
func (m StateMap) Clone() StateMap {
	out := make(StateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsPowerEvent reports whether ev is one of the event types or shapes that
// spec.md §4.5 classifies as a "power event": m.room.power_levels,
// m.room.join_rules, m.room.create, or an m.room.member whose content
// membership is leave/ban and whose state_key differs from its sender (a
// kick or ban, as opposed to a self-leave).
func IsPowerEvent(ev Event) bool {
	switch ev.EventType() {
	case "m.room.power_levels", "m.room.join_rules", "m.room.create":
		return true
	case "m.room.member":
		stateKey, ok := ev.StateKey()
		if !ok || stateKey == string(ev.Sender()) {
			return false
		}
		membership, _ := ev.Content().Get("membership")
		m, _ := membership.AsString()
		return m == "leave" || m == "ban"
	default:
		return false
	}
}
