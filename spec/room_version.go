package spec

// RoomVersion identifies the version of a room. It determines event format,
// identifier grammar, redaction keep-lists and authorization rules. Room
// versions are opaque strings so that future versions (including
// organization-specific experimental ones) can be expressed without a code
// change here.
type RoomVersion string

// Room version constants currently understood by this package. New official
// room versions only need an entry in roomVersionMeta; unknown versions are
// still constructible (IsKnown returns false for those).
const (
	RoomVersionV1  RoomVersion = "1"
	RoomVersionV2  RoomVersion = "2"
	RoomVersionV3  RoomVersion = "3"
	RoomVersionV4  RoomVersion = "4"
	RoomVersionV5  RoomVersion = "5"
	RoomVersionV6  RoomVersion = "6"
	RoomVersionV7  RoomVersion = "7"
	RoomVersionV8  RoomVersion = "8"
	RoomVersionV9  RoomVersion = "9"
	RoomVersionV10 RoomVersion = "10"
	RoomVersionV11 RoomVersion = "11"
	RoomVersionV12 RoomVersion = "12"
)

// EventIDFormat controls how NewEventID interprets the string after the
// '$' sigil.
type EventIDFormat int

const (
	// EventIDFormatOpaque is "$opaque:server" (room versions 1-2).
	EventIDFormatOpaque EventIDFormat = iota + 1
	// EventIDFormatURLSafeBase64Hash is "$base64hash", no server suffix
	// (room versions 3+).
	EventIDFormatURLSafeBase64Hash
)

// RoomIDFormat controls how NewRoomID interprets the string after the
// '!' sigil.
type RoomIDFormat int

const (
	// RoomIDFormatOpaque is "!opaque:server" (room versions 1-11).
	RoomIDFormatOpaque RoomIDFormat = iota + 1
	// RoomIDFormatHash is "!hash" with no server suffix (room versions 12+).
	RoomIDFormatHash
)

type roomVersionMetadata struct {
	known         bool
	eventIDFormat EventIDFormat
	roomIDFormat  RoomIDFormat
}

var roomVersionMeta = map[RoomVersion]roomVersionMetadata{
	RoomVersionV1:  {known: true, eventIDFormat: EventIDFormatOpaque, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV2:  {known: true, eventIDFormat: EventIDFormatOpaque, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV3:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV4:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV5:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV6:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV7:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV8:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV9:  {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV10: {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV11: {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatOpaque},
	RoomVersionV12: {known: true, eventIDFormat: EventIDFormatURLSafeBase64Hash, roomIDFormat: RoomIDFormatHash},
}

// IsKnown reports whether v is one of the room versions described above. An
// unknown room version can still be parsed (room version grammar allows for
// future expansion) but callers needing format-dependent behaviour should
// reject it.
func (v RoomVersion) IsKnown() bool {
	_, ok := roomVersionMeta[v]
	return ok
}

// EventIDFormat returns the event ID format used by this room version.
func (v RoomVersion) EventIDFormat() (EventIDFormat, error) {
	meta, ok := roomVersionMeta[v]
	if !ok {
		return 0, InvalidIdentifierError{Kind: "room version", Value: string(v), Cause: "unknown room version"}
	}
	return meta.eventIDFormat, nil
}

// RoomIDFormat returns the room ID format used by this room version.
func (v RoomVersion) RoomIDFormat() (RoomIDFormat, error) {
	meta, ok := roomVersionMeta[v]
	if !ok {
		return 0, InvalidIdentifierError{Kind: "room version", Value: string(v), Cause: "unknown room version"}
	}
	return meta.roomIDFormat, nil
}

// RequiresEventID reports whether the wire PDU for this room version must
// carry an explicit "event_id" field (true for v1/v2, false — the id is
// derived from the content hash — for v3+).
func (v RoomVersion) RequiresEventID() bool {
	format, err := v.EventIDFormat()
	return err == nil && format == EventIDFormatOpaque
}

// String implements fmt.Stringer.
func (v RoomVersion) String() string { return string(v) }
