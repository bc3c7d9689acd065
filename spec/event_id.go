package spec

// EventID is an opaque, validated event identifier. Its wire grammar
// depends on the room version: "$opaque:server" for versions 1-2, or a
// bare "$base64hash" with no server suffix for version 3+ (the id is
// derived from the reference hash of the redacted event).
type EventID string

// NewEventID parses and validates raw against the identifier grammar
// implied by version.
func NewEventID(raw string, version RoomVersion) (EventID, error) {
	format, err := version.EventIDFormat()
	if err != nil {
		return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: err.Error()}
	}
	if len(raw) == 0 || raw[0] != '$' {
		return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: "missing '$' sigil"}
	}
	if len(raw) > maxIDLength {
		return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: "exceeds 255 bytes"}
	}
	switch format {
	case EventIDFormatOpaque:
		local, server, err := splitSigilID('$', raw)
		if err != nil {
			return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: err.Error()}
		}
		if local == "" {
			return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: "empty opaque part"}
		}
		if _, err := ParseServerName(string(server)); err != nil {
			return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: "invalid server name"}
		}
	case EventIDFormatURLSafeBase64Hash:
		if len(raw) < 2 {
			return "", InvalidIdentifierError{Kind: "event", Value: raw, Cause: "empty hash part"}
		}
	}
	return EventID(raw), nil
}

func (e EventID) String() string { return string(e) }
