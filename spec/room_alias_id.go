package spec

// RoomAliasID is an opaque, validated "#alias:server" identifier.
type RoomAliasID string

// NewRoomAliasID parses and validates a full "#alias:server" string.
func NewRoomAliasID(raw string) (RoomAliasID, error) {
	local, server, err := splitSigilID('#', raw)
	if err != nil {
		return "", InvalidIdentifierError{Kind: "room alias", Value: raw, Cause: err.Error()}
	}
	if len(raw) > maxIDLength {
		return "", InvalidIdentifierError{Kind: "room alias", Value: raw, Cause: "exceeds 255 bytes"}
	}
	if local == "" {
		return "", InvalidIdentifierError{Kind: "room alias", Value: raw, Cause: "empty localpart"}
	}
	if _, err := ParseServerName(string(server)); err != nil {
		return "", InvalidIdentifierError{Kind: "room alias", Value: raw, Cause: "invalid server name"}
	}
	return RoomAliasID(raw), nil
}

// Localpart returns the portion between the sigil and the server name.
func (a RoomAliasID) Localpart() string {
	local, _, _ := splitSigilID('#', string(a))
	return local
}

// ServerName returns the domain part of the alias.
func (a RoomAliasID) ServerName() ServerName {
	_, server, _ := splitSigilID('#', string(a))
	return server
}

func (a RoomAliasID) String() string { return string(a) }
