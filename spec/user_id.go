package spec

import (
	"strings"
)

// UserID is an opaque, validated "@localpart:server" identifier.
//
// https://matrix.org/docs/spec/appendices.html#user-identifiers
type UserID string

const maxIDLength = 255

// NewUserID parses and validates a full "@localpart:server" string.
//
// strict selects the grammar to validate the localpart against: the modern
// grammar (strict=true) only permits the lowercase character set
// "a-z0-9._=/-"; the historical grammar (strict=false) permits any
// printable ASCII byte (0x21-0x7E) other than ':'. rules.Rules has no
// strict-validation field; callers parsing user ids already in a room
// should pass strict=false so that historical ids remain parseable;
// callers minting brand new ids should always pass strict=true.
func NewUserID(raw string, strict bool) (UserID, error) {
	local, server, err := splitSigilID('@', raw)
	if err != nil {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: err.Error()}
	}
	if len(raw) > maxIDLength {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: "exceeds 255 bytes"}
	}
	if local == "" {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: "empty localpart"}
	}
	if _, err := ParseServerName(string(server)); err != nil {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: "invalid server name"}
	}
	if strict && !isStrictLocalpart(local) {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: "localpart fails strict grammar"}
	}
	if !isHistoricalLocalpart(local) {
		return "", InvalidIdentifierError{Kind: "user", Value: raw, Cause: "localpart contains forbidden bytes"}
	}
	return UserID(raw), nil
}

// NewUserIDFromParts builds a UserID from a localpart and server name,
// always validated against the strict modern grammar since this path is
// used to mint new ids.
func NewUserIDFromParts(localpart string, server ServerName) (UserID, error) {
	return NewUserID("@"+localpart+":"+string(server), true)
}

// Localpart returns the portion between the sigil and the first unescaped
// ':'.
func (u UserID) Localpart() string {
	local, _, _ := splitSigilID('@', string(u))
	return local
}

// ServerName returns the domain part of the user id.
func (u UserID) ServerName() ServerName {
	_, server, _ := splitSigilID('@', string(u))
	return server
}

// Historical reports whether this user id's localpart would be rejected by
// the strict modern grammar but was legal under the original, looser
// grammar. It is a queryable property, not an error: historical ids already
// present in a room remain valid room members.
func (u UserID) Historical() bool {
	local := u.Localpart()
	return !isStrictLocalpart(local) && isHistoricalLocalpart(local)
}

func (u UserID) String() string { return string(u) }

// isStrictLocalpart implements the modern grammar:
// "a-z0-9._=/-" and nothing else, per the user id grammar tightened in
// later room versions.
func isStrictLocalpart(local string) bool {
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune("._=/-", r):
		default:
			return false
		}
	}
	return true
}

// isHistoricalLocalpart implements the original, looser grammar: any
// printable ASCII character except ':' (the field separator) and control
// characters. This is the grammar legacy servers accepted for years before
// the strict grammar was introduced, and it is still accepted by all room
// versions for already-existing ids.
func isHistoricalLocalpart(local string) bool {
	for _, r := range local {
		if r < 0x21 || r > 0x7E || r == ':' {
			return false
		}
	}
	return true
}

// splitSigilID splits "SIGIL LOCALPART ':' SERVER" into its localpart and
// server components. The server part may itself contain ':' (a port), so
// the split happens on the first ':' only.
func splitSigilID(sigil byte, id string) (local string, server ServerName, err error) {
	if len(id) == 0 || id[0] != sigil {
		return "", "", errMissingSigil(sigil)
	}
	rest := id[1:]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", "", errMissingSeparator
	}
	return rest[:idx], ServerName(rest[idx+1:]), nil
}

type sigilError struct {
	sigil byte
}

func (e sigilError) Error() string {
	return "missing '" + string(e.sigil) + "' sigil"
}

func errMissingSigil(sigil byte) error { return sigilError{sigil} }

var errMissingSeparator = missingSeparatorError{}

type missingSeparatorError struct{}

func (missingSeparatorError) Error() string { return "missing ':' separator" }
