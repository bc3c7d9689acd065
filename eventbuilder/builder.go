// Package eventbuilder constructs synthetic signed PDUs for tests and
// tooling. Verifying signatures on received events is out of scope for this
// module (spec.md §1 non-goals); this package only ever produces them,
// mirroring the construction half of the event-crypto pipeline without the
// verification half.
package eventbuilder

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/sjson"
	"golang.org/x/crypto/ed25519"

	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/pdu"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// Builder accumulates the fields of a new event. Build may be called
// multiple times on the same Builder to produce distinct events (each takes
// its origin_server_ts from Build's now argument and, for v1/v2 rooms, gets a
// fresh random event id).
type Builder struct {
	Sender     spec.UserID
	RoomID     spec.RoomID
	Type       string
	StateKey   *string
	PrevEvents []spec.EventID
	AuthEvents []spec.EventID
	Redacts    spec.EventID
	Depth      int64
	Content    *canonicaljson.Object
}

// wireEvent is the on-the-wire shape assembled before signing. Fields are
// tagged to match the global redaction keep-list naming from spec.md §4.1.
type wireEvent struct {
	EventID        string          `json:"event_id,omitempty"`
	Sender         string          `json:"sender"`
	RoomID         string          `json:"room_id"`
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key,omitempty"`
	Content        json.RawMessage `json:"content"`
	PrevEvents     []string        `json:"prev_events"`
	AuthEvents     []string        `json:"auth_events"`
	Redacts        string          `json:"redacts,omitempty"`
	Depth          int64           `json:"depth"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Origin         string          `json:"origin"`
	Hashes         json.RawMessage `json:"hashes,omitempty"`
	Signatures     json.RawMessage `json:"signatures,omitempty"`
	Unsigned       json.RawMessage `json:"unsigned,omitempty"`
}

// Build assembles, hashes and signs the event, returning its canonical JSON
// bytes. now supplies origin_server_ts; keyID and privateKey sign the
// canonical event (content hash included, "unsigned" and "signatures"
// excluded) under the Ed25519 server-signing scheme.
func (b *Builder) Build(now time.Time, origin spec.ServerName, keyID string, privateKey ed25519.PrivateKey, r *rules.Rules) (raw []byte, eventID spec.EventID, err error) {
	contentJSON := []byte("{}")
	if b.Content != nil {
		contentJSON = canonicaljson.Marshal(canonicaljson.ObjectValue(b.Content))
	}

	we := wireEvent{
		Sender:         string(b.Sender),
		RoomID:         string(b.RoomID),
		Type:           b.Type,
		StateKey:       b.StateKey,
		Content:        contentJSON,
		PrevEvents:     idsToStrings(b.PrevEvents),
		AuthEvents:     idsToStrings(b.AuthEvents),
		Redacts:        string(b.Redacts),
		Depth:          b.Depth,
		OriginServerTS: now.UnixMilli(),
		Origin:         string(origin),
	}

	var explicitEventID string
	if r.RequireEventID {
		explicitEventID = fmt.Sprintf("$%s:%s", randomLocalID(), origin)
		we.EventID = explicitEventID
	}

	wireJSON, err := json.Marshal(&we)
	if err != nil {
		return nil, "", err
	}
	canonical, err := canonicaljson.Canonicalize(wireJSON)
	if err != nil {
		return nil, "", err
	}

	hashed, err := addContentHash(canonical)
	if err != nil {
		return nil, "", err
	}

	signed, err := sign(hashed, origin, keyID, privateKey, r)
	if err != nil {
		return nil, "", err
	}

	if r.RequireEventID {
		eventID = spec.EventID(explicitEventID)
	} else {
		derived, err := referenceHashEventID(signed, r)
		if err != nil {
			return nil, "", err
		}
		eventID = spec.EventID(derived)
	}

	if err := pdu.CheckPDUFormat(signed, r); err != nil {
		return nil, "", err
	}
	return signed, eventID, nil
}

func idsToStrings(ids []spec.EventID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// addContentHash sets the "hashes.sha256" key to the SHA-256 digest of the
// canonical JSON with "unsigned" and "hashes" themselves removed, mirroring
// the content-hash step of the reference event-crypto pipeline.
func addContentHash(eventJSON []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(eventJSON, &fields); err != nil {
		return nil, err
	}
	delete(fields, "unsigned")
	delete(fields, "hashes")

	hashable, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	canonicalHashable, err := canonicaljson.Canonicalize(hashable)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(canonicalHashable)
	hashes := map[string]string{"sha256": base64.RawStdEncoding.EncodeToString(digest[:])}
	hashesJSON, err := json.Marshal(hashes)
	if err != nil {
		return nil, err
	}
	fields["hashes"] = hashesJSON

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return canonicaljson.Canonicalize(out)
}

// sign computes an Ed25519 signature over the canonical JSON with
// "unsigned" and "signatures" removed, and adds it under
// signatures[origin][keyID].
func sign(eventJSON []byte, origin spec.ServerName, keyID string, privateKey ed25519.PrivateKey, r *rules.Rules) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(eventJSON, &fields); err != nil {
		return nil, err
	}
	delete(fields, "unsigned")
	delete(fields, "signatures")

	signable, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	canonicalSignable, err := canonicaljson.Canonicalize(signable)
	if err != nil {
		return nil, err
	}

	sig := ed25519.Sign(privateKey, canonicalSignable)
	signatures := map[string]map[string]string{
		string(origin): {keyID: base64.RawStdEncoding.EncodeToString(sig)},
	}
	sigJSON, err := json.Marshal(signatures)
	if err != nil {
		return nil, err
	}
	fields["signatures"] = sigJSON

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return canonicaljson.Canonicalize(out)
}

// referenceHashEventID derives the v3+ event id: "$" followed by the
// URL-safe, unpadded base64 encoding of the SHA-256 digest of the event's
// redacted canonical JSON.
func referenceHashEventID(eventJSON []byte, r *rules.Rules) (string, error) {
	redacted, err := pdu.Redact(eventJSON, r)
	if err != nil {
		return "", err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(redacted, &fields); err != nil {
		return "", err
	}
	delete(fields, "signatures")
	delete(fields, "unsigned")
	delete(fields, "age_ts")

	hashable, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	canonicalHashable, err := canonicaljson.Canonicalize(hashable)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonicalHashable)
	return "$" + base64.RawURLEncoding.EncodeToString(digest[:]), nil
}

func setEventID(eventJSON []byte, eventID string) ([]byte, error) {
	out, err := sjson.SetBytes(eventJSON, "event_id", eventID)
	if err != nil {
		return nil, err
	}
	return canonicaljson.Canonicalize(out)
}
