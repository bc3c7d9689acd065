package pdu

import (
	"encoding/json"

	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// createContent keeps the fields needed in a redacted m.room.create event
// for room versions before v11, which keep only the legacy "creator" key.
// v11+ rooms keep the entire create content instead (handled separately in
// Redact), since the room id no longer encodes the creator.
type createContent struct {
	Creator json.RawMessage `json:"creator,omitempty"`
}

// joinRulesContent keeps the fields needed in a redacted m.room.join_rules
// event. v8+ additionally keeps "allow", the restricted-join-rule ACL list.
type joinRulesContent struct {
	JoinRule json.RawMessage `json:"join_rule,omitempty"`
	Allow    json.RawMessage `json:"allow,omitempty"`
}

// powerLevelContent keeps the fields needed in a redacted m.room.power_levels
// event. v11+ additionally keeps "invite".
type powerLevelContent struct {
	Users         json.RawMessage `json:"users,omitempty"`
	UsersDefault  json.RawMessage `json:"users_default,omitempty"`
	Events        json.RawMessage `json:"events,omitempty"`
	EventsDefault json.RawMessage `json:"events_default,omitempty"`
	StateDefault  json.RawMessage `json:"state_default,omitempty"`
	Ban           json.RawMessage `json:"ban,omitempty"`
	Kick          json.RawMessage `json:"kick,omitempty"`
	Redact        json.RawMessage `json:"redact,omitempty"`
	Invite        json.RawMessage `json:"invite,omitempty"`
}

// memberContent keeps the fields needed in a redacted m.room.member event.
// v9+ additionally keeps "join_authorised_via_users_server", needed to
// re-validate restricted joins after redaction.
type memberContent struct {
	Membership                   json.RawMessage `json:"membership,omitempty"`
	JoinAuthorisedViaUsersServer json.RawMessage `json:"join_authorised_via_users_server,omitempty"`
}

// aliasesContent keeps the aliases key, for room versions before v6 only;
// v6+ dropped m.room.aliases from the keep-list entirely.
type aliasesContent struct {
	Aliases json.RawMessage `json:"aliases,omitempty"`
}

// historyVisibilityContent keeps the history_visibility key.
type historyVisibilityContent struct {
	HistoryVisibility json.RawMessage `json:"history_visibility,omitempty"`
}

// allContent is the union of every per-type content keep-list. The JSON keys
// kept are distinct across event types, so embedding is unambiguous.
type allContent struct {
	createContent
	joinRulesContent
	powerLevelContent
	memberContent
	aliasesContent
	historyVisibilityContent
}

// eventFields is the global top-level keep-list (spec.md §4.1) shared by
// every event type regardless of room version.
type eventFields struct {
	EventID        json.RawMessage `json:"event_id,omitempty"`
	Sender         json.RawMessage `json:"sender,omitempty"`
	RoomID         json.RawMessage `json:"room_id,omitempty"`
	Hashes         json.RawMessage `json:"hashes,omitempty"`
	Signatures     json.RawMessage `json:"signatures,omitempty"`
	Content        json.RawMessage `json:"content"`
	Type           string          `json:"type"`
	StateKey       json.RawMessage `json:"state_key,omitempty"`
	Depth          json.RawMessage `json:"depth,omitempty"`
	PrevEvents     json.RawMessage `json:"prev_events,omitempty"`
	PrevState      json.RawMessage `json:"prev_state,omitempty"`
	AuthEvents     json.RawMessage `json:"auth_events,omitempty"`
	Origin         json.RawMessage `json:"origin,omitempty"`
	OriginServerTS json.RawMessage `json:"origin_server_ts,omitempty"`
	Redacts        json.RawMessage `json:"redacts,omitempty"`
}

// Redact strips every field from eventJSON except those on the global
// keep-list plus the per-event-type content keep-list, as selected by r
// (spec.md §4.1). Redaction is idempotent (Property 1): redacting an
// already-redacted event returns it unchanged up to key order, since every
// room version's keep-list is itself a fixed point of redaction under that
// same room version.
func Redact(eventJSON []byte, r *rules.Rules) ([]byte, error) {
	var event eventFields
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return nil, &MalformedEventError{Field: "(whole event)", Cause: "not a JSON object: " + err.Error()}
	}

	// v11+ m.room.create keeps the whole content; every other case filters
	// through the typed per-type keep-list below.
	if event.Type == "m.room.create" && !r.RedactContentKeepsCreatorField {
		redacted, err := json.Marshal(&event)
		if err != nil {
			return nil, err
		}
		return redacted, nil
	}

	var content allContent
	if len(event.Content) > 0 {
		if err := json.Unmarshal(event.Content, &content); err != nil {
			return nil, &MalformedEventError{Field: "content", Cause: "not a JSON object: " + err.Error()}
		}
	}

	var kept allContent
	switch event.Type {
	case "m.room.create":
		kept.createContent = content.createContent
	case "m.room.member":
		kept.memberContent.Membership = content.memberContent.Membership
		if r.RestrictedJoinRule && r.RoomVersion != spec.RoomVersionV8 {
			kept.memberContent.JoinAuthorisedViaUsersServer = content.memberContent.JoinAuthorisedViaUsersServer
		}
	case "m.room.join_rules":
		kept.joinRulesContent.JoinRule = content.joinRulesContent.JoinRule
		if r.RestrictedJoinRule {
			kept.joinRulesContent.Allow = content.joinRulesContent.Allow
		}
	case "m.room.power_levels":
		kept.powerLevelContent = content.powerLevelContent
		if !r.ExplicitlyPrivilegeRoomCreators {
			kept.powerLevelContent.Invite = nil
		}
	case "m.room.history_visibility":
		kept.historyVisibilityContent = content.historyVisibilityContent
	case "m.room.aliases":
		switch r.RoomVersion {
		case spec.RoomVersionV1, spec.RoomVersionV2, spec.RoomVersionV3, spec.RoomVersionV4, spec.RoomVersionV5:
			// Only pre-v6 room versions kept m.room.aliases content.
			kept.aliasesContent = content.aliasesContent
		}
	}

	newContent, err := json.Marshal(&kept)
	if err != nil {
		return nil, err
	}
	event.Content = newContent

	return json.Marshal(&event)
}
