package event

import (
	"encoding/json"

	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/spec"
)

// parsedEvent is the reference Event implementation: a deserialized JSON
// blob plus the handful of typed accessors the capability interface
// requires. Callers needing something leaner (e.g. a lazily-parsed raw-JSON
// wrapper) can implement Event directly instead.
type parsedEvent struct {
	id             spec.EventID
	eventType      string
	stateKey       *string
	sender         spec.UserID
	roomID         spec.RoomID
	originServerTS int64
	content        *canonicaljson.Object
	authEvents     []spec.EventID
	prevEvents     []spec.EventID
	redacts        *spec.EventID
}

func (e *parsedEvent) EventID() spec.EventID    { return e.id }
func (e *parsedEvent) EventType() string        { return e.eventType }
func (e *parsedEvent) Sender() spec.UserID      { return e.sender }
func (e *parsedEvent) RoomID() spec.RoomID      { return e.roomID }
func (e *parsedEvent) OriginServerTS() int64    { return e.originServerTS }
func (e *parsedEvent) Content() *canonicaljson.Object { return e.content }
func (e *parsedEvent) AuthEvents() []spec.EventID { return e.authEvents }
func (e *parsedEvent) PrevEvents() []spec.EventID { return e.prevEvents }

func (e *parsedEvent) StateKey() (string, bool) {
	if e.stateKey == nil {
		return "", false
	}
	return *e.stateKey, true
}

func (e *parsedEvent) Redacts() (spec.EventID, bool) {
	if e.redacts == nil {
		return "", false
	}
	return *e.redacts, true
}

// wireShape is the subset of top-level PDU fields Parse needs to extract;
// it deliberately ignores hashes/signatures/unsigned, which the Event
// capability has no accessor for.
type wireShape struct {
	EventID        string          `json:"event_id"`
	Sender         string          `json:"sender"`
	RoomID         string          `json:"room_id"`
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key"`
	Content        json.RawMessage `json:"content"`
	AuthEvents     []string        `json:"auth_events"`
	PrevEvents     []string        `json:"prev_events"`
	Redacts        string          `json:"redacts"`
	OriginServerTS int64           `json:"origin_server_ts"`
}

// Parse deserializes a PDU's canonical JSON bytes into the Event capability.
// The returned event's id is always eventID as supplied by the caller: any
// event_id field on the wire is neither read nor validated, and version is
// not consulted. (v3+ rooms carry no event_id field on the wire; their id
// is derived from the event's content.) An absent content field parses as
// an empty object.
func Parse(raw []byte, eventID spec.EventID, version spec.RoomVersion) (Event, error) {
	var w wireShape
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	contentObj := canonicaljson.NewObject()
	if len(w.Content) > 0 {
		content, err := canonicaljson.Parse(w.Content)
		if err != nil {
			return nil, err
		}
		if obj, ok := content.AsObject(); ok && obj != nil {
			contentObj = obj
		}
	}

	pe := &parsedEvent{
		id:             eventID,
		eventType:      w.Type,
		stateKey:       w.StateKey,
		sender:         spec.UserID(w.Sender),
		roomID:         spec.RoomID(w.RoomID),
		originServerTS: w.OriginServerTS,
		content:        contentObj,
		authEvents:     toEventIDs(w.AuthEvents),
		prevEvents:     toEventIDs(w.PrevEvents),
	}
	if w.Redacts != "" {
		id := spec.EventID(w.Redacts)
		pe.redacts = &id
	}
	return pe, nil
}

func toEventIDs(ss []string) []spec.EventID {
	out := make([]spec.EventID, len(ss))
	for i, s := range ss {
		out[i] = spec.EventID(s)
	}
	return out
}
