package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/spec"
)

func TestParseExtractsTopLevelFields(t *testing.T) {
	raw := []byte(`{
		"type": "m.room.member",
		"sender": "@alice:example.org",
		"room_id": "!room:example.org",
		"state_key": "@alice:example.org",
		"content": {"membership": "join"},
		"auth_events": ["$create:example.org", "$pl:example.org"],
		"prev_events": ["$prev:example.org"],
		"origin_server_ts": 12345
	}`)

	ev, err := Parse(raw, "$member:example.org", spec.RoomVersionV9)
	require.NoError(t, err)

	assert.Equal(t, spec.EventID("$member:example.org"), ev.EventID())
	assert.Equal(t, "m.room.member", ev.EventType())
	assert.Equal(t, spec.UserID("@alice:example.org"), ev.Sender())
	assert.Equal(t, spec.RoomID("!room:example.org"), ev.RoomID())
	assert.EqualValues(t, 12345, ev.OriginServerTS())

	stateKey, ok := ev.StateKey()
	require.True(t, ok)
	assert.Equal(t, "@alice:example.org", stateKey)

	assert.Equal(t, []spec.EventID{"$create:example.org", "$pl:example.org"}, ev.AuthEvents())
	assert.Equal(t, []spec.EventID{"$prev:example.org"}, ev.PrevEvents())

	membershipValue, ok := ev.Content().Get("membership")
	require.True(t, ok)
	membership, _ := membershipValue.AsString()
	assert.Equal(t, "join", membership)
}

func TestParseEventWithoutStateKeyOrRedacts(t *testing.T) {
	raw := []byte(`{"type":"m.room.message","sender":"@alice:example.org","room_id":"!room:example.org","content":{}}`)

	ev, err := Parse(raw, "$msg:example.org", spec.RoomVersionV9)
	require.NoError(t, err)

	_, ok := ev.StateKey()
	assert.False(t, ok)

	_, ok = ev.Redacts()
	assert.False(t, ok)
}

func TestParseRedactsFieldPopulatesAccessor(t *testing.T) {
	raw := []byte(`{"type":"m.room.redaction","sender":"@alice:example.org","room_id":"!room:example.org","redacts":"$target:example.org","content":{}}`)

	ev, err := Parse(raw, "$redaction:example.org", spec.RoomVersionV9)
	require.NoError(t, err)

	target, ok := ev.Redacts()
	require.True(t, ok)
	assert.Equal(t, spec.EventID("$target:example.org"), target)
}

func TestParseMissingContentDefaultsToEmptyObject(t *testing.T) {
	raw := []byte(`{"type":"m.room.create","sender":"@alice:example.org","room_id":"!room:example.org"}`)

	ev, err := Parse(raw, "$create:example.org", spec.RoomVersionV9)
	require.NoError(t, err)
	require.NotNil(t, ev.Content())
}

func TestParseInvalidJSONReturnsError(t *testing.T) {
	_, err := Parse([]byte(`not json`), "$bad:example.org", spec.RoomVersionV9)
	assert.Error(t, err)
}

func TestStateMapCloneIsIndependent(t *testing.T) {
	original := StateMap{{EventType: "m.room.create", StateKey: ""}: "$create:example.org"}
	clone := original.Clone()
	clone[StateKeyTuple{EventType: "m.room.create", StateKey: ""}] = "$other:example.org"

	assert.Equal(t, spec.EventID("$create:example.org"), original[StateKeyTuple{EventType: "m.room.create", StateKey: ""}])
	assert.Equal(t, spec.EventID("$other:example.org"), clone[StateKeyTuple{EventType: "m.room.create", StateKey: ""}])
}

func TestIsPowerEventClassifiesEventTypes(t *testing.T) {
	mustParse := func(raw string) Event {
		ev, err := Parse([]byte(raw), "$ev:example.org", spec.RoomVersionV9)
		require.NoError(t, err)
		return ev
	}

	assert.True(t, IsPowerEvent(mustParse(`{"type":"m.room.power_levels","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"","content":{}}`)))
	assert.True(t, IsPowerEvent(mustParse(`{"type":"m.room.join_rules","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"","content":{}}`)))
	assert.True(t, IsPowerEvent(mustParse(`{"type":"m.room.create","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"","content":{}}`)))

	kick := mustParse(`{"type":"m.room.member","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"@bob:example.org","content":{"membership":"leave"}}`)
	assert.True(t, IsPowerEvent(kick))

	selfLeave := mustParse(`{"type":"m.room.member","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"@alice:example.org","content":{"membership":"leave"}}`)
	assert.False(t, IsPowerEvent(selfLeave))

	join := mustParse(`{"type":"m.room.member","sender":"@alice:example.org","room_id":"!room:example.org","state_key":"@alice:example.org","content":{"membership":"join"}}`)
	assert.False(t, IsPowerEvent(join))

	message := mustParse(`{"type":"m.room.message","sender":"@alice:example.org","room_id":"!room:example.org","content":{}}`)
	assert.False(t, IsPowerEvent(message))
}
