package pdu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/spec"
)

func TestRedactPowerLevelsKeepsAllLevels(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{
		"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.power_levels",
		"state_key":"","depth":1,"origin_server_ts":1000,
		"content":{"users":{"@alice:example.org":100},"ban":50,"kick":50,"redact":50,"events_default":0,"state_default":50,"users_default":0,"events":{},"invite":0,"notifications":{"room":50}}
	}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})

	assert.Contains(t, content, "users")
	assert.Contains(t, content, "ban")
	assert.Contains(t, content, "kick")
	assert.Contains(t, content, "redact")
	assert.NotContains(t, content, "notifications")
	// v9 does not keep "invite" on power_levels (that's an v11+ addition).
	assert.NotContains(t, content, "invite")
}

func TestRedactPowerLevelsKeepsInviteForV11(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV11)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.power_levels","state_key":"","depth":1,"content":{"invite":50,"ban":50}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})
	assert.Contains(t, content, "invite")
}

func TestRedactMemberKeepsRestrictedJoinField(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.member","state_key":"@alice:example.org","depth":1,"content":{"membership":"join","join_authorised_via_users_server":"@bob:example.org","displayname":"Alice"}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})
	assert.Equal(t, "join", content["membership"])
	assert.Equal(t, "@bob:example.org", content["join_authorised_via_users_server"])
	assert.NotContains(t, content, "displayname")
}

func TestRedactCreateKeepsOnlyCreatorPreV11(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.create","state_key":"","depth":1,"content":{"creator":"@alice:example.org","room_version":"9","m.federate":false}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})
	assert.Equal(t, "@alice:example.org", content["creator"])
	assert.NotContains(t, content, "room_version")
	assert.NotContains(t, content, "m.federate")
}

func TestRedactCreateKeepsFullContentForV11(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV11)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.create","state_key":"","depth":1,"content":{"room_version":"11","m.federate":false}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})
	assert.Equal(t, "11", content["room_version"])
	assert.Equal(t, false, content["m.federate"])
}

func TestRedactAliasesDroppedFromV6(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV6)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.aliases","state_key":"example.org","depth":1,"content":{"aliases":["#foo:example.org"]}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	content := got["content"].(map[string]interface{})
	assert.NotContains(t, content, "aliases")
}

func TestRedactDropsUnrecognisedTopLevelFields(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1,"unsigned":{"age":5},"content":{"body":"hi"}}`)

	out, err := Redact(raw, r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.NotContains(t, got, "unsigned")
	content := got["content"].(map[string]interface{})
	assert.Empty(t, content)
}

// TestRedactIsIdempotent verifies Property 1: redacting an already-redacted
// event returns an object with the same keys already present.
func TestRedactIsIdempotent(t *testing.T) {
	for _, v := range []spec.RoomVersion{spec.RoomVersionV6, spec.RoomVersionV9, spec.RoomVersionV11} {
		v := v
		t.Run(string(v), func(t *testing.T) {
			r := mustRules(t, v)
			raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.power_levels","state_key":"","depth":1,"content":{"ban":50,"users":{"@alice:example.org":100},"notifications":{"room":50}}}`)

			once, err := Redact(raw, r)
			require.NoError(t, err)
			twice, err := Redact(once, r)
			require.NoError(t, err)

			var a, b map[string]interface{}
			require.NoError(t, json.Unmarshal(once, &a))
			require.NoError(t, json.Unmarshal(twice, &b))
			assert.Equal(t, a, b)
		})
	}
}

func TestRedactRejectsNonObjectEvent(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	_, err := Redact([]byte(`"not an object"`), r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
}

func TestRedactRejectsNonObjectContent(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@a:x","room_id":"!r:x","type":"m.room.message","depth":1,"content":"oops"}`)
	_, err := Redact(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "content", malformed.Field)
}
