package pdu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

func mustRules(t *testing.T, v spec.RoomVersion) *rules.Rules {
	t.Helper()
	r, err := rules.RulesForVersion(v)
	require.NoError(t, err)
	return r
}

func TestCheckPDUFormatValid(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","auth_events":[],"prev_events":[],"depth":4}`)
	assert.NoError(t, CheckPDUFormat(raw, r))
}

func TestCheckPDUFormatTooLarge(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	huge := `{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1,"padding":"` + strings.Repeat("x", MaxPDUSize) + `"}`
	err := CheckPDUFormat([]byte(huge), r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
}

func TestCheckPDUFormatMissingSender(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"room_id":"!room:example.org","type":"m.room.message","depth":1}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "sender", malformed.Field)
}

func TestCheckPDUFormatEventIDRequiredForV1(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV1)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "event_id", malformed.Field)
}

func TestCheckPDUFormatEventIDForbiddenForV9(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"event_id":"$abc","sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "event_id", malformed.Field)
}

func TestCheckPDUFormatTooManyAuthEvents(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	ids := make([]string, MaxAuthEvents+1)
	for i := range ids {
		ids[i] = `"$x` + strings.Repeat("a", i) + `"`
	}
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1,"auth_events":[` + strings.Join(ids, ",") + `]}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "auth_events", malformed.Field)
}

func TestCheckPDUFormatNegativeDepth(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":-1}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "depth", malformed.Field)
	assert.Contains(t, err.Error(), "depth")
}

func TestCheckPDUFormatNonIntegerDepth(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.message","depth":1.5}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "depth", malformed.Field)
}

func TestCheckPDUFormatStateKeyTooLong(t *testing.T) {
	r := mustRules(t, spec.RoomVersionV9)
	raw := []byte(`{"sender":"@alice:example.org","room_id":"!room:example.org","type":"m.room.member","state_key":"` + strings.Repeat("a", MaxFieldLength+1) + `","depth":1}`)
	err := CheckPDUFormat(raw, r)
	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "state_key", malformed.Field)
}
