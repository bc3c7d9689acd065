package powerlevels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

func mustRulesFor(t *testing.T, v spec.RoomVersion) *rules.Rules {
	t.Helper()
	r, err := rules.RulesForVersion(v)
	require.NoError(t, err)
	return r
}

func TestNilViewReturnsDefaults(t *testing.T) {
	var v *View
	assert.Equal(t, DefaultStateDefault, v.StateDefault())
	assert.Equal(t, DefaultBan, v.Ban())
	assert.Equal(t, DefaultUsersDefault, v.UserLevel("@anyone:example.org").Int64())
}

func TestViewDefaultsWhenFieldsAbsent(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	v := New(canonicaljson.NewObject(), r, nil)
	assert.Equal(t, DefaultStateDefault, v.StateDefault())
	assert.Equal(t, DefaultBan, v.Ban())
	assert.Equal(t, DefaultKick, v.Kick())
	assert.Equal(t, DefaultRedact, v.Redact())
	assert.Equal(t, DefaultUsersDefault, v.UsersDefault())
	assert.Equal(t, DefaultEventsDefault, v.EventsDefault())
}

func TestViewMemoizesUsers(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	content := canonicaljson.NewObject()
	users := canonicaljson.NewObject()
	users.Set("@alice:example.org", canonicaljson.Integer(100))
	content.Set("users", canonicaljson.ObjectValue(users))

	v := New(content, r, nil)
	got := v.UserLevel("@alice:example.org")
	require.False(t, got.IsInfinite())
	assert.Equal(t, int64(100), got.Int64())

	// Unmapped user falls back to users_default.
	assert.Equal(t, int64(0), v.UserLevel("@bob:example.org").Int64())
}

func TestViewLenientStringifiedIntegersPreV10(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	content := canonicaljson.NewObject()
	content.Set("ban", canonicaljson.String("75"))
	v := New(content, r, nil)
	assert.Equal(t, int64(75), v.Ban())
}

func TestViewStrictIntegersFromV10RejectsStrings(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV10)
	content := canonicaljson.NewObject()
	content.Set("ban", canonicaljson.String("75"))
	v := New(content, r, nil)
	// Malformed field treated as absent; falls back to default.
	assert.Equal(t, DefaultBan, v.Ban())
}

func TestCreatorHasInfinitePowerWhenPrivileged(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV11)
	creators := map[spec.UserID]bool{"@creator:example.org": true}
	v := New(canonicaljson.NewObject(), r, creators)
	got := v.UserLevel("@creator:example.org")
	assert.True(t, got.IsInfinite())
	assert.True(t, got.AtLeast(Finite(1<<62)))
}

func TestCreatorIsOrdinaryPreV11(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	creators := map[spec.UserID]bool{"@creator:example.org": true}
	v := New(nil, r, creators)
	got := v.UserLevel("@creator:example.org")
	assert.False(t, got.IsInfinite())
	assert.Equal(t, DefaultCreatorLevel, got.Int64())
}

func TestEventPowerLevelFallsBackToStateOrEventsDefault(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	content := canonicaljson.NewObject()
	events := canonicaljson.NewObject()
	events.Set("m.room.name", canonicaljson.Integer(60))
	content.Set("events", canonicaljson.ObjectValue(events))
	content.Set("state_default", canonicaljson.Integer(40))
	content.Set("events_default", canonicaljson.Integer(5))

	v := New(content, r, nil)
	assert.Equal(t, int64(60), v.EventPowerLevel("m.room.name", true))
	assert.Equal(t, int64(40), v.EventPowerLevel("m.room.topic", true))
	assert.Equal(t, int64(5), v.EventPowerLevel("m.room.message", false))
}

func TestNotificationPowerLevelReadsMapAndFallsBackToDefault(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	content := canonicaljson.NewObject()
	notifications := canonicaljson.NewObject()
	notifications.Set("room", canonicaljson.Integer(30))
	content.Set("notifications", canonicaljson.ObjectValue(notifications))

	v := New(content, r, nil)
	assert.Equal(t, 30, v.NotificationPowerLevel("room"))
	assert.Equal(t, int(DefaultNotificationPowerLevel), v.NotificationPowerLevel("unlisted"))
}

func TestNotificationPowerLevelDefaultsWhenAbsentOrNilView(t *testing.T) {
	r := mustRulesFor(t, spec.RoomVersionV9)
	v := New(canonicaljson.NewObject(), r, nil)
	assert.Equal(t, int(DefaultNotificationPowerLevel), v.NotificationPowerLevel("room"))

	var nilView *View
	assert.Equal(t, int(DefaultNotificationPowerLevel), nilView.NotificationPowerLevel("room"))
}

func TestUserPowerLevelOrdering(t *testing.T) {
	assert.True(t, Finite(50).AtLeast(Finite(50)))
	assert.True(t, Finite(60).GreaterThan(Finite(50)))
	assert.False(t, Finite(50).GreaterThan(Finite(50)))
	assert.True(t, Infinite().GreaterThan(Finite(1<<62)))
	assert.False(t, Finite(1 << 62).GreaterThan(Infinite()))
}
