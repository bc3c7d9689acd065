package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/spec"
)

func TestRulesForVersionRejectsUnknownVersion(t *testing.T) {
	_, err := RulesForVersion("99")
	require.Error(t, err)
	var unknown *UnknownRoomVersionError
	assert.ErrorAs(t, err, &unknown)
}

func TestRulesForVersionV1UsesExplicitEventIDFormat(t *testing.T) {
	r, err := RulesForVersion(spec.RoomVersionV1)
	require.NoError(t, err)
	assert.Equal(t, EventFormatV1, r.EventFormat)
	assert.True(t, r.RequireEventID)
	assert.False(t, r.IntegerPowerLevels)
	assert.False(t, r.ExplicitlyPrivilegeRoomCreators)
	assert.True(t, r.RedactContentKeepsCreatorField)
	assert.False(t, r.RestrictedJoinRule)
	assert.False(t, r.KnockJoinRule)
}

func TestRulesForVersionV9DerivesEventIDAndKnockRules(t *testing.T) {
	r, err := RulesForVersion(spec.RoomVersionV9)
	require.NoError(t, err)
	assert.Equal(t, EventFormatV3, r.EventFormat)
	assert.False(t, r.RequireEventID)
	assert.True(t, r.RestrictedJoinRule)
	assert.True(t, r.KnockJoinRule)
	assert.False(t, r.KnockRestrictedJoinRule)
	assert.False(t, r.ExplicitlyPrivilegeRoomCreators)
}

func TestRulesForVersionV11PrivilegesCreatorsAndDropsLegacyRedaction(t *testing.T) {
	r, err := RulesForVersion(spec.RoomVersionV11)
	require.NoError(t, err)
	assert.True(t, r.ExplicitlyPrivilegeRoomCreators)
	assert.False(t, r.RedactContentKeepsCreatorField)
	assert.True(t, r.IntegerPowerLevels)
	assert.True(t, r.KnockRestrictedJoinRule)
}

func TestRulesForVersionRecordsRoomVersion(t *testing.T) {
	versions := []spec.RoomVersion{
		spec.RoomVersionV1, spec.RoomVersionV7, spec.RoomVersionV8,
		spec.RoomVersionV9, spec.RoomVersionV10, spec.RoomVersionV11,
	}
	for _, v := range versions {
		r, err := RulesForVersion(v)
		require.NoError(t, err)
		assert.Equal(t, v, r.RoomVersion)
	}
}
