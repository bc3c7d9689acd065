package caching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/powerlevels"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// waitForCacheProcessing gives ristretto's async admission/eviction loop a
// chance to run, following internal/caching/cache_ristretto_test.go's own
// waitForCacheProcessing helper.
func waitForCacheProcessing(t *testing.T) {
	t.Helper()
	time.Sleep(10 * time.Millisecond)
}

func testView(t *testing.T) *powerlevels.View {
	t.Helper()
	r, err := rules.RulesForVersion(spec.RoomVersionV9)
	require.NoError(t, err)
	return powerlevels.New(canonicaljson.NewObject(), r, map[spec.UserID]bool{"@alice:example.org": true})
}

func TestPowerLevelsCacheSetThenGet(t *testing.T) {
	c, err := NewPowerLevelsCache(1024*1024, time.Hour)
	require.NoError(t, err)
	defer c.Close()

	view := testView(t)
	c.Set("$pl:example.org", view)
	waitForCacheProcessing(t)

	got, ok := c.Get("$pl:example.org")
	assert.True(t, ok)
	assert.Same(t, view, got)
}

func TestPowerLevelsCacheGetMissingReturnsFalse(t *testing.T) {
	c, err := NewPowerLevelsCache(1024*1024, time.Hour)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("$missing:example.org")
	assert.False(t, ok)
}

func TestPowerLevelsCacheExpiresAfterTTL(t *testing.T) {
	c, err := NewPowerLevelsCache(1024*1024, 30*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set("$pl:example.org", testView(t))
	waitForCacheProcessing(t)

	_, ok := c.Get("$pl:example.org")
	require.True(t, ok, "value should be present immediately after Set")

	require.Eventually(t, func() bool {
		_, found := c.Get("$pl:example.org")
		return !found
	}, 500*time.Millisecond, 10*time.Millisecond, "value should have expired after its TTL")
}
