package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreroom/stateres/spec"
	"github.com/coreroom/stateres/store/sql/shared"
)

// newTestStore opens a fresh in-memory sqlite database per test, the way
// dendrite's mediaapi routing tests do via "file::memory:?cache=shared"
// (routing_test_helpers.go), so each test gets its own schema instance.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared&_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { s.Shared.DB.Close() })
	return s
}

func TestOpenAppliesSchemaAndPreparesStatements(t *testing.T) {
	s := newTestStore(t)
	assert.NotNil(t, s.Shared.InsertEventStmt)
	assert.NotNil(t, s.Shared.SelectEventStmt)
	assert.NotNil(t, s.Shared.SelectAuthEventsStmt)
}

func TestPutThenGetEventRoundTrips(t *testing.T) {
	s := newTestStore(t)

	roomID := spec.RoomID("!room:example.org")
	eventID := spec.EventID("$create:example.org")
	rawJSON := []byte(`{"type":"m.room.create","room_id":"!room:example.org","content":{}}`)

	require.NoError(t, s.Put(eventID, roomID, spec.RoomVersionV9, rawJSON, nil))

	ev, err := s.GetEvent(eventID)
	require.NoError(t, err)
	assert.Equal(t, "m.room.create", ev.EventType())
	assert.Equal(t, eventID, ev.EventID())
}

func TestGetEventNotFoundReturnsTypedError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEvent("$missing:example.org")
	require.Error(t, err)
	var notFound *shared.ErrEventNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestAuthEventIDsWalksPersistedChain(t *testing.T) {
	s := newTestStore(t)
	roomID := spec.RoomID("!room:example.org")

	createID := spec.EventID("$create:example.org")
	memberID := spec.EventID("$member:example.org")

	require.NoError(t, s.Put(createID, roomID, spec.RoomVersionV9,
		[]byte(`{"type":"m.room.create","content":{}}`), nil))
	require.NoError(t, s.Put(memberID, roomID, spec.RoomVersionV9,
		[]byte(`{"type":"m.room.member","content":{}}`), []spec.EventID{createID}))

	chain, err := s.AuthEventIDs(roomID, []spec.EventID{memberID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []spec.EventID{createID, memberID}, chain)
}

func TestAuthChainDiffAcrossForks(t *testing.T) {
	s := newTestStore(t)
	roomID := spec.RoomID("!room:example.org")

	createID := spec.EventID("$create:example.org")
	forkAID := spec.EventID("$topic:example.org")
	forkBID := spec.EventID("$name:example.org")

	require.NoError(t, s.Put(createID, roomID, spec.RoomVersionV9, []byte(`{"type":"m.room.create","content":{}}`), nil))
	require.NoError(t, s.Put(forkAID, roomID, spec.RoomVersionV9, []byte(`{"type":"m.room.topic","content":{}}`), []spec.EventID{createID}))
	require.NoError(t, s.Put(forkBID, roomID, spec.RoomVersionV9, []byte(`{"type":"m.room.name","content":{}}`), []spec.EventID{createID}))

	diff, err := s.AuthChainDiff(roomID, [][]spec.EventID{{forkAID}, {forkBID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []spec.EventID{forkAID, forkBID}, diff)
}
