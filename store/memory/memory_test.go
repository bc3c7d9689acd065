package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/coreroom/stateres/eventbuilder"
	"github.com/coreroom/stateres/spec"
)

func genKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

// randomRoomID gives each test its own room id, the way room_hierarchy.go
// mints a fresh uuid.NewString() per pagination token, so fixtures never
// collide if a future test shares a Store.
func randomRoomID() spec.RoomID {
	return spec.RoomID("!" + uuid.NewString() + ":example.org")
}

func build(t *testing.T, s *Store, b *eventbuilder.Builder) spec.EventID {
	t.Helper()
	ev, err := b.BuildEvent(time.Unix(1700000000, 0), "example.org", "ed25519:1", genKey(t), spec.RoomVersionV9)
	require.NoError(t, err)
	s.Put(ev)
	return ev.EventID()
}

func TestGetEventNotFound(t *testing.T) {
	s := New()
	_, err := s.GetEvent("$missing")
	require.Error(t, err)
	var notFound *ErrEventNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestAuthEventIDsTransitiveClosure(t *testing.T) {
	s := New()
	roomID := randomRoomID()

	createID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.create", StateKey: strPtr(""), Depth: 1})
	memberID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.member", StateKey: strPtr("@alice:example.org"), Depth: 2, AuthEvents: []spec.EventID{createID}})
	msgID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.message", Depth: 3, AuthEvents: []spec.EventID{createID, memberID}})

	chain, err := s.AuthEventIDs(roomID, []spec.EventID{msgID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []spec.EventID{createID, memberID, msgID}, chain)
}

func TestAuthChainDiff(t *testing.T) {
	s := New()
	roomID := randomRoomID()

	createID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.create", StateKey: strPtr(""), Depth: 1})
	forkAID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.topic", StateKey: strPtr(""), Depth: 2, AuthEvents: []spec.EventID{createID}})
	forkBID := build(t, s, &eventbuilder.Builder{Sender: "@alice:example.org", RoomID: roomID, Type: "m.room.name", StateKey: strPtr(""), Depth: 2, AuthEvents: []spec.EventID{createID}})

	diff, err := s.AuthChainDiff(roomID, [][]spec.EventID{{forkAID}, {forkBID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []spec.EventID{forkAID, forkBID}, diff)
}

func strPtr(s string) *string { return &s }
