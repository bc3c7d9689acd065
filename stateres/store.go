package stateres

import (
	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
)

// EventStore is the external collaborator the resolver consumes (spec.md
// §6). Implementations may cache freely; the resolver never retries. When
// any of these calls fails, the resolver returns a *StoreInconsistentError
// whose Cause (also reachable through errors.Unwrap) is the store's own
// error; the store's error is not returned as is.
type EventStore interface {
	// GetEvent fetches a single event by id.
	GetEvent(id spec.EventID) (event.Event, error)

	// GetEvents fetches events in bulk; the result preserves the order of
	// ids.
	GetEvents(ids []spec.EventID) ([]event.Event, error)

	// AuthEventIDs returns the transitive closure of auth_events reachable
	// from eventIDs, including the given ids themselves.
	AuthEventIDs(roomID spec.RoomID, eventIDs []spec.EventID) ([]spec.EventID, error)

	// AuthChainDiff returns the set of event ids that appear in at least
	// one fork's auth chain but not in every fork's auth chain.
	AuthChainDiff(roomID spec.RoomID, forks [][]spec.EventID) ([]spec.EventID, error)
}
