// Package memory implements a reference, in-process stateres.EventStore
// backed by plain Go maps. It is the primary vehicle for resolver tests and
// a usable starting point for small deployments that do not need a durable
// backend.
package memory

import (
	"sync"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
)

// Store is a concurrency-safe, append-only event store. The zero value is
// not usable; construct with New.
type Store struct {
	mu     sync.RWMutex
	events map[spec.EventID]event.Event
}

// New returns an empty Store.
func New() *Store {
	return &Store{events: make(map[spec.EventID]event.Event)}
}

// Put inserts or overwrites ev. Real federations never overwrite an event
// id; this is permitted here only to make test fixtures convenient.
func (s *Store) Put(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.EventID()] = ev
}

// ErrEventNotFound is returned by GetEvent and GetEvents for an id the
// store has never seen.
type ErrEventNotFound struct {
	EventID spec.EventID
}

func (e *ErrEventNotFound) Error() string {
	return "memory store: event not found: " + string(e.EventID)
}

// GetEvent implements stateres.EventStore.
func (s *Store) GetEvent(id spec.EventID) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, &ErrEventNotFound{EventID: id}
	}
	return ev, nil
}

// GetEvents implements stateres.EventStore, preserving the order of ids.
func (s *Store) GetEvents(ids []spec.EventID) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, 0, len(ids))
	for _, id := range ids {
		ev, ok := s.events[id]
		if !ok {
			return nil, &ErrEventNotFound{EventID: id}
		}
		out = append(out, ev)
	}
	return out, nil
}

// AuthEventIDs implements stateres.EventStore: the transitive closure of
// auth_events reachable from eventIDs, including eventIDs themselves.
func (s *Store) AuthEventIDs(roomID spec.RoomID, eventIDs []spec.EventID) ([]spec.EventID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[spec.EventID]bool{}
	queue := append([]spec.EventID{}, eventIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		ev, ok := s.events[id]
		if !ok {
			return nil, &ErrEventNotFound{EventID: id}
		}
		for _, auth := range ev.AuthEvents() {
			if !visited[auth] {
				queue = append(queue, auth)
			}
		}
	}

	out := make([]spec.EventID, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	return out, nil
}

// AuthChainDiff implements stateres.EventStore: the set of event ids
// present in at least one fork's auth chain but not in every fork's.
func (s *Store) AuthChainDiff(roomID spec.RoomID, forks [][]spec.EventID) ([]spec.EventID, error) {
	chains := make([]map[spec.EventID]bool, len(forks))
	for i, fork := range forks {
		ids, err := s.AuthEventIDs(roomID, fork)
		if err != nil {
			return nil, err
		}
		set := make(map[spec.EventID]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		chains[i] = set
	}

	counts := map[spec.EventID]int{}
	for _, chain := range chains {
		for id := range chain {
			counts[id]++
		}
	}

	var diff []spec.EventID
	for id, count := range counts {
		if count != len(chains) {
			diff = append(diff, id)
		}
	}
	return diff, nil
}
