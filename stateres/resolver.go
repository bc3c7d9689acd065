// Package stateres implements the Matrix state resolution algorithm (spec.md
// §4.6, component C7): merging N candidate state maps into one, by replaying
// conflicting events through authorization in a deterministic order.
package stateres

import (
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coreroom/stateres/auth"
	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/internal/caching"
	"github.com/coreroom/stateres/internal/metrics"
	"github.com/coreroom/stateres/powerlevels"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// powerLevelsCache memoizes *powerlevels.View by the event id of the
// m.room.power_levels event it was parsed from. reverseTopologicalPowerOrder
// rebuilds a view once per ready-set evaluation; across a long power-event
// ordering the underlying event rarely changes between iterations, so this
// avoids re-parsing identical content repeatedly (spec.md §4.4/§5).
var powerLevelsCache = newPowerLevelsCacheOrNil()

func newPowerLevelsCacheOrNil() *caching.PowerLevelsCache {
	c, err := caching.NewPowerLevelsCache(caching.DefaultMaxCost, time.Hour)
	if err != nil {
		// Ristretto misconfiguration is a programmer error, not a runtime
		// condition; fall back to no caching rather than panicking so a
		// resolution can still proceed correctly, just slower.
		logrus.WithError(err).Warn("power levels cache disabled")
		return nil
	}
	return c
}

// Resolve merges forks into a single StateMap by applying the full
// resolution algorithm: unconflicted/conflicted partitioning, auth-chain
// difference, power-event reverse-topological replay, mainline replay of
// the remainder, then re-applying unconflicted slots (spec.md §4.6).
//
// Resolve is a pure function with no concurrency of its own; callers may
// run multiple resolutions concurrently provided each uses a distinct store
// snapshot (spec.md §5).
func Resolve(roomID spec.RoomID, r *rules.Rules, forks []event.StateMap, store EventStore) (resolved event.StateMap, err error) {
	log := logrus.WithFields(logrus.Fields{"room_id": roomID, "forks": len(forks)})

	done := metrics.ObserveResolutionStart()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		done(outcome)
	}()

	if len(forks) == 0 {
		return event.StateMap{}, nil
	}
	if len(forks) == 1 {
		return forks[0].Clone(), nil
	}

	unconflicted, conflictedKeys := partition(forks)
	log.WithField("conflicted_slots", len(conflictedKeys)).Debug("partitioned state")
	metrics.ObserveConflictedSlots(string(r.RoomVersion), len(conflictedKeys))

	conflictedSet := map[spec.EventID]bool{}
	for _, k := range conflictedKeys {
		for _, fork := range forks {
			if id, ok := fork[k]; ok {
				conflictedSet[id] = true
			}
		}
	}

	authDiff, err := authChainDifference(roomID, forks, store)
	if err != nil {
		return nil, err
	}
	for _, id := range authDiff {
		conflictedSet[id] = true
	}

	toResolve := make([]spec.EventID, 0, len(conflictedSet))
	for id := range conflictedSet {
		toResolve = append(toResolve, id)
	}

	resolvable, err := store.GetEvents(toResolve)
	if err != nil {
		return nil, &StoreInconsistentError{RoomID: roomID, Reason: "fetching conflicted events", Cause: err}
	}
	byID := make(map[spec.EventID]event.Event, len(resolvable))
	for _, ev := range resolvable {
		byID[ev.EventID()] = ev
	}

	var powerEvents, otherEvents []event.Event
	for _, ev := range resolvable {
		if event.IsPowerEvent(ev) {
			powerEvents = append(powerEvents, ev)
		} else {
			otherEvents = append(otherEvents, ev)
		}
	}

	createID, hasCreate := unconflicted[event.StateKeyTuple{EventType: "m.room.create", StateKey: ""}]
	seed := unconflicted.Clone()
	if hasCreate {
		seed[event.StateKeyTuple{EventType: "m.room.create", StateKey: ""}] = createID
	}

	ordered, err := reverseTopologicalPowerOrder(roomID, powerEvents, seed, store, r)
	if err != nil {
		return nil, err
	}

	working := seed.Clone()
	for _, ev := range ordered {
		if err := auth.Check(ev, working, storeAsEventGetter{store}, r); err != nil {
			var storeErr *auth.StoreError
			if errors.As(err, &storeErr) {
				return nil, &StoreInconsistentError{RoomID: roomID, Reason: "authorizing " + string(ev.EventID()), Cause: storeErr.Cause}
			}
			log.WithField("event_id", ev.EventID()).WithError(err).Debug("power event failed authorization, dropping")
			metrics.ObserveEventDropped(ev.EventType())
			continue
		}
		applyStateEffect(working, ev)
	}

	mainlineIndex, err := buildMainlineIndex(working, store)
	if err != nil {
		return nil, err
	}

	type positioned struct {
		ev  event.Event
		pos int
	}
	positionedEvents := make([]positioned, 0, len(otherEvents))
	for _, ev := range otherEvents {
		pos, err := mainlinePosition(ev, mainlineIndex, store)
		if err != nil {
			return nil, err
		}
		positionedEvents = append(positionedEvents, positioned{ev: ev, pos: pos})
	}
	sort.SliceStable(positionedEvents, func(i, j int) bool {
		a, b := positionedEvents[i], positionedEvents[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.ev.OriginServerTS() != b.ev.OriginServerTS() {
			return a.ev.OriginServerTS() < b.ev.OriginServerTS()
		}
		return a.ev.EventID() < b.ev.EventID()
	})

	for _, p := range positionedEvents {
		if err := auth.Check(p.ev, working, storeAsEventGetter{store}, r); err != nil {
			var storeErr *auth.StoreError
			if errors.As(err, &storeErr) {
				return nil, &StoreInconsistentError{RoomID: roomID, Reason: "authorizing " + string(p.ev.EventID()), Cause: storeErr.Cause}
			}
			log.WithField("event_id", p.ev.EventID()).WithError(err).Debug("event failed authorization, dropping")
			metrics.ObserveEventDropped(p.ev.EventType())
			continue
		}
		applyStateEffect(working, p.ev)
	}

	// Unconflicted slots take precedence over anything a conflicted event
	// tried to change (spec.md §4.6.6).
	for k, v := range unconflicted {
		working[k] = v
	}

	return working, nil
}

func partition(forks []event.StateMap) (unconflicted event.StateMap, conflictedKeys []event.StateKeyTuple) {
	allKeys := map[event.StateKeyTuple]bool{}
	for _, fork := range forks {
		for k := range fork {
			allKeys[k] = true
		}
	}

	unconflicted = event.StateMap{}
	for k := range allKeys {
		var value spec.EventID
		seen := false
		consistent := true
		for _, fork := range forks {
			id, ok := fork[k]
			if !ok {
				continue
			}
			if !seen {
				value = id
				seen = true
				continue
			}
			if id != value {
				consistent = false
				break
			}
		}
		if consistent && seen {
			unconflicted[k] = value
		} else {
			conflictedKeys = append(conflictedKeys, k)
		}
	}
	return unconflicted, conflictedKeys
}

func authChainDifference(roomID spec.RoomID, forks []event.StateMap, store EventStore) ([]spec.EventID, error) {
	forkIDs := make([][]spec.EventID, 0, len(forks))
	for _, fork := range forks {
		ids := make([]spec.EventID, 0, len(fork))
		for _, id := range fork {
			ids = append(ids, id)
		}
		forkIDs = append(forkIDs, ids)
	}
	diff, err := store.AuthChainDiff(roomID, forkIDs)
	if err != nil {
		return nil, &StoreInconsistentError{RoomID: roomID, Reason: "computing auth chain difference", Cause: err}
	}
	return diff, nil
}

// applyStateEffect writes ev into working if it is a state event. Message
// events (including m.room.redaction in its non-state-carrying role) have no
// state slot and are not written.
func applyStateEffect(working event.StateMap, ev event.Event) {
	stateKey, ok := ev.StateKey()
	if !ok {
		return
	}
	working[event.StateKeyTuple{EventType: ev.EventType(), StateKey: stateKey}] = ev.EventID()
}

type storeAsEventGetter struct{ store EventStore }

func (s storeAsEventGetter) GetEvent(id spec.EventID) (event.Event, error) { return s.store.GetEvent(id) }

// powerLevelsViewAt builds a powerlevels.View from the m.room.power_levels
// slot of state, falling back to an empty view (all defaults) if absent.
func powerLevelsViewAt(state event.StateMap, store EventStore, r *rules.Rules) (*powerlevels.View, error) {
	creators, err := creatorsAt(state, store, r)
	if err != nil {
		return nil, err
	}
	id, ok := state[event.StateKeyTuple{EventType: "m.room.power_levels", StateKey: ""}]
	if !ok {
		return powerlevels.New(nil, r, creators), nil
	}
	if powerLevelsCache != nil {
		if cached, ok := powerLevelsCache.Get(id); ok {
			return cached, nil
		}
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return nil, &StoreInconsistentError{Reason: "fetching power_levels event " + string(id), Cause: err}
	}
	view := powerlevels.New(ev.Content(), r, creators)
	if powerLevelsCache != nil {
		powerLevelsCache.Set(id, view)
	}
	return view, nil
}

func creatorsAt(state event.StateMap, store EventStore, r *rules.Rules) (map[spec.UserID]bool, error) {
	id, ok := state[event.StateKeyTuple{EventType: "m.room.create", StateKey: ""}]
	if !ok {
		return nil, nil
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return nil, &StoreInconsistentError{Reason: "fetching create event " + string(id), Cause: err}
	}
	creators := map[spec.UserID]bool{ev.Sender(): true}
	if r.ExplicitlyPrivilegeRoomCreators {
		if additional, ok := ev.Content().Get("additional_creators"); ok {
			if arr, ok := additional.AsArray(); ok {
				for _, item := range arr {
					if s, ok := item.AsString(); ok {
						creators[spec.UserID(s)] = true
					}
				}
			}
		}
	}
	return creators, nil
}
