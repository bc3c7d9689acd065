package stateres

import (
	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/powerlevels"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// reverseTopologicalPowerOrder orders powerEvents per spec.md §4.6.4: a node
// A precedes B in the ancestor graph when A appears in B's auth chain; the
// returned order processes nodes with no remaining descendants first (i.e.
// the reverse of the usual ancestors-first topological order), breaking
// ties among simultaneously-ready nodes by
// (sender_power_level_at_A, origin_server_ts, event_id) ascending.
//
// The power level used for tie-breaking is evaluated against a running
// "ordering state" seeded from seed and updated, unconditionally, with the
// state effect of each event as it is placed — this mirrors "the state
// reached just after the previous event in the ordering" without requiring
// the (separate, later) authorization replay to be interleaved with
// ordering itself.
func reverseTopologicalPowerOrder(roomID spec.RoomID, powerEvents []event.Event, seed event.StateMap, store EventStore, r *rules.Rules) ([]event.Event, error) {
	if len(powerEvents) == 0 {
		return nil, nil
	}

	byID := make(map[spec.EventID]event.Event, len(powerEvents))
	isPowerEvent := make(map[spec.EventID]bool, len(powerEvents))
	for _, ev := range powerEvents {
		byID[ev.EventID()] = ev
		isPowerEvent[ev.EventID()] = true
	}

	// ancestorsOf[B] = power events appearing in B's auth chain.
	ancestorsOf := make(map[spec.EventID]map[spec.EventID]bool, len(powerEvents))
	for _, ev := range powerEvents {
		chain, err := store.AuthEventIDs(roomID, []spec.EventID{ev.EventID()})
		if err != nil {
			return nil, &StoreInconsistentError{RoomID: roomID, Reason: "computing auth chain for " + string(ev.EventID()), Cause: err}
		}
		set := map[spec.EventID]bool{}
		for _, id := range chain {
			if id != ev.EventID() && isPowerEvent[id] {
				set[id] = true
			}
		}
		ancestorsOf[ev.EventID()] = set
	}

	// remainingDescendants[A] = power events B still unprocessed with A in
	// ancestorsOf[B]. A is ready to be placed once this count reaches 0.
	remainingDescendants := make(map[spec.EventID]int, len(powerEvents))
	for id := range byID {
		remainingDescendants[id] = 0
	}
	for _, ancestors := range ancestorsOf {
		for a := range ancestors {
			remainingDescendants[a]++
		}
	}

	processed := make(map[spec.EventID]bool, len(powerEvents))
	ordering := make([]event.Event, 0, len(powerEvents))
	orderingState := seed.Clone()

	for len(ordering) < len(powerEvents) {
		var ready []spec.EventID
		for id := range byID {
			if !processed[id] && remainingDescendants[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return nil, &StoreInconsistentError{RoomID: roomID, Reason: "cycle detected in power-event ancestor graph"}
		}

		pl, err := powerLevelsViewAt(orderingState, store, r)
		if err != nil {
			return nil, err
		}

		best := ready[0]
		bestLevel := pl.UserLevel(byID[best].Sender())
		for _, candidate := range ready[1:] {
			ev := byID[candidate]
			level := pl.UserLevel(ev.Sender())
			if lessTieBreak(level, ev, bestLevel, byID[best]) {
				best, bestLevel = candidate, level
			}
		}

		chosen := byID[best]
		ordering = append(ordering, chosen)
		processed[best] = true
		applyStateEffect(orderingState, chosen)

		// B (best) is itself an ancestor of some others; once processed it
		// no longer blocks them via remainingDescendants bookkeeping. Since
		// remainingDescendants counts *descendants* of a node (not the
		// reverse), processing `best` only removes it from the ready pool;
		// nodes it is an ancestor FOR have already had their count set at
		// init time relative to ALL their ancestors, so we decrement the
		// ancestors of `best` as `best` had been one of their descendants.
		for a := range ancestorsOf[best] {
			remainingDescendants[a]--
		}
	}

	return ordering, nil
}

// lessTieBreak reports whether (levelA, evA) sorts before (levelB, evB)
// under the ascending (power, ts, id) order from spec.md §4.6.4.
func lessTieBreak(levelA powerlevels.UserPowerLevel, evA event.Event, levelB powerlevels.UserPowerLevel, evB event.Event) bool {
	if levelA.IsInfinite() != levelB.IsInfinite() {
		// Lower power sorts first; a finite level is always lower than
		// Infinite.
		return !levelA.IsInfinite()
	}
	if !levelA.IsInfinite() && levelA.Int64() != levelB.Int64() {
		return levelA.Int64() < levelB.Int64()
	}
	if evA.OriginServerTS() != evB.OriginServerTS() {
		return evA.OriginServerTS() < evB.OriginServerTS()
	}
	return evA.EventID() < evB.EventID()
}
