package stateres

import (
	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
)

// buildMainlineIndex walks the chain of m.room.power_levels events reachable
// from state's current power_levels slot backwards through auth_events,
// always preferring the power-levels ancestor, until none remains (spec.md
// §4.6.5). It returns each mainline event's depth. The virtual create anchor
// sits at depth 0 (it is never itself a power_levels event, so it never
// appears in the returned index); the oldest power_levels event in the
// chain is depth 1, the next one back toward the current slot is depth 2,
// and so on.
//
// If state has no power_levels slot, the mainline is empty and every event
// is assigned mainline position 0.
func buildMainlineIndex(state event.StateMap, store EventStore) (map[spec.EventID]int, error) {
	index := map[spec.EventID]int{}

	current, ok := state[event.StateKeyTuple{EventType: "m.room.power_levels", StateKey: ""}]
	if !ok {
		return index, nil
	}

	var chain []spec.EventID
	seen := map[spec.EventID]bool{}
	for {
		if seen[current] {
			return nil, &StoreInconsistentError{Reason: "cycle detected while walking power_levels mainline"}
		}
		seen[current] = true
		chain = append(chain, current)

		ev, err := store.GetEvent(current)
		if err != nil {
			return nil, &StoreInconsistentError{Reason: "fetching mainline event " + string(current), Cause: err}
		}

		ancestor, found, err := powerLevelsAncestor(ev, store)
		if err != nil {
			return nil, err
		}
		if !found {
			// No further power_levels ancestor: current is the oldest
			// power_levels event in the chain, one step above the create
			// anchor.
			break
		}
		current = ancestor
	}

	// chain is ordered newest-first; the oldest entry (last in chain) sits
	// at depth 1, one above the virtual create anchor at depth 0.
	for i, id := range chain {
		index[id] = len(chain) - i
	}
	return index, nil
}

// mainlinePosition implements spec.md §4.6.5's mainline_position: the depth
// of the closest mainline power_levels ancestor reachable through ev's own
// auth chain, following the power-levels link at each step. Events with no
// mainline ancestor at all are assigned position 0.
func mainlinePosition(ev event.Event, mainlineIndex map[spec.EventID]int, store EventStore) (int, error) {
	current := ev
	seen := map[spec.EventID]bool{}
	for {
		ancestor, found, err := powerLevelsAncestor(current, store)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, nil
		}
		if depth, ok := mainlineIndex[ancestor]; ok {
			return depth, nil
		}
		if seen[ancestor] {
			return 0, nil
		}
		seen[ancestor] = true
		current, err = store.GetEvent(ancestor)
		if err != nil {
			return 0, &StoreInconsistentError{Reason: "fetching mainline ancestor " + string(ancestor), Cause: err}
		}
	}
}

// powerLevelsAncestor returns the m.room.power_levels event directly named
// in ev's auth_events, if any.
func powerLevelsAncestor(ev event.Event, store EventStore) (spec.EventID, bool, error) {
	for _, id := range ev.AuthEvents() {
		aev, err := store.GetEvent(id)
		if err != nil {
			return "", false, &StoreInconsistentError{Reason: "fetching auth event " + string(id), Cause: err}
		}
		if aev.EventType() == "m.room.power_levels" {
			return id, true, nil
		}
	}
	return "", false, nil
}
