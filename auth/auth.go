// Package auth implements the authorization check (spec.md §4.5, component
// C6): a pure function that decides whether an event may be accepted against
// a given state, dispatching on the event's type.
package auth

import (
	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/powerlevels"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// EventGetter is the narrow read-only lookup the authorization check needs
// to resolve the events occupying state slots referenced by stateBefore.
type EventGetter interface {
	GetEvent(id spec.EventID) (event.Event, error)
}

// Check decides whether ev may be accepted given the state immediately
// preceding it (spec.md §4.5). It never mutates stateBefore or ev.
func Check(ev event.Event, stateBefore event.StateMap, store EventGetter, r *rules.Rules) error {
	switch ev.EventType() {
	case "m.room.create":
		return checkCreate(ev, r)
	case "m.room.member":
		return checkMember(ev, stateBefore, store, r)
	case "m.room.power_levels":
		return checkPowerLevels(ev, stateBefore, store, r)
	default:
		if _, isState := ev.StateKey(); isState {
			return checkOtherState(ev, stateBefore, store, r)
		}
		return checkMessage(ev, stateBefore, store, r)
	}
}

func checkCreate(ev event.Event, r *rules.Rules) error {
	if len(ev.AuthEvents()) != 0 {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "m.room.create must have no auth_events"}
	}
	if len(ev.PrevEvents()) != 0 {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "m.room.create must have no prev_events"}
	}
	if !r.ExplicitlyPrivilegeRoomCreators {
		creator, ok := getString(ev.Content(), "creator")
		if !ok || spec.UserID(creator) != ev.Sender() {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "content.creator must equal sender"}
		}
	}
	return nil
}

func checkMember(ev event.Event, stateBefore event.StateMap, store EventGetter, r *rules.Rules) error {
	targetKey, ok := ev.StateKey()
	if !ok {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "m.room.member must be a state event"}
	}
	target := spec.UserID(targetKey)
	membership, ok := getString(ev.Content(), "membership")
	if !ok {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "missing content.membership"}
	}

	pl, _, err := loadPowerLevels(stateBefore, store, r)
	if err != nil {
		return err
	}
	senderLevel := pl.UserLevel(ev.Sender())
	targetPriorMembership := priorMembership(stateBefore, store, target)

	switch membership {
	case "join":
		if ev.Sender() != target {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "only the target may join on their own behalf"}
		}
		if targetPriorMembership == "ban" {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "banned user cannot join"}
		}
		joinRule := currentJoinRule(stateBefore, store)
		switch {
		case joinRule == "public":
		case targetPriorMembership == "invite":
		case r.RestrictedJoinRule && (joinRule == "restricted" || joinRule == "knock_restricted"):
			if !authorisedViaServerWithInvitePower(ev, pl) {
				return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "restricted join lacks a validly-authorised server signer"}
			}
		default:
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "join requires public room, invite, or restricted-join authorisation"}
		}
	case "invite":
		if targetPriorMembership == "ban" {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "cannot invite a banned user"}
		}
		if !senderLevel.AtLeast(Finite(pl.Invite())) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks invite power"}
		}
	case "leave":
		if ev.Sender() == target {
			// Self-leave: any currently-joined or invited member may leave.
			break
		}
		// A foreign-target leave is a kick.
		if !senderLevel.AtLeast(Finite(pl.Kick())) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks kick power"}
		}
		if !senderLevel.GreaterThan(pl.UserLevel(target)) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender power must exceed target's to kick"}
		}
	case "ban":
		if !senderLevel.AtLeast(Finite(pl.Ban())) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks ban power"}
		}
		if !senderLevel.GreaterThan(pl.UserLevel(target)) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender power must exceed target's to ban"}
		}
	default:
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "unrecognised membership value"}
	}

	return nil
}

func checkPowerLevels(ev event.Event, stateBefore event.StateMap, store EventGetter, r *rules.Rules) error {
	before, creators, err := loadPowerLevels(stateBefore, store, r)
	if err != nil {
		return err
	}
	senderLevel := before.UserLevel(ev.Sender())
	requiredLevel := Finite(before.EventPowerLevel("m.room.power_levels", true))
	if !senderLevel.AtLeast(requiredLevel) {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks power to send m.room.power_levels"}
	}

	after := powerlevels.New(ev.Content(), r, creators)

	for _, field := range []string{"users_default", "events_default", "state_default", "ban", "kick", "redact", "invite"} {
		oldVal := fieldValue(before, field)
		newVal := fieldValue(after, field)
		if oldVal == newVal {
			continue
		}
		if !senderLevel.AtLeast(Finite(oldVal)) || !senderLevel.AtLeast(Finite(newVal)) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks power to change " + field}
		}
	}

	for _, user := range changedUsers(ev.Content(), stateBeforePowerLevelsContent(stateBefore, store)) {
		oldLevel := before.UserLevel(user)
		newLevel := after.UserLevel(user)
		if !senderLevel.AtLeast(oldLevel) || !senderLevel.AtLeast(newLevel) {
			return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks power over user level change for " + string(user)}
		}
		if user != ev.Sender() {
			if !senderLevel.GreaterThan(oldLevel) || !senderLevel.GreaterThan(newLevel) {
				return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender power must strictly exceed other user's level for " + string(user)}
			}
		}
	}

	return nil
}

func checkOtherState(ev event.Event, stateBefore event.StateMap, store EventGetter, r *rules.Rules) error {
	pl, _, err := loadPowerLevels(stateBefore, store, r)
	if err != nil {
		return err
	}
	required := Finite(pl.EventPowerLevel(ev.EventType(), true))
	if !pl.UserLevel(ev.Sender()).AtLeast(required) {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks power for state event type " + ev.EventType()}
	}
	return nil
}

func checkMessage(ev event.Event, stateBefore event.StateMap, store EventGetter, r *rules.Rules) error {
	if priorMembership(stateBefore, store, ev.Sender()) != "join" {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender is not joined"}
	}
	pl, _, err := loadPowerLevels(stateBefore, store, r)
	if err != nil {
		return err
	}
	required := Finite(pl.EventPowerLevel(ev.EventType(), false))
	if !pl.UserLevel(ev.Sender()).AtLeast(required) {
		return &AuthorizationFailedError{EventID: ev.EventID(), Reason: "sender lacks power for message event type " + ev.EventType()}
	}
	return nil
}

// Finite is re-exported for readability at call sites in this package.
func Finite(level int64) powerlevels.UserPowerLevel { return powerlevels.Finite(level) }

func getString(content *canonicaljson.Object, key string) (string, bool) {
	if content == nil {
		return "", false
	}
	v, ok := content.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func fieldValue(pl *powerlevels.View, field string) int64 {
	switch field {
	case "users_default":
		return pl.UsersDefault()
	case "events_default":
		return pl.EventsDefault()
	case "state_default":
		return pl.StateDefault()
	case "ban":
		return pl.Ban()
	case "kick":
		return pl.Kick()
	case "redact":
		return pl.Redact()
	case "invite":
		return pl.Invite()
	default:
		return 0
	}
}

func loadPowerLevels(stateBefore event.StateMap, store EventGetter, r *rules.Rules) (*powerlevels.View, map[spec.UserID]bool, error) {
	creators, err := roomCreators(stateBefore, store, r)
	if err != nil {
		return nil, nil, err
	}
	id, ok := stateBefore[event.StateKeyTuple{EventType: "m.room.power_levels", StateKey: ""}]
	if !ok {
		return powerlevels.New(nil, r, creators), creators, nil
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return nil, nil, &StoreError{Cause: err}
	}
	return powerlevels.New(ev.Content(), r, creators), creators, nil
}

func roomCreators(stateBefore event.StateMap, store EventGetter, r *rules.Rules) (map[spec.UserID]bool, error) {
	id, ok := stateBefore[event.StateKeyTuple{EventType: "m.room.create", StateKey: ""}]
	if !ok {
		return nil, nil
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return nil, &StoreError{Cause: err}
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

func priorMembership(stateBefore event.StateMap, store EventGetter, user spec.UserID) string {
	id, ok := stateBefore[event.StateKeyTuple{EventType: "m.room.member", StateKey: string(user)}]
	if !ok {
		return ""
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return ""
	}
	m, _ := getString(ev.Content(), "membership")
	return m
}

func currentJoinRule(stateBefore event.StateMap, store EventGetter) string {
	id, ok := stateBefore[event.StateKeyTuple{EventType: "m.room.join_rules", StateKey: ""}]
	if !ok {
		return "invite"
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return "invite"
	}
	rule, _ := getString(ev.Content(), "join_rule")
	if rule == "" {
		return "invite"
	}
	return rule
}

func authorisedViaServerWithInvitePower(ev event.Event, pl *powerlevels.View) bool {
	signer, ok := getString(ev.Content(), "join_authorised_via_users_server")
	if !ok || signer == "" {
		return false
	}
	return pl.UserLevel(spec.UserID(signer)).AtLeast(Finite(pl.Invite()))
}

func stateBeforePowerLevelsContent(stateBefore event.StateMap, store EventGetter) *canonicaljson.Object {
	id, ok := stateBefore[event.StateKeyTuple{EventType: "m.room.power_levels", StateKey: ""}]
	if !ok {
		return nil
	}
	ev, err := store.GetEvent(id)
	if err != nil {
		return nil
	}
	return ev.Content()
}

func changedUsers(newContent, oldContent *canonicaljson.Object) []spec.UserID {
	seen := map[spec.UserID]bool{}
	var out []spec.UserID
	collect := func(content *canonicaljson.Object) {
		if content == nil {
			return
		}
		usersVal, ok := content.Get("users")
		if !ok {
			return
		}
		usersObj, ok := usersVal.AsObject()
		if !ok {
			return
		}
		for _, key := range usersObj.Keys() {
			u := spec.UserID(key)
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	collect(newContent)
	collect(oldContent)
	return out
}
