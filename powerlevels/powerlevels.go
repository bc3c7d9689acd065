// Package powerlevels implements the lazy, cached view over an
// m.room.power_levels event's content (spec.md §4.4, component C5).
package powerlevels

import (
	"sync"

	"github.com/coreroom/stateres/canonicaljson"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// Default values used when no m.room.power_levels event exists, or when a
// field is absent from one that does (spec.md §4.4).
const (
	DefaultUsersDefault  int64 = 0
	DefaultEventsDefault int64 = 0
	DefaultInvite        int64 = 0
	DefaultStateDefault  int64 = 50
	DefaultKick          int64 = 50
	DefaultBan           int64 = 50
	DefaultRedact        int64 = 50

	// DefaultCreatorLevel is the power level a room's creator holds when no
	// m.room.power_levels event has ever been set.
	DefaultCreatorLevel int64 = 100

	// DefaultNotificationPowerLevel is the power level required to trigger a
	// notification of any type not explicitly listed in the content's
	// notifications map (spec.md §4.4, "plus notifications").
	DefaultNotificationPowerLevel int64 = 50
)

// UserPowerLevel is the sum type Finite(i64) | Infinite from spec.md §9: the
// creator override dominates any finite comparison in room versions that
// enable it.
type UserPowerLevel struct {
	infinite bool
	finite   int64
}

// Finite wraps an ordinary integer power level.
func Finite(level int64) UserPowerLevel { return UserPowerLevel{finite: level} }

// Infinite is the creator's unconditional power level.
func Infinite() UserPowerLevel { return UserPowerLevel{infinite: true} }

// IsInfinite reports whether u is the Infinite alternative.
func (u UserPowerLevel) IsInfinite() bool { return u.infinite }

// Int64 returns the finite value. It is meaningless when IsInfinite is true.
func (u UserPowerLevel) Int64() int64 { return u.finite }

// AtLeast reports whether u >= other under the total order where Infinite
// dominates every finite value.
func (u UserPowerLevel) AtLeast(other UserPowerLevel) bool {
	switch {
	case u.infinite:
		return true
	case other.infinite:
		return false
	default:
		return u.finite >= other.finite
	}
}

// GreaterThan reports whether u > other under the same total order.
func (u UserPowerLevel) GreaterThan(other UserPowerLevel) bool {
	switch {
	case u.infinite && other.infinite:
		return false
	case u.infinite:
		return true
	case other.infinite:
		return false
	default:
		return u.finite > other.finite
	}
}

// View is the lazy, mutex-guarded accessor over one m.room.power_levels
// event's content. The content is parsed once behind a sync.Once: the first
// access of any accessor parses every named integer field, the users map and
// the notifications map together and memoizes them, so that
// the hot loops in stateres's ordering phases (§4.6.4/5), which call
// UserLevel per event, do not repeatedly re-walk the content object.
//
// A nil *View (no power_levels event in the room) behaves as if every field
// were absent, i.e. every accessor returns the documented default.
type View struct {
	rules   *rules.Rules
	content *canonicaljson.Object

	parseOnce sync.Once
	parseErr  error

	mu            sync.Mutex
	fields        map[string]int64
	users         map[spec.UserID]int64
	notifications map[string]int64

	creators map[spec.UserID]bool
}

// New wraps the content of an m.room.power_levels event. creators is the set
// of users the room's create event privileges infinitely when
// rules.ExplicitlyPrivilegeRoomCreators is set; pass nil content to model a
// room with no power_levels event.
func New(content *canonicaljson.Object, r *rules.Rules, creators map[spec.UserID]bool) *View {
	return &View{rules: r, content: content, creators: creators}
}

func (v *View) ensureParsed() error {
	v.parseOnce.Do(func() {
		v.fields = make(map[string]int64)
		v.users = make(map[spec.UserID]int64)
		v.notifications = make(map[string]int64)
		if v.content == nil {
			return
		}
		for _, name := range []string{"users_default", "events_default", "state_default", "ban", "kick", "redact", "invite"} {
			if raw, ok := v.content.Get(name); ok {
				n, err := parseNumber(raw, v.rules)
				if err != nil {
					v.parseErr = &MalformedPowerLevelsError{Field: name, Cause: err.Error()}
					return
				}
				v.fields[name] = n
			}
		}
		usersObj := canonicaljson.NewObject()
		if usersVal, ok := v.content.Get("users"); ok {
			if usersObj, ok = usersVal.AsObject(); !ok {
				v.parseErr = &MalformedPowerLevelsError{Field: "users", Cause: "not an object"}
				return
			}
		}
		for _, key := range usersObj.Keys() {
			raw, _ := usersObj.Get(key)
			n, err := parseNumber(raw, v.rules)
			if err != nil {
				v.parseErr = &MalformedPowerLevelsError{Field: "users." + key, Cause: err.Error()}
				return
			}
			v.users[spec.UserID(key)] = n
		}

		notificationsVal, ok := v.content.Get("notifications")
		if !ok {
			return
		}
		notificationsObj, ok := notificationsVal.AsObject()
		if !ok {
			v.parseErr = &MalformedPowerLevelsError{Field: "notifications", Cause: "not an object"}
			return
		}
		for _, key := range notificationsObj.Keys() {
			raw, _ := notificationsObj.Get(key)
			n, err := parseNumber(raw, v.rules)
			if err != nil {
				v.parseErr = &MalformedPowerLevelsError{Field: "notifications." + key, Cause: err.Error()}
				return
			}
			v.notifications[key] = n
		}
	})
	return v.parseErr
}

func (v *View) field(name string, def int64) int64 {
	if v == nil {
		return def
	}
	// A malformed power-levels event is treated as absent for the purposes
	// of evaluating senders' power level (spec.md §4.6.6), so parse errors
	// fall back to defaults rather than propagating here.
	if err := v.ensureParsed(); err != nil {
		return def
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if n, ok := v.fields[name]; ok {
		return n
	}
	return def
}

// UsersDefault returns the users_default field.
func (v *View) UsersDefault() int64 { return v.field("users_default", DefaultUsersDefault) }

// EventsDefault returns the events_default field.
func (v *View) EventsDefault() int64 { return v.field("events_default", DefaultEventsDefault) }

// StateDefault returns the state_default field.
func (v *View) StateDefault() int64 { return v.field("state_default", DefaultStateDefault) }

// Ban returns the ban field.
func (v *View) Ban() int64 { return v.field("ban", DefaultBan) }

// Kick returns the kick field.
func (v *View) Kick() int64 { return v.field("kick", DefaultKick) }

// Redact returns the redact field.
func (v *View) Redact() int64 { return v.field("redact", DefaultRedact) }

// Invite returns the invite field.
func (v *View) Invite() int64 { return v.field("invite", DefaultInvite) }

// NotificationPowerLevel returns the power level required to trigger a
// notification of type key, falling back to DefaultNotificationPowerLevel
// when key is absent from the notifications map or no power_levels event
// exists. Like the other fields, the underlying notifications map is parsed
// once and memoized.
func (v *View) NotificationPowerLevel(key string) int {
	if v == nil {
		return int(DefaultNotificationPowerLevel)
	}
	if err := v.ensureParsed(); err != nil {
		return int(DefaultNotificationPowerLevel)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if n, ok := v.notifications[key]; ok {
		return int(n)
	}
	return int(DefaultNotificationPowerLevel)
}

// EventPowerLevel implements event_power_level(type, is_state_event):
// events[type] if present, else state_default or events_default.
func (v *View) EventPowerLevel(eventType string, isStateEvent bool) int64 {
	if v == nil {
		if isStateEvent {
			return DefaultStateDefault
		}
		return DefaultEventsDefault
	}
	if err := v.ensureParsed(); err == nil && v.content != nil {
		if eventsVal, ok := v.content.Get("events"); ok {
			if eventsObj, ok := eventsVal.AsObject(); ok {
				if raw, ok := eventsObj.Get(eventType); ok {
					if n, err := parseNumber(raw, v.rules); err == nil {
						return n
					}
				}
			}
		}
	}
	if isStateEvent {
		return v.StateDefault()
	}
	return v.EventsDefault()
}

// UserLevel implements user_power_level(user): users[user] if present, else
// users_default, with the creator override from spec.md §4.4/§9 — in room
// versions that explicitly privilege room creators, a creator's level is
// Infinite regardless of any power_levels content.
func (v *View) UserLevel(user spec.UserID) UserPowerLevel {
	if v == nil {
		return Finite(DefaultUsersDefault)
	}
	if v.rules != nil && v.rules.ExplicitlyPrivilegeRoomCreators && v.creators[user] {
		return Infinite()
	}
	if err := v.ensureParsed(); err != nil {
		return Finite(DefaultUsersDefault)
	}
	v.mu.Lock()
	level, ok := v.users[user]
	v.mu.Unlock()
	if ok {
		return Finite(level)
	}
	if v.content == nil && v.creators[user] {
		return Finite(DefaultCreatorLevel)
	}
	return Finite(v.UsersDefault())
}

func parseNumber(val canonicaljson.Value, r *rules.Rules) (int64, error) {
	if n, ok := val.AsInteger(); ok {
		return n, nil
	}
	if r == nil || !r.IntegerPowerLevels {
		if s, ok := val.AsString(); ok {
			return parseStringifiedInteger(s)
		}
	}
	return 0, &NotANumberError{}
}
