package eventbuilder

import (
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
)

// BuildEvent is Build followed by event.Parse, for callers (mostly tests)
// that want the Event capability directly instead of raw wire bytes.
func (b *Builder) BuildEvent(now time.Time, origin spec.ServerName, keyID string, privateKey ed25519.PrivateKey, version spec.RoomVersion) (event.Event, error) {
	r, err := rules.RulesForVersion(version)
	if err != nil {
		return nil, err
	}
	raw, eventID, err := b.Build(now, origin, keyID, privateKey, r)
	if err != nil {
		return nil, err
	}
	return event.Parse(raw, eventID, version)
}
