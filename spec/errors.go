package spec

import "fmt"

// InvalidIdentifierError is returned when a parsed identifier violates the
// grammar for its kind.
type InvalidIdentifierError struct {
	Kind  string // "user", "room", "event", "room alias", "server name", "room version"
	Value string
	Cause string
}

func (e InvalidIdentifierError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("stateres: invalid %s id %q", e.Kind, e.Value)
	}
	return fmt.Sprintf("stateres: invalid %s id %q: %s", e.Kind, e.Value, e.Cause)
}
