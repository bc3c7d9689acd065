package pdu

import "fmt"

// MalformedEventError reports a PDU that failed format checking, naming the
// offending field (spec.md §4.1, §7).
type MalformedEventError struct {
	Field string
	Cause string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("stateres: malformed event: field %q: %s", e.Field, e.Cause)
}
