package powerlevels

import "fmt"

// MalformedPowerLevelsError names a power_levels field that failed to parse
// under the active number-parsing rule. The power_levels event as a whole is
// then treated as absent for the purposes of evaluating current senders'
// power levels (spec.md §4.6.6), but this error remains available to callers
// who want to log or reject construction explicitly.
type MalformedPowerLevelsError struct {
	Field string
	Cause string
}

func (e *MalformedPowerLevelsError) Error() string {
	return fmt.Sprintf("stateres: malformed power_levels field %q: %s", e.Field, e.Cause)
}

// NotANumberError is returned internally by parseNumber when a value is
// neither a JSON integer nor, under the lenient pre-v10 rule, a decimal
// string.
type NotANumberError struct{}

func (e *NotANumberError) Error() string {
	return "value is not a number"
}
