package canonicaljson

import "fmt"

// OutOfRangeError is returned when a JSON number falls outside the 53-bit
// signed integer range the canonical value model supports.
type OutOfRangeError struct {
	Value int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("stateres: integer %d outside canonical JSON range [%d, %d]", e.Value, MinInteger, MaxInteger)
}

// NotIntegerError is returned when a JSON number has a fractional part or
// an exponent; canonical JSON only supports integers.
type NotIntegerError struct {
	Literal string
}

func (e *NotIntegerError) Error() string {
	return fmt.Sprintf("stateres: number %q is not an integer", e.Literal)
}

// SyntaxError wraps a lower-level JSON syntax error encountered while
// parsing into the canonical value model.
type SyntaxError struct {
	Cause error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("stateres: invalid json: %s", e.Cause) }
func (e *SyntaxError) Unwrap() error { return e.Cause }
