package powerlevels

import "strconv"

// parseStringifiedInteger accepts the lenient pre-v10 encoding of a power
// level as a decimal string (spec.md §4.4).
func parseStringifiedInteger(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &NotANumberError{}
	}
	return n, nil
}
