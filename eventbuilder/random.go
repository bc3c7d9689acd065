package eventbuilder

import "github.com/coreroom/stateres/internal/util"

// randomLocalID returns the opaque localpart of a v1/v2 event id, delegating
// to the shared random-string helper rather than hand-rolling one here.
func randomLocalID() string {
	return util.RandomLocalID()
}
