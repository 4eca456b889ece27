package livesync

import (
	"reflect"

	"github.com/mitchellh/hashstructure/v2"
)

var hashOptions = &hashstructure.HashOptions{ZeroNil: true}

// fingerprint returns a structural hash of v. Map iteration order does
// not affect the result.
func fingerprint(v any) (uint64, bool) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, hashOptions)
	if err != nil {
		return 0, false
	}
	return h, true
}

// Equal reports whether a and b are structurally equal. Differing hashes
// rule out equality early; matching hashes are confirmed with
// reflect.DeepEqual.
func Equal(a, b any) bool {
	ha, okA := fingerprint(a)
	hb, okB := fingerprint(b)
	if okA && okB && ha != hb {
		return false
	}
	return reflect.DeepEqual(a, b)
}
