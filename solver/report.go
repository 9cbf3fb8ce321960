package solver

import (
	"strconv"

	"github.com/iancoleman/orderedmap"
)

// FormatHash prints h without exponent, as the bundle's own number
// formatting would for integral hashes.
func FormatHash(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// ResultJSON renders r with a stable key order.
func ResultJSON(r BatchResult, verify bool) *orderedmap.OrderedMap {
	o := orderedmap.New()
	o.Set("file", r.File)

	if r.Err != nil {
		o.Set("error", r.Err.Error())
	} else {
		o.Set("hash", r.Hash)
	}

	if verify {
		if r.HasExpected {
			o.Set("expected", r.Expected)
		}
		o.Set("passed", r.Passed())
	}
	return o
}
