// Package bundletest builds small bundles shaped like the obfuscated sensor
// scripts the extractor targets.
package bundletest

import (
	"fmt"
	"strings"
)

// Items decode through DefaultLegend to 123, 456, 789, 9976513, 1, 1.5,
// 222, 333, 444, 555, 666.
var Items = []string{"qwe", "rty", "uio", "oouytqe", "pq", "q.t", "www", "eee", "rrr", "ttt", "yyy"}

var Decoded = []float64{123, 456, 789, 9976513, 1, 1.5, 222, 333, 444, 555, 666}

// DefaultIndex is the value the wrapper assigns to the index variable.
const DefaultIndex = 3

const DefaultLegend = `{
      "q": d(1), "w": d(2), "e": seed ? d(3) : 0, "r": seed && d(4), "t": d(5),
      "y": d(6), "u": d(7), "i": d(8), "o": d(9), "p": d(0), ".": String(".")
    }`

// Bundle describes one synthetic bundle. The zero value is not useful; start
// from Default.
type Bundle struct {
	Prelude     string
	Legend      string
	Items       []string
	NoItems     bool
	NoLocator   bool
	Index       int
	Return      string
	ExtraBody   string
	ExtraHelper string
}

func Default() Bundle {
	return Bundle{
		Prelude: `var sensor_meta = "v2";`,
		Legend:  DefaultLegend,
		Items:   Items,
		Index:   DefaultIndex,
		Return:  "return boot();",
	}
}

func (b Bundle) String() string {
	var s strings.Builder

	s.WriteString(b.Prelude)
	s.WriteString("\n(function () {\n")
	s.WriteString("  var memo, pos;\n")
	s.WriteString("  var seed = 3;\n")
	s.WriteString("  function d(n) { return n; }\n")
	s.WriteString("  function k(x) { return x; }\n")
	s.WriteString("  function g(x) { return x; }\n")
	s.WriteString("  function h(a, b) { return a; }\n")
	s.WriteString("  function accessor() { var pair = [seed, state]; return pair; }\n")
	s.WriteString("  function boot() { var state = h(g(registry[pos]), k(registry.length)); return state; }\n")
	if !b.NoLocator {
		s.WriteString("  function init() { var cache = memo || accessor(); return cache; }\n")
	}
	fmt.Fprintf(&s, "  function table() { var legend = %s; return legend; }\n", b.Legend)
	if !b.NoItems {
		quoted := make([]string, len(b.Items))
		for i, item := range b.Items {
			quoted[i] = fmt.Sprintf("%q", item)
		}
		fmt.Fprintf(&s, "  function load(fold) { registry = fold(0, [[%s], 1]); }\n", strings.Join(quoted, ", "))
	}
	if b.ExtraHelper != "" {
		s.WriteString("  " + b.ExtraHelper + "\n")
	}
	fmt.Fprintf(&s, "  pos = %d;\n", b.Index)
	if b.ExtraBody != "" {
		s.WriteString("  " + b.ExtraBody + "\n")
	}
	if b.Return != "" {
		s.WriteString("  " + b.Return + "\n")
	}
	s.WriteString("})();\n")

	return s.String()
}

// LegendObject renders an object literal with the given property values,
// keyed by the first len(values) characters of keys.
func LegendObject(keys string, values ...string) string {
	props := make([]string, len(values))
	for i, v := range values {
		props[i] = fmt.Sprintf("%q: %s", string(keys[i]), v)
	}
	return "{" + strings.Join(props, ", ") + "}"
}

// Calls returns n call expressions d(0) ... d(n-1).
func Calls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("d(%d)", i%10)
	}
	return out
}
