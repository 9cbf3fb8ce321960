package solver

import (
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"

	"github.com/fxnatic/filehash-go/sandbox"
	"github.com/fxnatic/filehash-go/types"
	"github.com/fxnatic/filehash-go/utils"
)

// Assemble declares the legend table inside sb, decodes every item through
// it and returns the item selected by the bundle's index variable.
//
// sb must already hold the state produced by selective execution. Values
// that throw while being read or converted, such as a Symbol index or a
// legend getter that throws, yield ErrDecode.
func Assemble(m *types.Manifest, sb *sandbox.Sandbox) (float64, error) {
	if !m.HasIndex() {
		return 0, &types.PreconditionError{Assumption: types.AssumeIndexPresent}
	}

	if _, err := sb.Run(m.Legend.SourceCode); err != nil {
		return 0, &types.ExecutionError{
			Category: "LegendTable",
			Source:   m.Legend.SourceCode,
			Err:      err,
		}
	}

	var hash float64
	var decodeErr error
	err := sb.Try(func() {
		legend, ok := asObject(sb, sb.Get(m.Legend.VariableName))
		if !ok {
			decodeErr = fmt.Errorf("%w: legend %q is not an object", types.ErrDecode, m.Legend.VariableName)
			return
		}

		decoded := DecodeItems(m.Items, func(char string) (string, bool) {
			v := legend.Get(char)
			if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
				return "", false
			}
			return v.String(), true
		})

		hash, decodeErr = selectItem(decoded, sb.Get(m.Index), m.Index)
	})
	if err != nil {
		if sandbox.IsInterrupted(err) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", types.ErrDecode, err)
	}
	if decodeErr != nil {
		return 0, decodeErr
	}
	return hash, nil
}

// DecodeItems maps every character of every item through lookup, joins the
// mapped values and parses the result as a float. Characters missing from
// the lookup contribute nothing, like undefined entries of Array.join.
func DecodeItems(items []string, lookup func(char string) (string, bool)) []float64 {
	out := make([]float64, len(items))
	var b strings.Builder
	for i, item := range items {
		b.Reset()
		for _, r := range item {
			if s, ok := lookup(string(r)); ok {
				b.WriteString(s)
			}
		}
		out[i] = utils.JSParseFloat(b.String())
	}
	return out
}

func selectItem(decoded []float64, index goja.Value, name string) (float64, error) {
	if index == nil || goja.IsUndefined(index) || goja.IsNull(index) {
		return 0, fmt.Errorf("%w: index variable %q is not bound", types.ErrDecode, name)
	}

	pos, ok := utils.ArrayIndex(index.ToFloat(), len(decoded))
	if !ok {
		return 0, fmt.Errorf("%w: index %s is outside the %d decoded items", types.ErrDecode, index.String(), len(decoded))
	}

	hash := decoded[pos]
	if math.IsNaN(hash) || math.IsInf(hash, 0) {
		return 0, fmt.Errorf("%w: item %d does not decode to a finite number", types.ErrDecode, pos)
	}
	return hash, nil
}

func asObject(sb *sandbox.Sandbox, v goja.Value) (*goja.Object, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return v.ToObject(sb.Runtime()), true
}
