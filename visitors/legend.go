package visitors

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/fxnatic/filehash-go/types"
)

// legendAlphabet is the number of distinct symbols in the item encoding.
const legendAlphabet = 11

// FindLegendTable returns the first object literal declarator with exactly
// eleven quoted single printable character keys and at least eleven
// call-bearing values. The two tallies run over the same properties independently.
func FindLegendTable(p *ast.Program) (*types.LegendTableResult, bool) {
	name, init, ok := findDeclarator(p, func(_ string, init *ast.Expression) bool {
		obj, ok := init.ObjectLit()
		if !ok {
			return false
		}
		keys, calls := legendShape(obj)
		return keys == legendAlphabet && calls >= legendAlphabet
	})
	if !ok {
		return nil, false
	}

	return &types.LegendTableResult{
		VariableName: name,
		SourceCode:   printDeclarator(name, init),
	}, true
}

func legendShape(obj *ast.ObjectLiteral) (keys, calls int) {
	for i := range obj.Value {
		prop, ok := obj.Value[i].KeyValue()
		if !ok {
			continue
		}

		if key, ok := quotedKeyName(prop.Key); ok && isPrintableChar(key) {
			keys++
		}

		if carriesCall(prop.Value) {
			calls++
		}
	}
	return keys, calls
}

// carriesCall matches `f()`, `c ? f() : x`, `c ? x : f()`, `a || f()` and
// the other logical operators with a call on either side.
func carriesCall(e *ast.Expression) bool {
	if e == nil {
		return false
	}

	if e.IsCall() {
		return true
	}
	if c, ok := e.Conditional(); ok {
		return isCall(c.Consequent) || isCall(c.Alternate)
	}
	if l, ok := e.Logical(); ok {
		return isCall(l.Left) || isCall(l.Right)
	}
	return false
}
