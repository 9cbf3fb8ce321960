package visitors

import (
	"github.com/t14raptor/go-fast/ast"

	"github.com/fxnatic/filehash-go/types"
)

const minItems = 10

type itemListFinder struct {
	ast.NoopVisitor
	result *types.ItemListResult
}

func (v *itemListFinder) VisitExpression(n *ast.Expression) {
	if v.result != nil {
		return
	}

	if assign, ok := n.Assign(); ok && assign.Left != nil {
		if id, ok := assign.Left.Identifier(); ok {
			if items, ok := encodedItems(assign.Right); ok {
				v.result = &types.ItemListResult{
					VariableName: id.Name,
					Items:        items,
				}
				return
			}
		}
	}

	n.VisitChildrenWith(v)
}

// encodedItems matches `f(x, [["s0", ..., "s9"], ...])` and returns the
// inner strings in source order.
func encodedItems(e *ast.Expression) ([]string, bool) {
	if e == nil {
		return nil, false
	}
	call, ok := e.Call()
	if !ok || len(call.ArgumentList) < 2 {
		return nil, false
	}
	outer, ok := call.ArgumentList[1].ArrayLit()
	if !ok || len(outer.Value) == 0 {
		return nil, false
	}
	inner, ok := outer.Value[0].ArrayLit()
	if !ok || len(inner.Value) < minItems {
		return nil, false
	}

	items := make([]string, 0, len(inner.Value))
	for i := range inner.Value {
		str, ok := inner.Value[i].StringLit()
		if !ok {
			return nil, false
		}
		items = append(items, str.Value)
	}
	return items, true
}

// FindItemList returns the first assignment, of any operator, whose right
// side carries the encoded item array.
func FindItemList(p *ast.Program) (*types.ItemListResult, bool) {
	f := &itemListFinder{}
	f.V = f
	p.VisitWith(f)
	return f.result, f.result != nil
}
