package visitors

import (
	"github.com/t14raptor/go-fast/ast"
	fastgen "github.com/t14raptor/go-fast/generator"
	"github.com/t14raptor/go-fast/parser"

	"github.com/fxnatic/filehash-go/types"
)

// FindIndexLocator follows the lazy accessor chain of the bundle:
//
//	var cache = memo || accessor();          // step 1: accessor name
//	function accessor() { var t = [a, s]; }  // steps 2-3: state holder name
//	var s = f(g(list[pos]), h(list.length)); // step 4: list and index names
//
// Guarded calls are tried in source order and the first one whose chain
// resolves wins. Every failing step yields false, never an error.
func FindIndexLocator(p *ast.Program) (*types.IndexLocatorResult, bool) {
	for _, target := range guardedCallees(p) {
		if res, ok := resolveLocator(p, target); ok {
			return res, true
		}
	}
	return nil, false
}

func resolveLocator(p *ast.Program, target string) (*types.IndexLocatorResult, bool) {
	src, ok := findFunctionSource(p, target)
	if !ok {
		return nil, false
	}

	fn, err := parser.Parse(src)
	if err != nil {
		return nil, false
	}

	var important string
	_, _, ok = findDeclarator(fn, func(_ string, init *ast.Expression) bool {
		arr, ok := init.ArrayLit()
		if !ok || len(arr.Value) < 2 {
			return false
		}
		important, ok = identName(&arr.Value[1])
		return ok
	})
	if !ok {
		return nil, false
	}

	var res *types.IndexLocatorResult
	_, _, ok = findDeclarator(p, func(name string, init *ast.Expression) bool {
		if name != important || lastMemberExpression(init) == nil {
			return false
		}
		pair, found := listIndexPair(init)
		if found {
			res = pair
		}
		return found
	})
	return res, ok
}

type guardFinder struct {
	ast.NoopVisitor
	callees []string
}

func (v *guardFinder) VisitVariableDeclaration(n *ast.VariableDeclaration) {
	for i := range n.List {
		d := &n.List[i]
		if d.Target != nil && d.Initializer != nil {
			if _, ok := d.Target.Identifier(); ok {
				if callee, ok := guardedCallee(d.Initializer); ok {
					v.callees = append(v.callees, callee)
				}
			}
		}
		d.VisitChildrenWith(v)
	}
}

// guardedCallees lists the callee names of every `var x = y || callee(...)`
// in source order.
func guardedCallees(p *ast.Program) []string {
	f := &guardFinder{}
	f.V = f
	p.VisitWith(f)
	return f.callees
}

func guardedCallee(e *ast.Expression) (string, bool) {
	logical, ok := e.Logical()
	if !ok || logical.Operator != ast.LogicalOr {
		return "", false
	}
	if _, ok := identName(logical.Left); !ok {
		return "", false
	}
	if logical.Right == nil {
		return "", false
	}
	call, ok := logical.Right.Call()
	if !ok {
		return "", false
	}
	return identName(call.Callee)
}

type functionFinder struct {
	ast.NoopVisitor
	name string
	src  string
}

func (v *functionFinder) VisitStatement(n *ast.Statement) {
	if v.src != "" {
		return
	}

	if fd, ok := n.FuncDecl(); ok {
		if fd.Function != nil && fd.Function.Name != nil && fd.Function.Name.Name == v.name {
			v.src = fastgen.Generate(n)
			return
		}
	}
	if decl, ok := n.VarDecl(); ok {
		for i := range decl.List {
			d := &decl.List[i]
			if d.Initializer == nil || d.Target == nil {
				continue
			}
			id, ok := d.Target.Identifier()
			if !ok || id.Name != v.name {
				continue
			}
			if d.Initializer.IsFuncLit() {
				v.src = printDeclarator(id.Name, d.Initializer)
				return
			}
		}
	}

	n.VisitChildrenWith(v)
}

// findFunctionSource prints the declaration of the named function, either
// `function name() {}` or `var name = function () {}`.
func findFunctionSource(p *ast.Program, name string) (string, bool) {
	f := &functionFinder{name: name}
	f.V = f
	p.VisitWith(f)
	return f.src, f.src != ""
}

// memberFinder walks an initializer looking for a member expression. At a
// call with arguments only the last argument is followed; any other node is
// searched in full, function bodies and object literals included.
type memberFinder struct {
	ast.NoopVisitor
	found *ast.MemberExpression
}

func (v *memberFinder) VisitExpression(n *ast.Expression) {
	if v.found != nil {
		return
	}

	if m, ok := n.Member(); ok {
		v.found = m
		return
	}
	if call, ok := n.Call(); ok && len(call.ArgumentList) > 0 {
		last := &call.ArgumentList[len(call.ArgumentList)-1]
		if m, ok := last.Member(); ok {
			v.found = m
			return
		}
		last.VisitWith(v)
		return
	}

	n.VisitChildrenWith(v)
}

func lastMemberExpression(e *ast.Expression) *ast.MemberExpression {
	if e == nil {
		return nil
	}
	f := &memberFinder{}
	f.V = f
	e.VisitWith(f)
	return f.found
}

// listIndexPair reads `f(g(list[index]), ...)`.
func listIndexPair(init *ast.Expression) (*types.IndexLocatorResult, bool) {
	outer, ok := init.Call()
	if !ok || len(outer.ArgumentList) == 0 {
		return nil, false
	}
	inner, ok := outer.ArgumentList[0].Call()
	if !ok || len(inner.ArgumentList) == 0 {
		return nil, false
	}
	member, ok := inner.ArgumentList[0].Member()
	if !ok {
		return nil, false
	}

	list, ok := identName(member.Object)
	if !ok {
		return nil, false
	}
	index, ok := memberPropIdent(member.Property)
	if !ok {
		return nil, false
	}

	return &types.IndexLocatorResult{
		ListName:  list,
		IndexName: index,
	}, true
}
