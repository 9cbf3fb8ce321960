package visitors

import (
	"github.com/t14raptor/go-fast/ast"
	fastgen "github.com/t14raptor/go-fast/generator"
)

// declaratorFinder stops at the first declarator with a plain identifier
// target accepted by match. Declarators are checked in pre-order: each one
// is tested before anything nested in its initializer, and before the next
// declarator of the same declaration. For-loop heads count as declarations.
type declaratorFinder struct {
	ast.NoopVisitor
	match func(name string, init *ast.Expression) bool

	name string
	init *ast.Expression
}

func (v *declaratorFinder) VisitStatement(n *ast.Statement) {
	if v.init != nil {
		return
	}
	n.VisitChildrenWith(v)
}

func (v *declaratorFinder) VisitVariableDeclaration(n *ast.VariableDeclaration) {
	for i := range n.List {
		if v.init != nil {
			return
		}
		d := &n.List[i]
		if d.Target != nil && d.Initializer != nil && !d.Initializer.IsNone() {
			if id, ok := d.Target.Identifier(); ok && v.match(id.Name, d.Initializer) {
				v.name = id.Name
				v.init = d.Initializer
				return
			}
		}
		d.VisitChildrenWith(v)
	}
}

func findDeclarator(p *ast.Program, match func(name string, init *ast.Expression) bool) (string, *ast.Expression, bool) {
	f := &declaratorFinder{match: match}
	f.V = f
	p.VisitWith(f)
	return f.name, f.init, f.init != nil
}

// printDeclarator renders a standalone `var name = init;` statement.
func printDeclarator(name string, init *ast.Expression) string {
	return "var " + name + " = " + fastgen.Generate(init) + ";"
}

func identName(e *ast.Expression) (string, bool) {
	if e == nil {
		return "", false
	}
	id, ok := e.Identifier()
	if !ok {
		return "", false
	}
	return id.Name, true
}

func isCall(e *ast.Expression) bool {
	return e != nil && e.IsCall()
}

// quotedKeyName reads `"a": x`, `'a': x` and `["a"]: x` keys. Bare
// identifier keys such as `a: x` are rejected.
func quotedKeyName(key *ast.PropertyName) (string, bool) {
	if key == nil {
		return "", false
	}
	if c, ok := key.Computed(); ok {
		if c.Expr == nil {
			return "", false
		}
		lit, ok := c.Expr.StringLit()
		if !ok {
			return "", false
		}
		return lit.Value, true
	}
	lit, ok := key.StringLit()
	if !ok || lit.Raw == nil || *lit.Raw == "" {
		return "", false
	}
	if q := (*lit.Raw)[0]; q != '"' && q != '\'' {
		return "", false
	}
	return lit.Value, true
}

// memberPropIdent returns the property name of `a.b` and `a[b]` when the
// property is a bare identifier.
func memberPropIdent(mp *ast.MemberProperty) (string, bool) {
	if mp == nil {
		return "", false
	}
	if id, ok := mp.Identifier(); ok {
		return id.Name, true
	}
	if c, ok := mp.Computed(); ok {
		return identName(c.Expr)
	}
	return "", false
}

// isPrintableChar reports whether s is exactly one character in 0x20-0x7F.
// Any non-ASCII character takes more than one byte, so a length check is enough.
func isPrintableChar(s string) bool {
	return len(s) == 1 && s[0] >= 0x20 && s[0] <= 0x7F
}
