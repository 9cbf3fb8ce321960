package sandbox

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/t14raptor/go-fast/ast"
	fastgen "github.com/t14raptor/go-fast/generator"

	"github.com/fxnatic/filehash-go/types"
)

// DefaultWrapperIndex is the top-level position of the bundle's wrapper call.
const DefaultWrapperIndex = 1

// Category classifies the wrapper body statements that are run. The numeric
// order is the execution order.
type Category int

const (
	CategoryDeclaration Category = iota
	CategoryFunction
	CategoryExpression
	CategoryReturnCall
)

var categories = []Category{CategoryDeclaration, CategoryFunction, CategoryExpression, CategoryReturnCall}

func (c Category) String() string {
	switch c {
	case CategoryDeclaration:
		return "VariableDeclaration"
	case CategoryFunction:
		return "FunctionDeclaration"
	case CategoryExpression:
		return "ExpressionStatement"
	case CategoryReturnCall:
		return "ReturnStatement"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Suppressed reports whether failures of the category are logged instead of
// returned.
func (c Category) Suppressed() bool {
	return c == CategoryReturnCall
}

type Fragment struct {
	Category Category
	Source   string
}

type Report struct {
	Executed map[Category]int
	// Suppressed holds the errors of return-argument fragments.
	Suppressed []error
}

// WrapperBody returns the statements of `(function () { ... })()` found at
// top-level position index.
func WrapperBody(p *ast.Program, index int) ([]ast.Statement, error) {
	if index < 0 || index >= len(p.Body) {
		return nil, &types.PreconditionError{
			Assumption: types.AssumeWrapperStatement,
			Detail:     fmt.Sprintf("program has %d top-level statements, wrapper expected at %d", len(p.Body), index),
		}
	}

	stmt, ok := p.Body[index].Expression()
	if !ok || stmt.Expression == nil {
		return nil, &types.PreconditionError{
			Assumption: types.AssumeWrapperStatement,
			Detail:     fmt.Sprintf("expected expression statement at index %d", index),
		}
	}

	call, ok := stmt.Expression.Call()
	if !ok || call.Callee == nil {
		return nil, &types.PreconditionError{
			Assumption: types.AssumeWrapperCall,
			Detail:     "expected call expression with function callee",
		}
	}
	fn, ok := call.Callee.FuncLit()
	if !ok {
		return nil, &types.PreconditionError{
			Assumption: types.AssumeWrapperCall,
			Detail:     "expected call expression with function callee",
		}
	}

	if fn.Body == nil {
		return nil, &types.PreconditionError{
			Assumption: types.AssumeWrapperBody,
			Detail:     "expected block statement in callee body",
		}
	}
	return fn.Body.List, nil
}

func classify(n *ast.Statement) (Category, bool) {
	switch n.Kind() {
	case ast.StmtVarDecl:
		return CategoryDeclaration, true
	case ast.StmtFuncDecl:
		return CategoryFunction, true
	case ast.StmtExpression:
		return CategoryExpression, true
	case ast.StmtReturn:
		ret := n.MustReturn()
		if ret.Argument != nil && ret.Argument.IsCall() {
			return CategoryReturnCall, true
		}
	}
	return 0, false
}

// Plan prints the fragments of body in execution order: category first,
// source order within a category. Return statements contribute only their
// call argument.
func Plan(body []ast.Statement) []Fragment {
	buckets := make(map[Category][]Fragment, len(categories))
	for i := range body {
		stmt := &body[i]
		c, ok := classify(stmt)
		if !ok {
			continue
		}

		var src string
		if c == CategoryReturnCall {
			src = fastgen.Generate(stmt.MustReturn().Argument)
		} else {
			src = fastgen.Generate(stmt)
		}
		buckets[c] = append(buckets[c], Fragment{Category: c, Source: src})
	}

	plan := make([]Fragment, 0, len(body))
	for _, c := range categories {
		plan = append(plan, buckets[c]...)
	}
	return plan
}

// Execute runs the plan against sb in order. A failing fragment aborts the
// run unless its category is suppressed; an interrupt always aborts.
func Execute(sb *Sandbox, plan []Fragment, logger *log.Entry) (*Report, error) {
	if logger == nil {
		logger = sb.logger
	}

	report := &Report{Executed: make(map[Category]int, len(categories))}
	for _, f := range plan {
		_, err := sb.Run(f.Source)
		if err == nil {
			report.Executed[f.Category]++
			continue
		}

		if f.Category.Suppressed() && !IsInterrupted(err) {
			logger.WithFields(log.Fields{
				"category": f.Category.String(),
				"fragment": abbreviate(f.Source, 80),
			}).Debugf("suppressed fragment error: %v", err)
			report.Suppressed = append(report.Suppressed, err)
			report.Executed[f.Category]++
			continue
		}

		return report, &types.ExecutionError{
			Category: f.Category.String(),
			Source:   f.Source,
			Err:      err,
		}
	}

	logger.WithFields(log.Fields{
		"declarations": report.Executed[CategoryDeclaration],
		"functions":    report.Executed[CategoryFunction],
		"expressions":  report.Executed[CategoryExpression],
		"returns":      report.Executed[CategoryReturnCall],
		"suppressed":   len(report.Suppressed),
	}).Debug("selective execution done")

	return report, nil
}

// ExecuteWrapper locates the wrapper at index and runs its body selectively.
func ExecuteWrapper(sb *Sandbox, p *ast.Program, index int, logger *log.Entry) (*Report, error) {
	body, err := WrapperBody(p, index)
	if err != nil {
		return nil, err
	}
	return Execute(sb, Plan(body), logger)
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
