package sandbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"

	"github.com/fxnatic/filehash-go/types"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return prog
}

func TestWrapperBody(t *testing.T) {
	prog := parse(t, `var meta = 1;
(function () {
  var a = 1;
  return a;
})();`)

	body, err := WrapperBody(prog, DefaultWrapperIndex)
	require.NoError(t, err)
	assert.Len(t, body, 2)
}

func TestWrapperBodyPreconditions(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		index      int
		assumption string
	}{
		{"out of range", "var a = 1;", 1, types.AssumeWrapperStatement},
		{"negative index", "var a = 1;", -1, types.AssumeWrapperStatement},
		{"not an expression", "var a = 1;\nvar b = 2;", 1, types.AssumeWrapperStatement},
		{"not a call", "var a = 1;\na = 2;", 1, types.AssumeWrapperCall},
		{"identifier callee", "var a = 1;\nrun();", 1, types.AssumeWrapperCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WrapperBody(parse(t, tt.src), tt.index)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrPrecondition))

			var pe *types.PreconditionError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.assumption, pe.Assumption)
		})
	}
}

func TestPlanOrder(t *testing.T) {
	prog := parse(t, `0;
(function () {
  step = 1;
  return first();
  function first() { return 1; }
  var x = 1;
  if (x) { x = 2; }
  for (;;) { break; }
  return;
  return x;
  var y = 2;
  function second() { return 2; }
  other = 2;
})();`)

	body, err := WrapperBody(prog, 1)
	require.NoError(t, err)

	plan := Plan(body)
	got := make([]Category, len(plan))
	for i, f := range plan {
		got[i] = f.Category
	}

	assert.Equal(t, []Category{
		CategoryDeclaration, CategoryDeclaration,
		CategoryFunction, CategoryFunction,
		CategoryExpression, CategoryExpression,
		CategoryReturnCall,
	}, got)

	assert.Contains(t, plan[0].Source, "x")
	assert.Contains(t, plan[1].Source, "y")
	assert.Contains(t, plan[2].Source, "first")
	assert.Contains(t, plan[3].Source, "second")
	assert.Contains(t, plan[4].Source, "step")
	assert.Contains(t, plan[5].Source, "other")
	assert.False(t, strings.Contains(plan[6].Source, "return"))
	assert.Contains(t, plan[6].Source, "first()")
}

func TestExecuteSuppressesReturnCall(t *testing.T) {
	sb := newSandbox(t)

	plan := []Fragment{
		{Category: CategoryDeclaration, Source: "var count = 0;"},
		{Category: CategoryFunction, Source: "function bump() { count = 5; throw new Error('boom'); }"},
		{Category: CategoryReturnCall, Source: "bump()"},
	}

	report, err := Execute(sb, plan, nil)
	require.NoError(t, err)
	require.Len(t, report.Suppressed, 1)
	assert.Equal(t, 1, report.Executed[CategoryReturnCall])

	// side effects before the throw are kept
	assert.Equal(t, int64(5), sb.Get("count").ToInteger())
}

func TestExecuteFatalCategories(t *testing.T) {
	for _, c := range []Category{CategoryDeclaration, CategoryFunction, CategoryExpression} {
		t.Run(c.String(), func(t *testing.T) {
			sb := newSandbox(t)

			src := "missing.prop;"
			if c == CategoryDeclaration {
				src = "var broken = missing.prop;"
			}
			if c == CategoryFunction {
				src = "function ("
			}

			_, err := Execute(sb, []Fragment{{Category: c, Source: src}}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrSandboxExecution))

			var ee *types.ExecutionError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, c.String(), ee.Category)
			assert.Equal(t, src, ee.Source)
		})
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	sb := newSandbox(t)

	plan := []Fragment{
		{Category: CategoryDeclaration, Source: "var a = missing;"},
		{Category: CategoryDeclaration, Source: "var b = 1;"},
	}

	_, err := Execute(sb, plan, nil)
	require.Error(t, err)

	v, err := sb.Run("typeof b")
	require.NoError(t, err)
	// hoisting is per fragment, so b was never declared
	assert.Equal(t, "undefined", v.String())
}

func TestExecuteInterruptIsNeverSuppressed(t *testing.T) {
	sb := newSandbox(t)
	sb.Interrupt("cancelled")

	_, err := Execute(sb, []Fragment{{Category: CategoryReturnCall, Source: "1 + 1"}}, nil)
	require.Error(t, err)
	assert.True(t, IsInterrupted(err))
	assert.True(t, errors.Is(err, types.ErrSandboxExecution))
}

func TestExecuteWrapper(t *testing.T) {
	sb := newSandbox(t)
	prog := parse(t, `"use strict";
(function () {
  var total;
  function add(n) { total += n; return total; }
  total = 10;
  return add(5);
})();`)

	report, err := ExecuteWrapper(sb, prog, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Suppressed)
	assert.Equal(t, int64(15), sb.Get("total").ToInteger())
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "VariableDeclaration", CategoryDeclaration.String())
	assert.Equal(t, "ReturnStatement", CategoryReturnCall.String())
	assert.Equal(t, "Category(9)", Category(9).String())
	assert.True(t, CategoryReturnCall.Suppressed())
	assert.False(t, CategoryExpression.Suppressed())
}
