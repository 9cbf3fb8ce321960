package sandbox

import (
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandbox(t *testing.T) *Sandbox {
	t.Helper()
	sb, err := New(Options{})
	require.NoError(t, err)
	return sb
}

func TestWindowBinding(t *testing.T) {
	sb := newSandbox(t)

	tests := map[string]string{
		"typeof window.charCodeAt":                        "function",
		"window.charCodeAt.call('A', 0)":                  "65",
		"window.charAt.call('xyz', 1)":                    "y",
		"window.parseFloat('12.5px')":                     "12.5",
		"window.String === String":                        "true",
		"window.Math.max(1, 4)":                           "4",
		"typeof window.BigInt":                            "function",
		"window.Buffer.from('ab').length":                 "2",
		"window.Buffer.from([7, 8])[1]":                   "8",
		"window.Buffer.alloc(3).length":                   "3",
		"window.Buffer.isBuffer(window.Buffer.from('a'))": "true",
		"window.Buffer.isBuffer('a')":                     "false",
		"window.process.platform":                         "linux",
		"window.process.cwd()":                            "/",
		"typeof window.process.env":                       "object",
		"window.module.exports === window.exports":        "true",
		"typeof window.console.log('quiet')":              "undefined",
	}

	for src, want := range tests {
		t.Run(src, func(t *testing.T) {
			v, err := sb.Run(src)
			require.NoError(t, err)
			assert.Equal(t, want, v.String())
		})
	}
}

func TestNextTickRunsInline(t *testing.T) {
	sb := newSandbox(t)

	v, err := sb.Run("var hit = 0; window.process.nextTick(function (n) { hit += n; }, 2); hit")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ToInteger())
}

func TestHostIsUnreachable(t *testing.T) {
	sb := newSandbox(t)

	_, err := sb.Run("window.require('fs')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot find module")

	v, err := sb.Run("typeof require")
	require.NoError(t, err)
	assert.Equal(t, "undefined", v.String())
}

func TestSandboxesAreIsolated(t *testing.T) {
	a := newSandbox(t)
	b := newSandbox(t)

	_, err := a.Run("var leaked = 1; window.tag = 'a';")
	require.NoError(t, err)

	assert.NotNil(t, a.Get("leaked"))
	assert.Nil(t, b.Get("leaked"))

	v, err := b.Run("window.tag")
	require.NoError(t, err)
	assert.True(t, goja.IsUndefined(v))
}

func TestInterrupt(t *testing.T) {
	sb := newSandbox(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		sb.Interrupt("stop")
	}()

	_, err := sb.Run("for (;;) {}")
	require.Error(t, err)
	assert.True(t, IsInterrupted(err))
	assert.False(t, IsInterrupted(errors.New("other")))
}

func TestCallStackLimit(t *testing.T) {
	sb, err := New(Options{MaxCallStackSize: 64})
	require.NoError(t, err)

	_, err = sb.Run("function down(n) { return down(n + 1); } down(0);")
	require.Error(t, err)
	assert.False(t, IsInterrupted(err))
}

func TestTry(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Run(`var sym = Symbol("s"); var ok = 7;`)
	require.NoError(t, err)

	err = sb.Try(func() { sb.Get("sym").ToFloat() })
	require.Error(t, err)
	var ex *goja.Exception
	assert.True(t, errors.As(err, &ex))

	var n float64
	require.NoError(t, sb.Try(func() { n = sb.Get("ok").ToFloat() }))
	assert.Equal(t, 7.0, n)
}
