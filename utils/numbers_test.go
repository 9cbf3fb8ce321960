package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"123", 123},
		{"  42abc", 42},
		{"3.25", 3.25},
		{".5", 0.5},
		{"5.", 5},
		{"-7.5e2", -750},
		{"1e", 1},
		{"1e+", 1},
		{"+12", 12},
		{"0012", 12},
		{"9975588", 9975588},
		{"1.2.3", 1.2},
		{"Infinityx", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, JSParseFloat(tt.in))
		})
	}
}

func TestJSParseFloatNaN(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", ".", "-", "+.", "e5"} {
		assert.True(t, math.IsNaN(JSParseFloat(in)), "input %q", in)
	}
}

func TestArrayIndex(t *testing.T) {
	idx, ok := ArrayIndex(3, 10)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	for _, n := range []float64{-1, 10, 1.5, math.NaN(), math.Inf(1)} {
		_, ok := ArrayIndex(n, 10)
		assert.False(t, ok, "index %v", n)
	}
}
