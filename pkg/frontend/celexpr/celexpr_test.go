// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celexpr

import (
	"testing"

	"github.com/gomlx/scalargrad/pkg/core/vargraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	g := vargraph.NewGraph("cel")
	x := g.NewVariable(1)
	y := g.NewVariable(2)
	bindings := Bindings{"x": x, "y": y}

	v, err := Parse(g, "x + y + x", bindings)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v.Value())
	assert.Equal(t, 2.0, v.Gradient(x))
	assert.Equal(t, 1.0, v.Gradient(y))

	// Parenthesis and literals: each literal becomes a new leaf.
	numVars := g.NumVariables()
	v, err = Parse(g, "(x + 2.5) + (3 + y)", bindings)
	require.NoError(t, err)
	assert.Equal(t, 8.5, v.Value())
	assert.Equal(t, 1.0, v.Gradient(x))
	assert.Equal(t, numVars+5, g.NumVariables())

	// A single identifier returns the bound variable itself.
	v, err = Parse(g, "y", bindings)
	require.NoError(t, err)
	assert.Same(t, y, v)

	// Results keep reading live values.
	v, err = Parse(g, "x + x + x", bindings)
	require.NoError(t, err)
	x.SetValue(10)
	assert.Equal(t, 30.0, v.Value())
	assert.Equal(t, 3.0, v.Gradient(x))
}

func TestParseErrors(t *testing.T) {
	g := vargraph.NewGraph("cel_errors")
	x := g.NewVariable(1)
	other := vargraph.NewGraph("other").NewVariable(1)
	bindings := Bindings{"x": x, "o": other}

	testCases := []struct {
		source, wantError string
	}{
		{"x + ", "failed to parse"},
		{"x + z", `unknown variable "z"`},
		{"x + 1 + z", `unknown variable "z"`},
		{"(2 + x) * x", "unsupported operation"},
		{"x * x", "unsupported operation"},
		{"x - 1", "unsupported operation"},
		{"x + o", "different graph"},
		{`x + "a"`, "unsupported literal"},
		{"x.size()", "unsupported operation"},
		{"[x]", "unsupported expression"},
	}
	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			numVars := g.NumVariables()
			_, err := Parse(g, tc.source, bindings)
			require.ErrorContains(t, err, tc.wantError)
			// Nothing is created on failure.
			assert.Equal(t, numVars, g.NumVariables())
		})
	}

	g.Finalize()
	_, err := Parse(g, "x", bindings)
	require.Error(t, err)
}
