// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph_test

import (
	"testing"

	. "github.com/gomlx/scalargrad/pkg/core/vargraph"
	"github.com/gomlx/scalargrad/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	g := NewGraph("add")
	x := g.NewVariable(3)
	y := g.NewVariable(4)
	z := Add(x, y)
	assert.Equal(t, 7.0, z.Value())
	assert.Equal(t, 1.0, z.Gradient(x))
	assert.Equal(t, 1.0, z.Gradient(y))
	assert.Equal(t, 1.0, z.Gradient(z))
	assert.False(t, z.IsLeaf())

	// Value is composed structurally, one expression per operand.
	assert.Equal(t, []Expression{SumLeft(x.Handle(), y.Handle()), SumRight(x.Handle(), y.Handle())},
		z.ValueExpressions())

	// Operands are not affected.
	assert.Equal(t, 0.0, x.Gradient(z))
	assert.Equal(t, []Handle{x.Handle()}, x.Dependencies())

	// Method form.
	assert.Equal(t, 7.0, x.Add(y).Value())
}

func TestAddSharedAncestry(t *testing.T) {
	g := NewGraph("shared")
	x := g.NewVariable(2)
	w := Add(x, x)
	assert.Equal(t, 4.0, w.Value())
	assert.Equal(t, 2.0, w.Gradient(x))
	assert.Len(t, w.GradientExpressions(x), 2)
}

func TestAddThreeTermChain(t *testing.T) {
	g := NewGraph("chain")
	x := g.NewVariable(1)
	y := g.NewVariable(2)
	u := Add(x, y)
	v := Add(u, x)
	assert.Equal(t, 4.0, v.Value())
	assert.Equal(t, 2.0, v.Gradient(x))
	assert.Equal(t, 1.0, v.Gradient(y))
	assert.Equal(t, 1.0, v.Gradient(u))
	assert.Equal(t, []Handle{v.Handle(), u.Handle(), x.Handle(), y.Handle()}, v.Dependencies())
}

func TestAddDependencyUnion(t *testing.T) {
	g := NewGraph("union")
	a := g.NewVariable(1)
	b := g.NewVariable(2)
	c := g.NewVariable(3)
	x := Add(a, b)
	y := Add(b, c)
	z := Add(x, y)
	want := x.DependencySet().Union(y.DependencySet()).Insert(z.Handle())
	assert.True(t, z.DependencySet().Equal(want), "got %v, want %v",
		sets.Sorted(z.DependencySet()), sets.Sorted(want))
	assert.Equal(t, 2.0, z.Gradient(b))
	assert.Equal(t, 1.0, z.Gradient(a))
	assert.Equal(t, 1.0, z.Gradient(c))

	zz := Add(z, z)
	assert.Equal(t, 4.0, zz.Gradient(b))
	assert.Equal(t, 2.0, zz.Gradient(x))
}

func TestLiveMutation(t *testing.T) {
	g := NewGraph("live")
	x := g.NewVariable(1)
	y := g.NewVariable(4)
	z := Add(x, y)
	w := Add(z, x)
	assert.Equal(t, 5.0, z.Value())
	assert.Equal(t, 6.0, w.Value())

	// Downstream variables observe the current value of their inputs.
	x.SetValue(10)
	assert.Equal(t, 14.0, z.Value())
	assert.Equal(t, 24.0, w.Value())
	assert.Equal(t, 2.0, w.Gradient(x))

	// Setting the literal of a derived variable doesn't change its value.
	z.SetValue(100)
	assert.Equal(t, 14.0, z.Value())
	assert.Equal(t, 100.0, z.Literal())
}

func TestAddN(t *testing.T) {
	g := NewGraph("addn")
	x := g.NewVariable(1)
	y := g.NewVariable(2)
	assert.Same(t, x, AddN(x))
	s := AddN(x, y, x, x)
	assert.Equal(t, 5.0, s.Value())
	assert.Equal(t, 3.0, s.Gradient(x))
	assert.Equal(t, 1.0, s.Gradient(y))
	require.Panics(t, func() { AddN() })
}

func TestAddInvalid(t *testing.T) {
	g := NewGraph("a")
	x := g.NewVariable(1)
	other := NewGraph("b").NewVariable(2)
	require.Panics(t, func() { Add(x, other) })
	require.Panics(t, func() { Add(x, nil) })
	require.Panics(t, func() { Add(nil, x) })
	require.Panics(t, func() { Apply(OperatorInvalid, x, x) })
	assert.Equal(t, 1, g.NumVariables())
}

func TestOperatorRegistration(t *testing.T) {
	// A "twice" unary operator following the composition protocol: its local derivative is 2, so each
	// copied gradient-expression is added twice.
	const operatorTwice = OperatorType(1000)
	OperatorRegistration[operatorTwice] = func(z, x, _ *Variable) {
		z.AddValueExpression(SumLeft(x.Handle(), x.Handle()))
		z.AddValueExpression(SumRight(x.Handle(), x.Handle()))
		for _, key := range x.Dependencies() {
			on := x.Graph().VariableByHandle(key)
			exprs := x.GradientExpressions(on)
			z.AddGradientExpressions(key, exprs...)
			z.AddGradientExpressions(key, exprs...)
		}
	}
	defer delete(OperatorRegistration, operatorTwice)

	g := NewGraph("twice")
	x := g.NewVariable(3)
	y := g.NewVariable(1)
	z := Apply(operatorTwice, Add(x, y), nil)
	assert.Equal(t, 8.0, z.Value())
	assert.Equal(t, 2.0, z.Gradient(x))
	assert.Equal(t, 2.0, z.Gradient(y))
	assert.Equal(t, 1.0, z.Gradient(z))
}
