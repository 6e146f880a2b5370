// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// ExprType tags the computation an Expression performs.
type ExprType int

//go:generate go tool enumer -type ExprType -trimprefix=ExprType -text -output=gen_exprtype_enumer.go expression.go

const (
	ExprTypeInvalid ExprType = iota

	// ExprTypeLiteral evaluates to the literal currently stored in X.
	ExprTypeLiteral

	// ExprTypeConstantOne evaluates to 1. X is the variable it was seeded for (d(x)/d(x) = 1).
	ExprTypeConstantOne

	// ExprTypeSumLeft evaluates to the value of X, the left operand of a sum with Y.
	ExprTypeSumLeft

	// ExprTypeSumRight evaluates to the value of Y, the right operand of a sum with X.
	ExprTypeSumRight
)

// Expression is a deferred scalar computation over up to two operand variables, given by their handles.
// Unused operands are set to InvalidHandle.
//
// Serialized keys avoid "y", "n", "on" and "off", which YAML 1.1 reads as booleans.
//
// Expressions are plain values (no closures), so they can be inspected, compared and serialized,
// see Snapshot.
type Expression struct {
	Type ExprType `json:"type"`
	X    Handle   `json:"operand_x"`
	Y    Handle   `json:"operand_y"`
}

// ValueReader is what an ExpressionFn uses to read the value of its operands.
//
// Variable.Value reads operands directly (no caching), while Evaluator implements it with memoization.
type ValueReader interface {
	Value(v *Variable) float64
}

// ExpressionFn evaluates an expression given its operands. Absent operands are given as nil.
type ExpressionFn func(r ValueReader, x, y *Variable) float64

// ExpressionDef defines how to evaluate an ExprType.
type ExpressionDef struct {
	Eval ExpressionFn

	// NumOperands is the number of operands the expression requires: 1 for X only, 2 for X and Y.
	NumOperands int

	// ReadsValue must be set if Eval reads the value of its operands (as opposed to only its literal).
	// Such expressions can only reference variables created strictly before the variable holding them,
	// which is what guarantees that the graph has no cycles.
	ReadsValue bool
}

// ExpressionRegistration maps each expression type to its definition.
// New operators that need new kinds of expressions should add their ExprType here.
var ExpressionRegistration = map[ExprType]ExpressionDef{
	ExprTypeLiteral:     {Eval: literalExpr, NumOperands: 1},
	ExprTypeConstantOne: {Eval: constantOneExpr, NumOperands: 1},
	ExprTypeSumLeft:     {Eval: sumLeftExpr, NumOperands: 2, ReadsValue: true},
	ExprTypeSumRight:    {Eval: sumRightExpr, NumOperands: 2, ReadsValue: true},
}

func literalExpr(_ ValueReader, x, _ *Variable) float64 { return x.literal }

func constantOneExpr(_ ValueReader, _, _ *Variable) float64 { return 1 }

func sumLeftExpr(r ValueReader, x, _ *Variable) float64 { return r.Value(x) }

func sumRightExpr(r ValueReader, _, y *Variable) float64 { return r.Value(y) }

// Literal returns an expression that reads the literal of x.
func Literal(x Handle) Expression {
	return Expression{Type: ExprTypeLiteral, X: x, Y: InvalidHandle}
}

// ConstantOne returns the unit gradient expression seeded for x.
func ConstantOne(x Handle) Expression {
	return Expression{Type: ExprTypeConstantOne, X: x, Y: InvalidHandle}
}

// SumLeft returns the contribution of x to the sum x+y.
func SumLeft(x, y Handle) Expression {
	return Expression{Type: ExprTypeSumLeft, X: x, Y: y}
}

// SumRight returns the contribution of y to the sum x+y.
func SumRight(x, y Handle) Expression {
	return Expression{Type: ExprTypeSumRight, X: x, Y: y}
}

// definition returns the registered definition of the expression type, or panics.
func (e Expression) definition() ExpressionDef {
	def, found := ExpressionRegistration[e.Type]
	if !found || def.Eval == nil {
		exceptions.Panicf("no evaluation registered for expression type %s", e.Type)
	}
	return def
}

// Operands returns the variables referenced by the expression in graph g. Absent operands are returned as nil.
func (e Expression) Operands(g *Graph) (x, y *Variable) {
	if e.X != InvalidHandle {
		x = g.VariableByHandle(e.X)
	}
	if e.Y != InvalidHandle {
		y = g.VariableByHandle(e.Y)
	}
	return
}

// Eval evaluates the expression in graph g, reading the current state of its operands.
func (e Expression) Eval(g *Graph) float64 {
	return e.evalWith(g, liveReader{})
}

func (e Expression) evalWith(g *Graph, r ValueReader) float64 {
	def := e.definition()
	x, y := e.Operands(g)
	return def.Eval(r, x, y)
}

// String implements fmt.Stringer.
func (e Expression) String() string {
	switch {
	case e.X == InvalidHandle && e.Y == InvalidHandle:
		return fmt.Sprintf("%s()", e.Type)
	case e.Y == InvalidHandle:
		return fmt.Sprintf("%s(#%d)", e.Type, e.X)
	default:
		return fmt.Sprintf("%s(#%d, #%d)", e.Type, e.X, e.Y)
	}
}

// liveReader reads values without caching.
type liveReader struct{}

func (liveReader) Value(v *Variable) float64 { return v.Value() }
