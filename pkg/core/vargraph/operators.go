// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// OperatorType identifies an operator that composes new variables.
type OperatorType int

const (
	OperatorInvalid OperatorType = iota
	OperatorAdd
)

// String implements fmt.Stringer.
func (op OperatorType) String() string {
	switch op {
	case OperatorAdd:
		return "Add"
	default:
		return "Invalid"
	}
}

// ComposeFn populates the newly created derived variable z from its operands x and y (y is nil for
// unary operators).
//
// z is created already holding its own unit gradient. A ComposeFn must:
//
//   - add to z the value-expressions that compute the operator's result from its operands;
//   - for every key in the gradient maps of the operands, append to z the operand's expressions
//     weighted by the operator's local derivative with respect to that operand (chain rule). For
//     addition the local derivatives are 1, so expressions are copied unchanged. Multiplication
//     would weight the expressions copied from x by the value of y, and vice versa.
type ComposeFn func(z, x, y *Variable)

// OperatorRegistration maps each operator to its implementation. If implementing a new operator, add it here.
var OperatorRegistration = map[OperatorType]ComposeFn{
	OperatorAdd: composeAdd,
}

// Apply creates a new derived variable by applying the operator op to x and, for binary operators, y.
//
// It panics if the operator is not registered, or if the operands belong to different graphs.
func Apply(op OperatorType, x, y *Variable) *Variable {
	x.AssertValid()
	g := x.graph
	if y != nil {
		y.AssertValid()
		if y.graph != g {
			exceptions.Panicf("operator %s: operands belong to different graphs (%q and %q)",
				op, g.Name(), y.graph.Name())
		}
	}
	compose, found := OperatorRegistration[op]
	if !found || compose == nil {
		exceptions.Panicf("operator %s (%d) not registered", op, op)
	}
	z := g.newDerived()
	compose(z, x, y)
	if klog.V(1).Enabled() {
		klog.Infof("vargraph: #%d = %s(#%d, #%d): %d value-expressions, %d dependencies",
			z.handle, op, x.handle, y.Handle(), len(z.valueExprs), len(z.gradKeys))
	}
	return z
}

// Add returns a new variable z = x + y.
//
// The value of z is computed lazily from the current values of x and y, and the gradients of z with respect
// to any variable k are the gradients of x and y with respect to k, accumulated. So `Add(x, x)` has gradient
// 2 with respect to x.
func Add(x, y *Variable) *Variable {
	if y == nil {
		exceptions.Panicf("Add: second operand is nil")
	}
	return Apply(OperatorAdd, x, y)
}

// Add returns a new variable with v + other. See package function Add.
func (v *Variable) Add(other *Variable) *Variable {
	return Add(v, other)
}

// AddN returns the sum of all variables, added left to right. It panics if no variables are given.
//
// If only one variable is given, it is returned itself.
func AddN(variables ...*Variable) *Variable {
	if len(variables) == 0 {
		exceptions.Panicf("AddN requires at least one variable")
	}
	sum := variables[0]
	for _, v := range variables[1:] {
		sum = Add(sum, v)
	}
	return sum
}

func composeAdd(z, x, y *Variable) {
	z.AddValueExpression(SumLeft(x.handle, y.handle))
	z.AddValueExpression(SumRight(x.handle, y.handle))

	// d(x+y)/dx = d(x+y)/dy = 1: the operands' expressions are copied unweighted.
	z.mergeGradients(x)
	z.mergeGradients(y)
}

// mergeGradients appends all gradient-expressions of src into v, key by key, in src's key order.
func (v *Variable) mergeGradients(src *Variable) {
	for _, key := range src.gradKeys {
		v.AddGradientExpressions(key, src.gradExprs[key]...)
	}
}
