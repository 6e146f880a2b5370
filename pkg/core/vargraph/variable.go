// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalargrad/pkg/support/sets"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// Variable is a node of the computation Graph.
//
// Its value is the sum of its value-expressions, and its partial derivative with respect to any other
// Variable of the Graph is the sum of the gradient-expressions registered under that Variable's Handle.
// Variables are identified only by their handle (and graph): two variables with the same value are
// still different variables.
//
// Leaf variables are created with Graph.NewVariable; derived variables are created by operators, like Add.
type Variable struct {
	graph  *Graph
	handle Handle

	// literal is the last value set. Only read by leaf variables (through their Literal expression).
	literal float64

	derived bool

	valueExprs []Expression

	// gradExprs maps upstream variables to the expressions whose sum is the partial derivative.
	// gradKeys keeps the insertion order of the keys, so evaluation order is reproducible.
	gradExprs map[Handle][]Expression
	gradKeys  []Handle

	trace error // Stack-trace error of where Variable was created. Stored if graph.traced is true.
}

// NewVariable creates a leaf Variable with the given literal value.
//
// Its value is the literal (d(x)/d(x) = 1), and its gradient with respect to any other variable is 0.
func (g *Graph) NewVariable(literal float64) *Variable {
	v := &Variable{
		literal:   literal,
		gradExprs: make(map[Handle][]Expression, 1),
	}
	h := g.registerVariable(v)
	v.AddValueExpression(Literal(h))
	v.AddGradientExpressions(h, ConstantOne(h))
	return v
}

// newDerived creates a Variable to be populated by an operator. It is seeded only with its own unit gradient.
func (g *Graph) newDerived() *Variable {
	v := &Variable{
		derived:   true,
		gradExprs: make(map[Handle][]Expression),
	}
	h := g.registerVariable(v)
	v.AddGradientExpressions(h, ConstantOne(h))
	return v
}

// Graph that holds this Variable.
func (v *Variable) Graph() *Graph {
	if v == nil {
		return nil
	}
	return v.graph
}

// Handle is the unique id of this variable within the Graph.
func (v *Variable) Handle() Handle {
	if v == nil {
		return InvalidHandle
	}
	return v.handle
}

// IsLeaf returns whether the variable was created from a literal, as opposed to by an operator.
func (v *Variable) IsLeaf() bool { return !v.derived }

// Literal returns the literal last set with NewVariable or SetValue.
func (v *Variable) Literal() float64 { return v.literal }

// Trace returns stack-trace in form of an error, of when the variable was created.
// Only available if enabled by `Graph.SetTraced(true)`.
func (v *Variable) Trace() error { return v.trace }

// AssertValid panics if `v` is nil, or if its graph is invalid.
func (v *Variable) AssertValid() {
	if v == nil {
		exceptions.Panicf("Variable is nil")
	}
	v.graph.AssertValid()
}

// SetValue overwrites the literal of the variable.
//
// Any Variable previously composed from this one observes the new value the next time it is evaluated:
// expressions read the current state of their operands, never a snapshot taken at composition time.
//
// Derived variables don't read their literal, so setting it has no effect on their value.
func (v *Variable) SetValue(value float64) {
	v.AssertValid()
	if v.derived {
		klog.Warningf("vargraph: SetValue(%g) on derived variable #%d has no effect on its value", value, v.handle)
	}
	v.literal = value
	v.graph.touch()
}

// Value evaluates every value-expression and returns their sum.
//
// There is no memoization: every call re-evaluates the full chain of expressions. See Evaluator
// for a cached alternative.
func (v *Variable) Value() float64 {
	v.AssertValid()
	contributions := make([]float64, len(v.valueExprs))
	for ii, exp := range v.valueExprs {
		contributions[ii] = exp.Eval(v.graph)
	}
	return floats.Sum(contributions)
}

// Gradient returns the partial derivative of v with respect to `on`: the sum of the gradient-expressions
// registered under on's handle.
//
// If v doesn't depend on `on` (including if `on` belongs to another Graph or is nil), it returns 0.
func (v *Variable) Gradient(on *Variable) float64 {
	v.AssertValid()
	if on == nil || on.graph != v.graph {
		return 0
	}
	exprs, found := v.gradExprs[on.handle]
	if !found {
		return 0
	}
	contributions := make([]float64, len(exprs))
	for ii, exp := range exprs {
		contributions[ii] = exp.Eval(v.graph)
	}
	return floats.Sum(contributions)
}

// AddValueExpression appends an expression to the value of v.
// It never replaces existing expressions: the value is always the sum of all of them.
//
// It panics if the expression references unknown variables, or if it reads the value of a variable that
// was not created before v.
func (v *Variable) AddValueExpression(exp Expression) {
	v.AssertValid()
	v.checkExpression(exp)
	v.valueExprs = append(v.valueExprs, exp)
}

// AddGradientExpressions appends the expressions to the partial derivative of v with respect to the
// variable with handle `key`. If the key is new, a new list is created (even if no expressions are given).
// Existing expressions are never replaced: accumulation is additive across calls and across the expressions
// given in one call.
func (v *Variable) AddGradientExpressions(key Handle, exps ...Expression) {
	v.AssertValid()
	if key < 0 || key > v.handle {
		exceptions.Panicf("variable #%d cannot depend on variable #%d: only on itself or variables created before it",
			v.handle, key)
	}
	for _, exp := range exps {
		v.checkExpression(exp)
	}
	existing, found := v.gradExprs[key]
	if !found {
		v.gradKeys = append(v.gradKeys, key)
		existing = make([]Expression, 0, len(exps))
	}
	v.gradExprs[key] = append(existing, exps...)
}

// checkExpression panics if the expression can't be held by v.
func (v *Variable) checkExpression(exp Expression) {
	def := exp.definition()
	if (def.NumOperands >= 1 && exp.X == InvalidHandle) || (def.NumOperands >= 2 && exp.Y == InvalidHandle) {
		exceptions.Panicf("expression %s held by variable #%d requires %d operand(s)", exp, v.handle, def.NumOperands)
	}
	for _, operand := range []Handle{exp.X, exp.Y} {
		if operand == InvalidHandle {
			continue
		}
		if operand < 0 || operand > v.handle {
			exceptions.Panicf("expression %s held by variable #%d references a variable not yet created", exp, v.handle)
		}
		if def.ReadsValue && operand == v.handle {
			exceptions.Panicf("expression %s held by variable #%d reads its own value", exp, v.handle)
		}
	}
}

// Dependencies returns the handles of the variables v holds gradient-expressions for, in the order they
// were first added. It always includes v itself.
func (v *Variable) Dependencies() []Handle {
	return append([]Handle(nil), v.gradKeys...)
}

// DependencySet returns the Dependencies as a set.
func (v *Variable) DependencySet() sets.Set[Handle] {
	return sets.MakeWith(v.gradKeys...)
}

// ValueExpressions returns a copy of the value-expressions of v.
func (v *Variable) ValueExpressions() []Expression {
	return append([]Expression(nil), v.valueExprs...)
}

// GradientExpressions returns a copy of the gradient-expressions of v with respect to `on`.
// It returns nil if v doesn't depend on `on`.
func (v *Variable) GradientExpressions(on *Variable) []Expression {
	if on == nil || on.graph != v.graph {
		return nil
	}
	exprs, found := v.gradExprs[on.handle]
	if !found {
		return nil
	}
	return append([]Expression(nil), exprs...)
}

// String implements fmt.Stringer. It doesn't evaluate the variable.
func (v *Variable) String() string {
	if v == nil {
		return "Variable(nil)"
	}
	kind := "leaf"
	if v.derived {
		kind = "derived"
	}
	parts := make([]string, 0, len(v.valueExprs))
	for _, exp := range v.valueExprs {
		parts = append(parts, exp.String())
	}
	return fmt.Sprintf("#%d(%s) value=[%s] deps=%v", v.handle, kind, strings.Join(parts, " + "), v.gradKeys)
}
