// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph

import (
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// Evaluator evaluates values and gradients of the variables of one Graph, caching results per Handle.
//
// Variable.Value and Variable.Gradient re-evaluate the whole chain of expressions on every call, which for
// graphs with a lot of sharing grows combinatorially. Evaluator evaluates each variable at most once, and
// drops its cache whenever the Graph's version changes (that is, after any Variable.SetValue). It returns
// the same results as the unmemoized methods, up to floating point summation order.
type Evaluator struct {
	graph   *Graph
	version uint64

	values    map[Handle]float64
	gradients map[gradientKey]float64

	hits, misses int
}

type gradientKey struct {
	of, on Handle
}

// NewEvaluator creates an Evaluator for the variables of g.
func NewEvaluator(g *Graph) *Evaluator {
	g.AssertValid()
	e := &Evaluator{graph: g}
	e.Reset()
	return e
}

// Reset drops all cached results and statistics.
func (e *Evaluator) Reset() {
	e.values = make(map[Handle]float64)
	e.gradients = make(map[gradientKey]float64)
	e.version = e.graph.Version()
	e.hits, e.misses = 0, 0
}

// Stats returns the number of cache hits and misses since the Evaluator was created or Reset.
func (e *Evaluator) Stats() (hits, misses int) {
	return e.hits, e.misses
}

// sync drops the cache if the graph changed since it was filled.
func (e *Evaluator) sync() {
	version := e.graph.Version()
	if version == e.version {
		return
	}
	klog.V(2).Infof("vargraph: Graph %q changed (version %d -> %d), dropping %d cached values",
		e.graph.Name(), e.version, version, len(e.values)+len(e.gradients))
	clear(e.values)
	clear(e.gradients)
	e.version = version
}

func (e *Evaluator) checkVariable(v *Variable) {
	v.AssertValid()
	if v.graph != e.graph {
		exceptions.Panicf("Evaluator for Graph %q can't evaluate variable #%d of Graph %q",
			e.graph.Name(), v.handle, v.graph.Name())
	}
}

// Value returns the value of v, same as Variable.Value, but with memoization.
// It implements ValueReader.
func (e *Evaluator) Value(v *Variable) float64 {
	e.checkVariable(v)
	e.sync()
	if value, found := e.values[v.handle]; found {
		e.hits++
		return value
	}
	e.misses++
	contributions := make([]float64, len(v.valueExprs))
	for ii, exp := range v.valueExprs {
		contributions[ii] = exp.evalWith(e.graph, e)
	}
	value := floats.Sum(contributions)
	e.values[v.handle] = value
	return value
}

// Gradient returns the partial derivative of v with respect to `on`, same as Variable.Gradient, but with
// memoization. Variables from other graphs (or nil) yield 0.
func (e *Evaluator) Gradient(v, on *Variable) float64 {
	e.checkVariable(v)
	if on == nil || on.graph != v.graph {
		return 0
	}
	e.sync()
	key := gradientKey{of: v.handle, on: on.handle}
	if grad, found := e.gradients[key]; found {
		e.hits++
		return grad
	}
	e.misses++
	exprs := v.gradExprs[on.handle]
	contributions := make([]float64, len(exprs))
	for ii, exp := range exprs {
		contributions[ii] = exp.evalWith(e.graph, e)
	}
	grad := floats.Sum(contributions)
	e.gradients[key] = grad
	return grad
}
