// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vargraph implements a small scalar automatic differentiation engine, where both values and
// gradients are lazily evaluated expressions.
//
// The main elements in the package are:
//
//   - Graph is the arena that owns every Variable created through it. Variables are addressed by a
//     stable Handle (their index in the arena), and they are never removed.
//
//   - Variable is a node in the computation: it holds a list of value-expressions, whose sum is its
//     value, and, for every upstream Variable it depends on (including itself), a list of
//     gradient-expressions, whose sum is the partial derivative with respect to that Variable.
//
//   - Expression is a tagged deferred computation over up to two operand handles. Evaluation
//     functions are registered per ExprType in ExpressionRegistration.
//
//   - Operators (only Add for now) build new Variables by composing their operands' expressions.
//     They are registered per OperatorType in OperatorRegistration.
//
// # Live reads
//
// Expressions don't snapshot their operands: they re-read the current state of the Variables they
// reference every time they are evaluated, and there is no memoization in Variable.Value or
// Variable.Gradient. So calling Variable.SetValue on a leaf after it was used to compose other
// Variables changes the results of those downstream Variables retroactively. This is intended: one
// can build the graph once and evaluate it for different inputs. But it also means one must not
// expect a derived Variable to remember the value its inputs had when it was composed.
//
// For large graphs with a lot of sharing, see Evaluator, which caches values per Handle and is
// invalidated whenever any Variable in the Graph is changed.
//
// # Error Handling
//
// Like the rest of GoMLX, programming errors (nil variables, variables from different graphs,
// invalid handles, using a finalized Graph) "throw" errors with panic, with a stack-trace. Querying
// a gradient with respect to an unrelated Variable is not an error: it is simply 0.
//
// Nothing in this package is safe for concurrent use.
package vargraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Graph owns the Variables of a computation and the expressions connecting them.
type Graph struct {
	id   GraphId
	name string

	// variables include all variables known to Graph, indexed by their Handle.
	variables []*Variable

	// version is incremented every time the value of any Variable changes, see Evaluator.
	version uint64

	traced    bool
	finalized bool
}

// GraphId is globally unique.
type GraphId int

// Handle is a unique and stable id of a Variable within a Graph.
type Handle int

// InvalidHandle indicates the absence of an operand, or a variable that failed to be created.
const InvalidHandle = Handle(-1)

var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// NewGraph constructs an empty Graph. If name is empty, one is generated from its GraphId.
func NewGraph(name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()

	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		id:   graphCount,
		name: name,
	}
	graphCount += 1
	klog.V(1).Infof("vargraph: created Graph %q (id=%d)", g.name, g.id)
	return g
}

// WithName sets the name of the Graph.
//
// It returns the graph passed, so configuring methods can be cascaded.
func (g *Graph) WithName(name string) *Graph {
	g.AssertValid()
	g.name = name
	return g
}

// Name of the Graph.
func (g *Graph) Name() string { return g.name }

// GraphId is a globally unique id of the graph. It's a counter that starts with 0.
func (g *Graph) GraphId() GraphId { return g.id }

// Version is incremented every time the value of a Variable of the Graph is set.
func (g *Graph) Version() uint64 { return g.version }

// IsValid returns whether the Graph is not nil and has not been finalized.
func (g *Graph) IsValid() bool {
	return g != nil && !g.finalized
}

// CheckValid returns an error if the graph is nil or if it has already been finalized.
func (g *Graph) CheckValid() error {
	if g == nil {
		return errors.Errorf("the Graph is nil")
	}
	if g.finalized {
		return errors.Errorf("Graph %q has been finalized already", g.name)
	}
	return nil
}

// AssertValid panics if the graph is nil or if it has already been finalized.
func (g *Graph) AssertValid() {
	err := g.CheckValid()
	if err != nil {
		panic(err)
	}
}

// SetTraced defines whether each variable creation is traced.
// If true, every Variable will save a stack-trace of where it was created, see Variable.Trace.
//
// This is expensive, but can be handy for debugging.
func (g *Graph) SetTraced(traced bool) *Graph {
	g.AssertValid()
	g.traced = traced
	return g
}

// Finalize releases all the variables. The graph is left in an unusable state.
// It is safe to call it more than once.
func (g *Graph) Finalize() {
	if g == nil {
		return
	}
	g.variables = nil
	g.finalized = true
}

// registerVariable in the graph and returns its new Handle.
// If Graph.traced is set, it also sets Variable.trace to an error with a stack-trace.
func (g *Graph) registerVariable(v *Variable) (handle Handle) {
	g.AssertValid()
	handle = Handle(len(g.variables))
	g.variables = append(g.variables, v)
	v.graph = g
	v.handle = handle
	if g.traced {
		v.trace = errors.New("Stack-trace")
	}
	return
}

// touch marks that some value in the graph changed.
func (g *Graph) touch() {
	g.version++
}

// VariableByHandle returns the variable for the given handle.
// It panics for an invalid handle.
func (g *Graph) VariableByHandle(handle Handle) *Variable {
	g.AssertValid()
	if handle < 0 || int(handle) >= len(g.variables) {
		exceptions.Panicf("invalid request Graph.VariableByHandle(%d): Graph %q has only %d variables",
			handle, g.name, len(g.variables))
	}
	return g.variables[handle]
}

// NumVariables returns the number of variables created so far.
func (g *Graph) NumVariables() int {
	return len(g.variables)
}

// Variables return a slice of all variables, indexed by their handles.
// The slice is owned by Graph and shouldn't be changed.
func (g *Graph) Variables() []*Variable {
	return g.variables
}

// String implements fmt.Stringer, listing every variable of the graph.
func (g *Graph) String() string {
	if !g.IsValid() {
		return "Graph(invalid)"
	}
	var numValueExprs, numGradExprs int
	for _, v := range g.variables {
		numValueExprs += len(v.valueExprs)
		for _, exprs := range v.gradExprs {
			numGradExprs += len(exprs)
		}
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph %q: %s variables, %s value-expressions, %s gradient-expressions\n",
		g.name, humanize.Comma(int64(len(g.variables))),
		humanize.Comma(int64(numValueExprs)), humanize.Comma(int64(numGradExprs)))
	for _, v := range g.variables {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", v)
	}
	return sb.String()
}
