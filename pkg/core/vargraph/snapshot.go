// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vargraph

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalargrad/pkg/support/sets"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Snapshot is a serializable description of a Graph: the literals of its variables and all their
// expressions. Since expressions only hold handles, a graph can be fully rebuilt from it with Restore.
type Snapshot struct {
	Name      string             `json:"name"`
	Variables []VariableSnapshot `json:"variables"`
}

// VariableSnapshot describes one variable. Variables are listed in handle order.
type VariableSnapshot struct {
	Handle    Handle             `json:"handle"`
	Literal   float64            `json:"literal"`
	Derived   bool               `json:"derived,omitempty"`
	Values    []Expression       `json:"values"`
	Gradients []GradientSnapshot `json:"gradients"`
}

// GradientSnapshot holds the gradient-expressions of a variable with respect to the variable Wrt.
type GradientSnapshot struct {
	Wrt         Handle       `json:"wrt"`
	Expressions []Expression `json:"expressions"`
}

// Snapshot returns a description of the current state of the graph.
func (g *Graph) Snapshot() *Snapshot {
	g.AssertValid()
	s := &Snapshot{
		Name:      g.name,
		Variables: make([]VariableSnapshot, 0, len(g.variables)),
	}
	for _, v := range g.variables {
		vs := VariableSnapshot{
			Handle:    v.handle,
			Literal:   v.literal,
			Derived:   v.derived,
			Values:    v.ValueExpressions(),
			Gradients: make([]GradientSnapshot, 0, len(v.gradKeys)),
		}
		for _, key := range v.gradKeys {
			vs.Gradients = append(vs.Gradients, GradientSnapshot{
				Wrt:         key,
				Expressions: append([]Expression{}, v.gradExprs[key]...),
			})
		}
		s.Variables = append(s.Variables, vs)
	}
	return s
}

// YAML encodes the snapshot as YAML.
//
// Literals must be finite: it returns an error naming the first variable holding a NaN or ±Inf literal.
func (s *Snapshot) YAML() ([]byte, error) {
	for _, vs := range s.Variables {
		if math.IsNaN(vs.Literal) || math.IsInf(vs.Literal, 0) {
			return nil, errors.Errorf("cannot encode snapshot of graph %q: variable #%d has non-finite literal %g",
				s.Name, vs.Handle, vs.Literal)
		}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode snapshot of graph %q to YAML", s.Name)
	}
	return data, nil
}

// JSON encodes the snapshot as JSON. Same restrictions as YAML apply.
func (s *Snapshot) JSON() ([]byte, error) {
	data, err := s.YAML()
	if err != nil {
		return nil, err
	}
	data, err = yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert snapshot of graph %q to JSON", s.Name)
	}
	return data, nil
}

// ParseSnapshot decodes a snapshot encoded either in YAML or JSON. Unknown fields are an error.
//
// It doesn't validate the graph described, Restore does that.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	s := &Snapshot{}
	if err := yaml.UnmarshalStrict(data, s); err != nil {
		return nil, errors.Wrap(err, "failed to parse graph snapshot")
	}
	return s, nil
}

// Restore builds a new Graph from the snapshot.
//
// It returns an error if the snapshot doesn't describe a valid graph: handles must be listed in order,
// expressions can only reference variables created before (or, if they don't read values, equal to) the
// variable holding them, every variable must have at least one value-expression and a gradient entry on
// itself, and gradient entries can't be repeated.
func Restore(s *Snapshot) (g *Graph, err error) {
	if s == nil {
		return nil, errors.New("cannot restore a nil snapshot")
	}
	g = NewGraph(s.Name)
	err = exceptions.TryCatch[error](func() { restoreVariables(g, s) })
	if err != nil {
		g.Finalize()
		return nil, errors.WithMessagef(err, "failed to restore graph %q", s.Name)
	}
	return g, nil
}

// restoreVariables panics with an error if the snapshot is invalid.
func restoreVariables(g *Graph, s *Snapshot) {
	for ii, vs := range s.Variables {
		if vs.Handle != Handle(ii) {
			exceptions.Panicf("variable #%d listed in position %d: variables must be listed in handle order",
				vs.Handle, ii)
		}
		v := &Variable{
			literal:   vs.Literal,
			derived:   vs.Derived,
			gradExprs: make(map[Handle][]Expression, len(vs.Gradients)),
		}
		g.registerVariable(v)
		if len(vs.Values) == 0 {
			exceptions.Panicf("variable #%d has no value-expressions", vs.Handle)
		}
		for _, exp := range vs.Values {
			v.AddValueExpression(exp)
		}
		seen := sets.Make[Handle](len(vs.Gradients))
		for _, gs := range vs.Gradients {
			if seen.Has(gs.Wrt) {
				exceptions.Panicf("variable #%d has repeated gradient entries on #%d", vs.Handle, gs.Wrt)
			}
			seen.Insert(gs.Wrt)
			v.AddGradientExpressions(gs.Wrt, gs.Expressions...)
		}
		if !seen.Has(vs.Handle) {
			exceptions.Panicf("variable #%d has no gradient entry on itself", vs.Handle)
		}
	}
}
