// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package celexpr builds vargraph computations from textual expressions written in CEL
// (https://cel.dev) syntax, like "x + y + x + 2.5".
//
// Only the operators implemented by vargraph are accepted (currently only "+"). Identifiers are resolved
// to the variables given in the bindings, and numeric literals become new leaf variables.
package celexpr

import (
	"github.com/gomlx/scalargrad/pkg/core/vargraph"
	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Bindings map identifiers used in an expression to variables.
type Bindings map[string]*vargraph.Variable

// Parse parses source and builds the corresponding variables in g, returning the variable holding the result.
//
// It returns an error for syntax errors, unknown identifiers, unsupported operators or literals. The whole
// expression is checked before any variable is created, so a failed Parse leaves g unchanged.
func Parse(g *vargraph.Graph, source string, bindings Bindings) (*vargraph.Variable, error) {
	if err := g.CheckValid(); err != nil {
		return nil, err
	}
	env, err := cel.NewEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}
	parsed, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "failed to parse expression %q", source)
	}
	b := &builder{graph: g, bindings: bindings}
	root := parsed.NativeRep().Expr()
	if err := b.check(root); err != nil {
		return nil, errors.WithMessagef(err, "in expression %q", source)
	}
	v := b.build(root)
	klog.V(1).Infof("celexpr: %q built as variable #%d, %d leaves created for literals", source, v.Handle(), b.numLiterals)
	return v, nil
}

type builder struct {
	graph       *vargraph.Graph
	bindings    Bindings
	numLiterals int
}

// check validates e recursively, without creating any variables.
func (b *builder) check(e celast.Expr) error {
	switch e.Kind() {
	case celast.IdentKind:
		name := e.AsIdent()
		v, found := b.bindings[name]
		if !found || v == nil {
			return errors.Errorf("unknown variable %q", name)
		}
		if v.Graph() != b.graph {
			return errors.Errorf("variable %q belongs to a different graph", name)
		}
		return nil

	case celast.LiteralKind:
		_, err := literalValue(e)
		return err

	case celast.CallKind:
		call := e.AsCall()
		if call.FunctionName() != operators.Add || call.IsMemberFunction() || len(call.Args()) != 2 {
			return errors.Errorf("unsupported operation %q: only \"+\" is supported", call.FunctionName())
		}
		for _, arg := range call.Args() {
			if err := b.check(arg); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.Errorf("unsupported expression (kind %d): only variables, numbers and \"+\" are supported", e.Kind())
	}
}

// build creates the variables for e, which must have been validated by check.
func (b *builder) build(e celast.Expr) *vargraph.Variable {
	switch e.Kind() {
	case celast.IdentKind:
		return b.bindings[e.AsIdent()]
	case celast.LiteralKind:
		value, _ := literalValue(e)
		b.numLiterals++
		return b.graph.NewVariable(value)
	default:
		args := e.AsCall().Args()
		x := b.build(args[0])
		y := b.build(args[1])
		return vargraph.Add(x, y)
	}
}

func literalValue(e celast.Expr) (float64, error) {
	switch lit := e.AsLiteral().(type) {
	case types.Double:
		return float64(lit), nil
	case types.Int:
		return float64(lit), nil
	case types.Uint:
		return float64(lit), nil
	default:
		return 0, errors.Errorf("unsupported literal %v of type %s", e.AsLiteral().Value(), e.AsLiteral().Type().TypeName())
	}
}
