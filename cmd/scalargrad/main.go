// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// scalargrad evaluates an addition-only expression and its gradients with respect to each of its variables.
//
// Example:
//
//	scalargrad -vars "x=1,y=2" -expr "x + y + x" -set "x=10"
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalargrad/pkg/core/vargraph"
	"github.com/gomlx/scalargrad/pkg/frontend/celexpr"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagVars = flag.String("vars", "", "Comma-separated list of the leaf variables and their values, "+
		"e.g. \"x=3,y=4\".")
	flagExpr = flag.String("expr", "", "Expression to evaluate, in CEL syntax using only \"+\", "+
		"e.g. \"x + y + x\". Numeric literals are allowed.")
	flagSet = flag.String("set", "", "Comma-separated list of new values for leaf variables, applied after "+
		"the expression is built. The report is repeated with the new values.")
	flagMemoize = flag.Bool("memoize", false, "Evaluate with a caching Evaluator, instead of re-evaluating "+
		"the chain of expressions for every query.")
	flagGraph    = flag.Bool("graph", false, "Print all the variables of the graph.")
	flagSnapshot = flag.String("snapshot", "", "If set, save a YAML snapshot of the graph to the given file.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *flagExpr == "" {
		klog.Errorf("Missing -expr. See 'scalargrad -help'.")
		os.Exit(1)
	}
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'scalargrad -help'.", flag.Args())
		os.Exit(1)
	}
	err := exceptions.TryCatch[error](func() { must.M(run(os.Stdout)) })
	if err != nil {
		klog.Fatalf("scalargrad failed: %+v", err)
	}
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// evaluator is implemented by vargraph.Evaluator and by liveEvaluator.
type evaluator interface {
	Value(v *vargraph.Variable) float64
	Gradient(v, on *vargraph.Variable) float64
}

// liveEvaluator uses the unmemoized Variable methods.
type liveEvaluator struct{}

func (liveEvaluator) Value(v *vargraph.Variable) float64 { return v.Value() }

func (liveEvaluator) Gradient(v, on *vargraph.Variable) float64 { return v.Gradient(on) }

func run(w io.Writer) error {
	leaves, err := parseAssignments(*flagVars)
	if err != nil {
		return errors.WithMessage(err, "flag -vars")
	}
	updates, err := parseAssignments(*flagSet)
	if err != nil {
		return errors.WithMessage(err, "flag -set")
	}

	g := vargraph.NewGraph("scalargrad")
	bindings := make(celexpr.Bindings, len(leaves))
	for _, leaf := range leaves {
		bindings[leaf.name] = g.NewVariable(leaf.value)
	}
	result, err := celexpr.Parse(g, *flagExpr, bindings)
	if err != nil {
		return err
	}

	var eval evaluator = liveEvaluator{}
	var memo *vargraph.Evaluator
	if *flagMemoize {
		memo = vargraph.NewEvaluator(g)
		eval = memo
	}
	report(w, "Result", leaves, bindings, result, eval, memo)

	if len(updates) > 0 {
		for _, update := range updates {
			v, found := bindings[update.name]
			if !found {
				return errors.Errorf("flag -set: unknown variable %q", update.name)
			}
			v.SetValue(update.value)
		}
		report(w, fmt.Sprintf("After -set %s", *flagSet), leaves, bindings, result, eval, memo)
	}

	if *flagGraph {
		fmt.Fprintln(w, titleStyle.Render("Graph"))
		fmt.Fprintln(w, g)
	}

	if *flagSnapshot != "" {
		data := must.M1(g.Snapshot().YAML())
		if err := os.WriteFile(*flagSnapshot, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write snapshot to %q", *flagSnapshot)
		}
		klog.Infof("Snapshot of %s variables saved to %q", humanize.Comma(int64(g.NumVariables())), *flagSnapshot)
	}
	return nil
}

func report(w io.Writer, title string, leaves []assignment, bindings celexpr.Bindings, result *vargraph.Variable,
	eval evaluator, memo *vargraph.Evaluator) {
	fmt.Fprintln(w, titleStyle.Render(title))
	table := newTable().Headers("Quantity", "Value").
		Rows(reportRows(leaves, bindings, result, eval, memo)...)
	fmt.Fprintln(w, table.Render())
}

// reportRows lists the value of result and its gradient with respect to each leaf.
func reportRows(leaves []assignment, bindings celexpr.Bindings, result *vargraph.Variable,
	eval evaluator, memo *vargraph.Evaluator) [][]string {
	rows := [][]string{{*flagExpr, fmt.Sprintf("%g", eval.Value(result))}}
	for _, leaf := range leaves {
		v := bindings[leaf.name]
		rows = append(rows, []string{
			fmt.Sprintf("d/d%s (%s=%g)", leaf.name, leaf.name, v.Literal()),
			fmt.Sprintf("%g", eval.Gradient(result, v)),
		})
	}
	rows = append(rows, []string{"# dependencies", humanize.Comma(int64(len(result.Dependencies())))})
	if memo != nil {
		hits, misses := memo.Stats()
		rows = append(rows, []string{"cache hits/misses",
			fmt.Sprintf("%s / %s", humanize.Comma(int64(hits)), humanize.Comma(int64(misses)))})
	}
	return rows
}
