// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects problems found during validation. Errors fail
// generation; warnings are reported only.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// histogramSuffixes are series Prometheus derives from a histogram.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Expr parses expr and checks each selected metric against known.
func Expr(expr string, known map[string]bool) Result {
	var res Result

	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("parse %q: %v", expr, err))
		return res
	}

	parser.Inspect(parsed, func(node parser.Node, _ []parser.Node) error {
		vs, ok := node.(*parser.VectorSelector)
		if !ok {
			return nil
		}
		if vs.Name == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("selector without metric name in %q", expr))
			return nil
		}
		if !isKnown(vs.Name, known) {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown metric %q in %q", vs.Name, expr))
		}
		return nil
	})

	return res
}

// Exprs validates every expression in exprs.
func Exprs(exprs []string, known map[string]bool) Result {
	var res Result
	for _, e := range exprs {
		res.merge(Expr(e, known))
	}
	return res
}

// Dashboard validates every query expression found in a built dashboard.
func Dashboard(dash any, known map[string]bool) Result {
	data, err := json.Marshal(dash)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("marshaling dashboard: %v", err)}}
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return Result{Errors: []string{fmt.Sprintf("decoding dashboard: %v", err)}}
	}

	exprs := collectExprs(tree, nil)
	if len(exprs) == 0 {
		return Result{Warnings: []string{"dashboard has no query expressions"}}
	}
	return Exprs(exprs, known)
}

func collectExprs(node any, out []string) []string {
	switch v := node.(type) {
	case map[string]any:
		if e, ok := v["expr"].(string); ok && e != "" {
			out = append(out, e)
		}
		for _, child := range v {
			out = collectExprs(child, out)
		}
	case []any:
		for _, child := range v {
			out = collectExprs(child, out)
		}
	}
	return out
}

func isKnown(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}
