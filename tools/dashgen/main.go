// Command dashgen generates the Grafana dashboard and Prometheus rules for
// the market client metrics.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/marketapi/tools/dashgen/dashboards"
	"github.com/donaldgifford/marketapi/tools/dashgen/rules"
	"github.com/donaldgifford/marketapi/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by dashgen. DO NOT EDIT.\n"

// Output paths relative to Config.OutputDir.
var (
	dashboardPath = filepath.Join("grafana", "data", "marketapi-overview.json")
	recordingPath = filepath.Join("prometheus", "marketapi-recording-rules.yaml")
	alertsPath    = filepath.Join("prometheus", "marketapi-alerts.yaml")
)

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, err := generate(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o644); err != nil { //nolint:gosec // generated files are public
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

func generate(cfg Config) ([]artifact, error) {
	var (
		out    []artifact
		result validate.Result
	)

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building dashboard: %w", err)
		}
		r := validate.Dashboard(dash, KnownMetrics)
		result.Errors = append(result.Errors, r.Errors...)
		result.Warnings = append(result.Warnings, r.Warnings...)

		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling dashboard: %w", err)
		}
		out = append(out, artifact{path: dashboardPath, data: append(data, '\n')})
	}

	if cfg.RulesEnabled {
		for _, rf := range []struct {
			path string
			cr   rules.PrometheusRule
		}{
			{path: recordingPath, cr: rules.RecordingRules()},
			{path: alertsPath, cr: rules.AlertRules()},
		} {
			r := validate.Exprs(rf.cr.Exprs(), KnownMetrics)
			result.Errors = append(result.Errors, r.Errors...)
			result.Warnings = append(result.Warnings, r.Warnings...)

			data, err := yaml.Marshal(rf.cr)
			if err != nil {
				return nil, fmt.Errorf("marshaling %s: %w", rf.path, err)
			}
			out = append(out, artifact{path: rf.path, data: append([]byte(generatedHeader), data...)})
		}
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !result.Ok() {
		return nil, errors.New("validation failed:\n  " + strings.Join(result.Errors, "\n  "))
	}
	return out, nil
}
