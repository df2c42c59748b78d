package main

import "errors"

// KnownMetrics is the set of metric names exported by the market client
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// API call metrics.
	"marketapi_api_call_duration_seconds": true,
	"marketapi_api_calls_total":           true,
	"marketapi_api_call_errors_total":     true,

	// OAuth metrics.
	"marketapi_token_grants_total": true,

	// Preference metrics.
	"marketapi_preferences_submitted_total": true,
	"marketapi_preference_items":            true,

	// Rate limiting metrics.
	"marketapi_daily_usage":            true,
	"marketapi_daily_limit_hits_total": true,

	// Recording rules.
	"marketapi:api_calls:rate5m":             true,
	"marketapi:api_rejections:rate5m":        true,
	"marketapi:api_call_errors:rate5m":       true,
	"marketapi:token_grant_failures:rate5m":  true,
	"marketapi:preferences_submitted:rate5m": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
