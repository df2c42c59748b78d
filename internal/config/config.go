// Package config handles loading and validating the client configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Reference strategies for preference sets without an explicit reference.
const (
	ReferenceTimestamp = "timestamp"
	ReferenceUUID      = "uuid"
)

// Config is the top-level configuration.
type Config struct {
	Market      MarketConfig      `yaml:"market"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// MarketConfig holds the application credentials and endpoints.
type MarketConfig struct {
	ClientID         string          `yaml:"client_id"`
	ClientSecret     string          `yaml:"client_secret"`
	RedirectURI      string          `yaml:"redirect_uri"`
	TokenURL         string          `yaml:"token_url"`
	AuthorizationURL string          `yaml:"authorization_url"`
	PreferencesURL   string          `yaml:"preferences_url"`
	Timeout          time.Duration   `yaml:"timeout"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig paces calls to the marketplace. A zero PerSecond
// disables limiting.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// Enabled reports whether a limiter should be installed.
func (r RateLimitConfig) Enabled() bool {
	return r.PerSecond > 0
}

// PreferencesConfig holds the defaults for new preference sets.
type PreferencesConfig struct {
	CurrencyID     string `yaml:"currency_id"`
	MarketplaceFee string `yaml:"marketplace_fee"`
	Reference      string `yaml:"reference"` // timestamp, uuid
}

// Fee parses MarketplaceFee. Load has already validated it.
func (p PreferencesConfig) Fee() decimal.Decimal {
	d, err := decimal.NewFromString(p.MarketplaceFee)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyMarketDefaults(&cfg.Market)
	applyPreferencesDefaults(&cfg.Preferences)
	applyLoggingDefaults(&cfg.Logging)
}

func applyMarketDefaults(m *MarketConfig) {
	if m.TokenURL == "" {
		m.TokenURL = "https://api.mercadolibre.com/oauth/token"
	}
	if m.AuthorizationURL == "" {
		m.AuthorizationURL = "https://auth.mercadolibre.com.ar/authorization"
	}
	if m.PreferencesURL == "" {
		m.PreferencesURL = "https://api.mercadolibre.com/checkout/preferences"
	}
	if m.Timeout == 0 {
		m.Timeout = 10 * time.Second
	}
	if m.RateLimit.Enabled() && m.RateLimit.Burst == 0 {
		m.RateLimit.Burst = 1
	}
}

func applyPreferencesDefaults(p *PreferencesConfig) {
	if p.CurrencyID == "" {
		p.CurrencyID = "ARS"
	}
	if p.MarketplaceFee == "" {
		p.MarketplaceFee = "5.00"
	}
	if p.Reference == "" {
		p.Reference = ReferenceTimestamp
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Market.ClientID == "" {
		errs = append(errs, fmt.Errorf("market.client_id is required"))
	}
	if cfg.Market.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("market.client_secret is required"))
	}
	if cfg.Market.RedirectURI == "" {
		errs = append(errs, fmt.Errorf("market.redirect_uri is required"))
	}
	if cfg.Market.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("market.rate_limit.per_second must not be negative"))
	}
	if cfg.Market.RateLimit.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("market.rate_limit.daily_limit must not be negative"))
	}

	if len(cfg.Preferences.CurrencyID) != 3 {
		errs = append(errs, fmt.Errorf(
			"preferences.currency_id must be a 3-letter code (got %q)", cfg.Preferences.CurrencyID,
		))
	}
	if fee, err := decimal.NewFromString(cfg.Preferences.MarketplaceFee); err != nil {
		errs = append(errs, fmt.Errorf(
			"preferences.marketplace_fee must be a decimal (got %q)", cfg.Preferences.MarketplaceFee,
		))
	} else if fee.IsNegative() {
		errs = append(errs, fmt.Errorf("preferences.marketplace_fee must not be negative"))
	}

	switch cfg.Preferences.Reference {
	case ReferenceTimestamp, ReferenceUUID:
	default:
		errs = append(errs, fmt.Errorf(
			"preferences.reference must be one of: timestamp, uuid (got %q)",
			cfg.Preferences.Reference,
		))
	}

	return errors.Join(errs...)
}
