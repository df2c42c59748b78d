// Package marketapi wires configuration, logging and rate limiting into a
// ready-to-use market.Client.
package marketapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/donaldgifford/marketapi/internal/config"
	"github.com/donaldgifford/marketapi/pkg/logger"
	"github.com/donaldgifford/marketapi/pkg/market"
)

// Open loads the .env file next to the YAML config at path (if any), then
// the config itself, and returns a client that already holds an
// application token.
func Open(ctx context.Context, path string) (*market.Client, error) {
	if err := config.LoadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	return NewClient(ctx, cfg, log)
}

// NewClient builds a client from an already loaded config.
func NewClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*market.Client, error) {
	opts := ClientOptions(cfg, log)

	c, err := market.New(
		ctx,
		cfg.Market.ClientID,
		cfg.Market.ClientSecret,
		cfg.Market.RedirectURI,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to market: %w", err)
	}

	log.Info("market client ready",
		"client_id", cfg.Market.ClientID,
		"currency_id", cfg.Preferences.CurrencyID,
		"rate_limited", cfg.Market.RateLimit.Enabled(),
	)
	return c, nil
}

// ClientOptions translates cfg into market client options.
func ClientOptions(cfg *config.Config, log *slog.Logger) []market.Option {
	reference := market.TimestampReference
	if cfg.Preferences.Reference == config.ReferenceUUID {
		reference = market.UUIDReference
	}

	opts := []market.Option{
		market.WithTokenURL(cfg.Market.TokenURL),
		market.WithAuthorizationURL(cfg.Market.AuthorizationURL),
		market.WithPreferencesURL(cfg.Market.PreferencesURL),
		market.WithHTTPClient(&http.Client{Timeout: cfg.Market.Timeout}),
		market.WithLogger(log),
		market.WithPreferenceDefaults(
			market.WithDefaultCurrency(cfg.Preferences.CurrencyID),
			market.WithMarketplaceFee(cfg.Preferences.Fee()),
			market.WithReferenceFunc(reference),
		),
	}

	if rl := cfg.Market.RateLimit; rl.Enabled() {
		opts = append(opts, market.WithRateLimiter(
			market.NewRateLimiter(rl.PerSecond, rl.Burst, rl.DailyLimit),
		))
	}

	return opts
}
