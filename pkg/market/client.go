// Package market provides a small client for the MercadoPago marketplace
// API: OAuth token exchange for the application and its sellers, and
// checkout preference creation from locally built items.
//
// A Client holds per-seller state (tokens and the last created preference)
// and is not safe for concurrent use. Use one Client per seller session or
// serialize access externally.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/donaldgifford/marketapi/internal/metrics"
	"github.com/donaldgifford/marketapi/pkg/logger"
)

const (
	defaultTokenURL         = "https://api.mercadolibre.com/oauth/token" //nolint:gosec // not a credential
	defaultAuthorizationURL = "https://auth.mercadolibre.com.ar/authorization"
	defaultPreferencesURL   = "https://api.mercadolibre.com/checkout/preferences"
	defaultHTTPTimeout      = 10 * time.Second

	// PlatformID is sent with every authorization redirect.
	PlatformID = "mp"
)

// AuthState is the OAuth state of a Client.
type AuthState int

// OAuth states. A constructed Client is at least AppAuthenticated.
const (
	Unauthenticated AuthState = iota
	AppAuthenticated
	SellerAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case AppAuthenticated:
		return "app_authenticated"
	case SellerAuthenticated:
		return "seller_authenticated"
	default:
		return "unauthenticated"
	}
}

// Client talks to the marketplace on behalf of one application and, once
// authorized, one seller.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string

	tokenURL         string
	authorizationURL string
	preferencesURL   string
	client           *http.Client
	logger           *slog.Logger
	rateLimiter      *RateLimiter
	preferenceOpts   []PreferenceOption

	accessToken Token
	sellerToken *Token
	preference  Preference
}

// Option configures the Client.
type Option func(*Client)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) {
		c.tokenURL = u
	}
}

// WithAuthorizationURL overrides the base of the authorization redirect.
func WithAuthorizationURL(u string) Option {
	return func(c *Client) {
		c.authorizationURL = u
	}
}

// WithPreferencesURL overrides the preferences endpoint.
func WithPreferencesURL(u string) Option {
	return func(c *Client) {
		c.preferencesURL = u
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRateLimiter makes every remote call wait on r first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// WithPreferenceDefaults sets options applied to every set created by
// Client.NewPreferenceSet, before the caller's own options.
func WithPreferenceDefaults(opts ...PreferenceOption) Option {
	return func(c *Client) {
		c.preferenceOpts = append(c.preferenceOpts, opts...)
	}
}

// New creates a Client and obtains an application token with the client
// credentials grant. It fails if the token endpoint rejects the request.
func New(
	ctx context.Context,
	clientID, clientSecret, redirectURI string,
	opts ...Option,
) (*Client, error) {
	c := &Client{
		clientID:         clientID,
		clientSecret:     clientSecret,
		redirectURI:      redirectURI,
		tokenURL:         defaultTokenURL,
		authorizationURL: defaultAuthorizationURL,
		preferencesURL:   defaultPreferencesURL,
		client:           &http.Client{Timeout: defaultHTTPTimeout},
		logger:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// State reports how far the OAuth flow has progressed.
func (c *Client) State() AuthState {
	switch {
	case c.sellerToken != nil:
		return SellerAuthenticated
	case c.accessToken.AccessToken != "":
		return AppAuthenticated
	default:
		return Unauthenticated
	}
}

// NewPreferenceSet creates a set carrying the client's preference defaults
// followed by opts.
func (c *Client) NewPreferenceSet(opts ...PreferenceOption) *PreferenceSet {
	all := make([]PreferenceOption, 0, len(c.preferenceOpts)+len(opts))
	all = append(all, c.preferenceOpts...)
	all = append(all, opts...)
	return NewPreferenceSet(all...)
}

func defaultHeaders() http.Header {
	return http.Header{
		"Accept":       {"application/json"},
		"Content-Type": {"application/x-www-form-urlencoded"},
	}
}

func jsonHeaders() http.Header {
	h := defaultHeaders()
	h.Set("Content-Type", "application/json")
	return h
}

// Call POSTs body to endpoint and decodes the JSON response. A nil header
// sends the default form headers. Only 200 and 201 count as success; any
// other status returns an *Error carrying it. JSON numbers are decoded as
// json.Number.
func (c *Client) Call(
	ctx context.Context,
	endpoint string,
	body []byte,
	header http.Header,
) (map[string]any, error) {
	data, err := c.post(ctx, endpoint, body, header)
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return out, nil
}

// post is the single place where requests leave the client.
func (c *Client) post(
	ctx context.Context,
	endpoint string,
	body []byte,
	header http.Header,
) ([]byte, error) {
	label := endpointLabel(endpoint)

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.DailyLimitHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.DailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if header == nil {
		header = defaultHeaders()
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.APICallErrorsTotal.WithLabelValues(label).Inc()
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APICallErrorsTotal.WithLabelValues(label).Inc()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	elapsed := time.Since(start)
	metrics.APICallDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	metrics.APICallsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug("market api call",
		"method", http.MethodPost,
		"endpoint", label,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("market api call rejected", "endpoint", label, "status", resp.StatusCode)
		return nil, statusError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// endpointLabel keeps only the path so query credentials never reach logs
// or metric labels.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
