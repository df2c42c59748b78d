package market

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"

	"github.com/donaldgifford/marketapi/internal/metrics"
)

// Preference is the resource returned by the marketplace after a
// preference is created. Known keys include id, collector_id, client_id,
// init_point, sandbox_init_point, items, payer, back_urls, payment_methods,
// external_reference, marketplace, marketplace_fee, date_created,
// expires, expiration_date_from, expiration_date_to, notification_url,
// operation_type, shipments, auto_return and additional_info. Numbers are
// held as json.Number.
type Preference map[string]any

// Get returns the value stored at key.
func (p Preference) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// StringValue returns the value at key rendered as a string, or "" when absent.
func (p Preference) StringValue(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Submit creates a preference from set on behalf of the authenticated
// seller and stores the returned resource. It requires a seller token.
func (c *Client) Submit(ctx context.Context, set *PreferenceSet) (Preference, error) {
	if set == nil {
		return nil, &Error{Message: "preference set must not be nil"}
	}
	if c.sellerToken == nil {
		return nil, localError(ErrNotAuthenticated, "exchange an authorization code before submitting")
	}

	payload, err := set.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serializing preference: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding preference: %w", err)
	}

	u, err := url.Parse(c.preferencesURL)
	if err != nil {
		return nil, fmt.Errorf("parsing preferences URL: %w", err)
	}
	q := u.Query()
	q.Set("access_token", c.sellerToken.AccessToken)
	u.RawQuery = q.Encode()

	data, err := c.post(ctx, u.String(), body, jsonHeaders())
	if err != nil {
		return nil, fmt.Errorf("creating preference: %w", err)
	}

	resource, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	if resource == nil {
		resource = map[string]any{}
	}
	c.preference = Preference(resource)
	metrics.PreferencesSubmittedTotal.Inc()
	metrics.PreferenceItems.Observe(float64(len(payload.Items)))
	c.logger.Info("preference created",
		"id", c.preference.StringValue("id"),
		"items", len(payload.Items),
		"external_reference", payload.ExternalReference,
	)

	return maps.Clone(c.preference), nil
}

// SellerPreference returns a copy of the last created preference, or nil.
func (c *Client) SellerPreference() Preference {
	return maps.Clone(c.preference)
}

// PreferenceAttr returns the value at key of the last created preference.
// A missing key yields nil. It fails with ErrNoPreference before Submit and
// after a Submit whose response body was empty.
func (c *Client) PreferenceAttr(key string) (any, error) {
	if len(c.preference) == 0 {
		return nil, localError(ErrNoPreference, "attribute %q", key)
	}
	return c.preference[key], nil
}

func (c *Client) stringAttr(key string) (string, error) {
	if _, err := c.PreferenceAttr(key); err != nil {
		return "", err
	}
	return c.preference.StringValue(key), nil
}

// PreferenceID returns the id assigned by the marketplace.
func (c *Client) PreferenceID() (string, error) {
	return c.stringAttr("id")
}

// CollectorID returns the marketplace account id of the seller, or "" when
// absent.
func (c *Client) CollectorID() (string, error) {
	return c.stringAttr("collector_id")
}

// InitPoint returns the checkout URL for the buyer.
func (c *Client) InitPoint() (string, error) {
	return c.stringAttr("init_point")
}

// SandboxInitPoint returns the checkout URL for test purchases.
func (c *Client) SandboxInitPoint() (string, error) {
	return c.stringAttr("sandbox_init_point")
}
