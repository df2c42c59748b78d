package market_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketapi/internal/metrics"
	"github.com/donaldgifford/marketapi/pkg/market"
)

func sellerClient(t *testing.T, f *fakeMarket, opts ...market.Option) *market.Client {
	t.Helper()

	c := newTestClient(t, f, opts...)
	_, err := c.ExchangeCode(context.Background(), "TG-abc", "")
	require.NoError(t, err)
	return c
}

func mateSet(t *testing.T, c *market.Client) *market.PreferenceSet {
	t.Helper()

	set := c.NewPreferenceSet(market.WithExternalReference("order-42"))
	_, err := set.AddMany(
		market.NewItem("1", "Mate", decimal.NewFromInt(1500)),
		market.NewItem("2", "Bombilla", decimal.RequireFromString("850.25"), market.WithQuantity(2)),
	)
	require.NoError(t, err)
	return set
}

func TestClient_SubmitBeforeSellerAuth(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := newTestClient(t, f)

	_, err := c.Submit(context.Background(), mateSet(t, c))
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNotAuthenticated)
	assert.Zero(t, market.StatusCode(err))
	assert.Zero(t, f.prefCalls.Load())

	_, err = c.PreferenceID()
	assert.ErrorIs(t, err, market.ErrNoPreference)
}

func TestClient_SubmitNilSet(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)

	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.Zero(t, f.prefCalls.Load())
}

func TestClient_Submit(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)

	pref, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)
	assert.Equal(t, "8675309-4b1d", pref.StringValue("id"))

	body, query, header := f.lastPreference()
	assert.Equal(t, "APP_USR-seller-2", query.Get("access_token"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "application/json", header.Get("Accept"))

	assert.JSONEq(t, `{
		"items": [
			{"id": "1", "title": "Mate", "description": "", "quantity": 1, "unit_price": 1500, "currency_id": "ARS", "picture_url": ""},
			{"id": "2", "title": "Bombilla", "description": "", "quantity": 2, "unit_price": 850.25, "currency_id": "ARS", "picture_url": ""}
		],
		"external_reference": "order-42",
		"payer": {},
		"marketplace_fee": 5,
		"payment_methods": {
			"excluded_payment_methods": [],
			"excluded_payment_types": [],
			"installments": 1
		}
	}`, string(body))

	id, err := c.PreferenceID()
	require.NoError(t, err)
	assert.Equal(t, "8675309-4b1d", id)

	collector, err := c.CollectorID()
	require.NoError(t, err)
	assert.Equal(t, "8675309", collector)

	initPoint, err := c.InitPoint()
	require.NoError(t, err)
	assert.Equal(t, "https://www.mercadopago.com.ar/checkout/v1/redirect?pref_id=8675309-4b1d", initPoint)

	sandbox, err := c.SandboxInitPoint()
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.mercadopago.com.ar/checkout/v1/redirect?pref_id=8675309-4b1d", sandbox)

	fee, err := c.PreferenceAttr("marketplace_fee")
	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), fee)

	missing, err := c.PreferenceAttr("no_such_key")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_SubmitReturnsCopy(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)

	pref, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)

	pref["id"] = "tampered"
	stored := c.SellerPreference()
	stored["init_point"] = "tampered"

	id, err := c.PreferenceID()
	require.NoError(t, err)
	assert.Equal(t, "8675309-4b1d", id)

	initPoint, err := c.InitPoint()
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", initPoint)
}

func TestClient_SubmitFailureKeepsPreviousPreference(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)

	_, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)

	f.prefStatus.Store(http.StatusInternalServerError)

	pref, err := c.Submit(context.Background(), mateSet(t, c))
	require.Error(t, err)
	assert.Nil(t, pref)
	assert.Equal(t, http.StatusInternalServerError, market.StatusCode(err))
	assert.Contains(t, err.Error(), "creating preference")

	id, err := c.PreferenceID()
	require.NoError(t, err)
	assert.Equal(t, "8675309-4b1d", id)
}

func TestClient_SubmitFirstFailureLeavesNoPreference(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)
	f.prefStatus.Store(http.StatusBadRequest)

	_, err := c.Submit(context.Background(), mateSet(t, c))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, market.StatusCode(err))

	assert.Nil(t, c.SellerPreference())
	_, err = c.PreferenceAttr("id")
	assert.ErrorIs(t, err, market.ErrNoPreference)
}

func TestClient_SubmitEmptyResource(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)
	f.prefEmpty.Store(true)

	pref, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)
	assert.Empty(t, pref)

	_, err = c.PreferenceID()
	assert.ErrorIs(t, err, market.ErrNoPreference)
	_, err = c.PreferenceAttr("init_point")
	assert.ErrorIs(t, err, market.ErrNoPreference)
}

func TestClient_SubmitInvalidItem(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)

	set := c.NewPreferenceSet()
	_, err := set.Add(market.NewItem("1", "Mate", decimal.NewFromInt(1), market.WithQuantity(0)), false)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), set)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvalidItem)
	assert.Zero(t, f.prefCalls.Load())
}

func TestClient_SubmitAcceptsOK(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := sellerClient(t, f)
	f.prefStatus.Store(http.StatusOK)

	_, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)
}

// Not parallel: reads package-level counters.
func TestClient_SubmitMetrics(t *testing.T) {
	f := newFakeMarket(t)
	c := sellerClient(t, f)

	submitted := testutil.ToFloat64(metrics.PreferencesSubmittedTotal)
	created := testutil.ToFloat64(metrics.APICallsTotal.WithLabelValues("/checkout/preferences", "201"))
	grants := testutil.ToFloat64(metrics.TokenGrantsTotal.WithLabelValues("refresh_token", "success"))
	itemsBefore := histogramOf(t, metrics.PreferenceItems)

	_, err := c.Submit(context.Background(), mateSet(t, c))
	require.NoError(t, err)
	_, err = c.Refresh(context.Background(), "")
	require.NoError(t, err)

	assert.InDelta(t, submitted+1, testutil.ToFloat64(metrics.PreferencesSubmittedTotal), 0)
	assert.InDelta(t, created+1,
		testutil.ToFloat64(metrics.APICallsTotal.WithLabelValues("/checkout/preferences", "201")), 0)
	assert.InDelta(t, grants+1,
		testutil.ToFloat64(metrics.TokenGrantsTotal.WithLabelValues("refresh_token", "success")), 0)

	itemsAfter := histogramOf(t, metrics.PreferenceItems)
	assert.Equal(t, itemsBefore.GetSampleCount()+1, itemsAfter.GetSampleCount())
	assert.InDelta(t, itemsBefore.GetSampleSum()+2, itemsAfter.GetSampleSum(), 0)
}

func histogramOf(t *testing.T, h interface{ Write(*dto.Metric) error }) *dto.Histogram {
	t.Helper()

	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram()
}

func TestPreference_StringValue(t *testing.T) {
	t.Parallel()

	p := market.Preference{
		"id":           "abc",
		"collector_id": json.Number("42"),
		"expires":      false,
		"notification": nil,
	}

	assert.Equal(t, "abc", p.StringValue("id"))
	assert.Equal(t, "42", p.StringValue("collector_id"))
	assert.Equal(t, "false", p.StringValue("expires"))
	assert.Empty(t, p.StringValue("notification"))
	assert.Empty(t, p.StringValue("missing"))

	v, ok := p.Get("expires")
	assert.True(t, ok)
	assert.Equal(t, false, v)
	_, ok = p.Get("missing")
	assert.False(t, ok)
}
