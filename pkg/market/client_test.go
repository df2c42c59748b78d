package market_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketapi/pkg/logger"
	"github.com/donaldgifford/marketapi/pkg/market"
)

// fakeMarket is an in-process stand-in for the token and preferences
// endpoints. Status and empty-body overrides apply to every following
// request.
type fakeMarket struct {
	srv *httptest.Server

	tokenStatus atomic.Int32
	prefStatus  atomic.Int32
	tokenEmpty  atomic.Bool
	prefEmpty   atomic.Bool
	tokenCalls  atomic.Int32
	prefCalls   atomic.Int32

	mu          sync.Mutex
	grants      []url.Values
	prefBodies  [][]byte
	prefQueries []url.Values
	prefHeaders []http.Header
}

func newFakeMarket(t *testing.T) *fakeMarket {
	t.Helper()

	f := &fakeMarket{}
	f.tokenStatus.Store(http.StatusOK)
	f.prefStatus.Store(http.StatusCreated)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", f.handleToken)
	mux.HandleFunc("POST /checkout/preferences", f.handlePreferences)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeMarket) tokenURL() string { return f.srv.URL + "/oauth/token" }

func (f *fakeMarket) preferencesURL() string { return f.srv.URL + "/checkout/preferences" }

func (f *fakeMarket) handleToken(w http.ResponseWriter, r *http.Request) {
	n := f.tokenCalls.Add(1)
	_ = r.ParseForm()

	f.mu.Lock()
	f.grants = append(f.grants, r.PostForm)
	f.mu.Unlock()

	if status := int(f.tokenStatus.Load()); status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"invalid_grant","error":"invalid_grant","status":400}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if f.tokenEmpty.Load() {
		_, _ = w.Write([]byte(`{"token_type":"bearer","expires_in":21600}`))
		return
	}
	if r.PostForm.Get("grant_type") == market.GrantClientCredentials {
		_, _ = fmt.Fprintf(w, `{"access_token":"APP_USR-app-%d","token_type":"bearer","expires_in":21600}`, n)
		return
	}
	_, _ = fmt.Fprintf(w, `{
		"access_token": "APP_USR-seller-%d",
		"token_type": "bearer",
		"expires_in": 21600,
		"scope": "offline_access read write",
		"user_id": 8675309,
		"refresh_token": "TG-refresh-%d"
	}`, n, n)
}

func (f *fakeMarket) handlePreferences(w http.ResponseWriter, r *http.Request) {
	f.prefCalls.Add(1)
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.prefBodies = append(f.prefBodies, body)
	f.prefQueries = append(f.prefQueries, r.URL.Query())
	f.prefHeaders = append(f.prefHeaders, r.Header.Clone())
	f.mu.Unlock()

	status := int(f.prefStatus.Load())
	if status != http.StatusCreated && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if f.prefEmpty.Load() {
		_, _ = w.Write([]byte(`{}`))
		return
	}
	_, _ = w.Write([]byte(`{
		"id": "8675309-4b1d",
		"collector_id": 8675309,
		"client_id": "123456",
		"init_point": "https://www.mercadopago.com.ar/checkout/v1/redirect?pref_id=8675309-4b1d",
		"sandbox_init_point": "https://sandbox.mercadopago.com.ar/checkout/v1/redirect?pref_id=8675309-4b1d",
		"operation_type": "regular_payment",
		"marketplace_fee": 5,
		"expires": false
	}`))
}

func (f *fakeMarket) lastGrant() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[len(f.grants)-1]
}

func (f *fakeMarket) lastPreference() ([]byte, url.Values, http.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prefBodies) - 1
	return f.prefBodies[i], f.prefQueries[i], f.prefHeaders[i]
}

func newTestClient(t *testing.T, f *fakeMarket, opts ...market.Option) *market.Client {
	t.Helper()

	all := append([]market.Option{
		market.WithTokenURL(f.tokenURL()),
		market.WithPreferencesURL(f.preferencesURL()),
	}, opts...)

	c, err := market.New(context.Background(), "123456", "XZY123", "http://127.0.0.1:8000/callback/", all...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		wantErr    bool
		wantStatus int
	}{
		{name: "client credentials granted", status: http.StatusOK},
		{name: "rejected credentials", status: http.StatusUnauthorized, wantErr: true, wantStatus: 401},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true, wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeMarket(t)
			f.tokenStatus.Store(int32(tt.status))

			c, err := market.New(context.Background(), "123456", "XZY123", "http://x/",
				market.WithTokenURL(f.tokenURL()),
			)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, c)
				assert.Equal(t, tt.wantStatus, market.StatusCode(err))
				assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.wantStatus))
				assert.Equal(t, int32(1), f.tokenCalls.Load(), "no retry expected")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, market.AppAuthenticated, c.State())
			assert.Equal(t, "APP_USR-app-1", c.AccessToken().AccessToken)
			_, ok := c.SellerToken()
			assert.False(t, ok)
		})
	}
}

func TestNew_RequestFormat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "my-client", r.PostForm.Get("client_id"))
		assert.Equal(t, "my-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"APP_USR-format","token_type":"bearer","expires_in":21600}`))
	}))
	defer srv.Close()

	c, err := market.New(context.Background(), "my-client", "my-secret", "http://x/",
		market.WithTokenURL(srv.URL),
	)
	require.NoError(t, err)
	assert.Equal(t, 21600, c.AccessToken().ExpiresIn)
}

func TestNew_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := market.New(context.Background(), "id", "secret", "http://x/", market.WithTokenURL(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing token response")
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	tokenURL := srv.URL
	srv.Close()

	_, err := market.New(context.Background(), "id", "secret", "http://x/", market.WithTokenURL(tokenURL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing request")
	assert.Zero(t, market.StatusCode(err))
}

func TestClient_Call(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		header     http.Header
		wantCType  string
		wantErr    bool
		wantStatus int
	}{
		{
			name:      "200 with default headers",
			status:    http.StatusOK,
			body:      `{"ok":true,"count":3}`,
			wantCType: "application/x-www-form-urlencoded",
		},
		{
			name:      "201 with json headers",
			status:    http.StatusCreated,
			body:      `{"ok":true,"count":3}`,
			header:    http.Header{"Content-Type": {"application/json"}},
			wantCType: "application/json",
		},
		{
			name:       "204 is not success",
			status:     http.StatusNoContent,
			wantErr:    true,
			wantStatus: 204,
		},
		{
			name:       "404",
			status:     http.StatusNotFound,
			body:       `{"message":"not found"}`,
			wantErr:    true,
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeMarket(t)
			c := newTestClient(t, f)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, "a=1", string(body))
				if tt.wantCType != "" {
					assert.Equal(t, tt.wantCType, r.Header.Get("Content-Type"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := c.Call(context.Background(), srv.URL+"/custom", []byte("a=1"), tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, market.StatusCode(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, true, got["ok"])
			assert.Equal(t, json.Number("3"), got["count"])
		})
	}
}

func TestClient_CallErrorCarriesBody(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := newTestClient(t, f)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad things"}`))
	}))
	defer srv.Close()

	_, err := c.Call(context.Background(), srv.URL, nil, nil)

	var apiErr *market.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad things")
}

func TestClient_CallCanceledContext(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, f.tokenURL(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Logging(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", "text")

	c := newTestClient(t, f, market.WithLogger(log))
	_, err := c.ExchangeCode(context.Background(), "TG-secret-code", "")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "market api call")
	assert.Contains(t, out, "token granted")
	assert.Contains(t, out, "grant_type=authorization_code")
	assert.NotContains(t, out, "XZY123")
	assert.NotContains(t, out, "TG-secret-code")
	assert.NotContains(t, out, "APP_USR-")
}

func TestClient_NewPreferenceSetDefaults(t *testing.T) {
	t.Parallel()

	f := newFakeMarket(t)
	c := newTestClient(t, f, market.WithPreferenceDefaults(
		market.WithDefaultCurrency("BRL"),
		market.WithExternalReference("from-client"),
	))

	set := c.NewPreferenceSet()
	assert.Equal(t, "BRL", set.Currency())
	assert.Equal(t, "from-client", set.ExternalReference())

	override := c.NewPreferenceSet(market.WithExternalReference("from-caller"))
	assert.Equal(t, "BRL", override.Currency())
	assert.Equal(t, "from-caller", override.ExternalReference())
}

func TestAuthState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unauthenticated", market.Unauthenticated.String())
	assert.Equal(t, "app_authenticated", market.AppAuthenticated.String())
	assert.Equal(t, "seller_authenticated", market.SellerAuthenticated.String())
}
