package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/donaldgifford/marketapi/internal/metrics"
)

// OAuth grant types accepted by the token endpoint.
const (
	GrantClientCredentials = "client_credentials"
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// Token is an OAuth token response. Application tokens only carry
// AccessToken, TokenType and ExpiresIn.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
}

func (c *Client) connect(ctx context.Context) error {
	tok, err := c.grant(ctx, url.Values{"grant_type": {GrantClientCredentials}})
	if err != nil {
		return err
	}
	c.accessToken = *tok
	return nil
}

// AccessToken returns the application token obtained by New.
func (c *Client) AccessToken() Token {
	return c.accessToken
}

// SellerToken returns the seller token, if one was obtained.
func (c *Client) SellerToken() (Token, bool) {
	if c.sellerToken == nil {
		return Token{}, false
	}
	return *c.sellerToken, true
}

// AuthorizationURL returns the page the seller's browser must visit to
// authorize the application. Empty arguments fall back to the client's
// redirect URI and the "code" response type. No request is made.
func (c *Client) AuthorizationURL(redirectURI, responseType string) string {
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}
	if responseType == "" {
		responseType = "code"
	}

	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("response_type", responseType)
	params.Set("platform_id", PlatformID)
	params.Set("redirect_uri", redirectURI)

	return c.authorizationURL + "?" + params.Encode()
}

// ExchangeCode trades the authorization code delivered to the redirect URI
// for a seller token. An empty redirectURI uses the client's.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}

	tok, err := c.grant(ctx, url.Values{
		"grant_type":   {GrantAuthorizationCode},
		"redirect_uri": {redirectURI},
		"code":         {code},
	})
	if err != nil {
		return nil, err
	}

	c.sellerToken = tok
	out := *tok
	return &out, nil
}

// Refresh renews the seller token. An empty refreshToken uses the one from
// the stored seller token; with neither it fails with ErrNothingToRefresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" && c.sellerToken != nil {
		refreshToken = c.sellerToken.RefreshToken
	}
	if refreshToken == "" {
		return nil, localError(ErrNothingToRefresh, "exchange an authorization code first")
	}

	tok, err := c.grant(ctx, url.Values{
		"grant_type":    {GrantRefreshToken},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return nil, err
	}

	c.sellerToken = tok
	out := *tok
	return &out, nil
}

func (c *Client) grant(ctx context.Context, form url.Values) (*Token, error) {
	grantType := form.Get("grant_type")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	body, err := c.post(ctx, c.tokenURL, []byte(form.Encode()), defaultHeaders())
	if err != nil {
		metrics.TokenGrantsTotal.WithLabelValues(grantType, "error").Inc()
		return nil, fmt.Errorf("%s grant: %w", grantType, err)
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		metrics.TokenGrantsTotal.WithLabelValues(grantType, "error").Inc()
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		metrics.TokenGrantsTotal.WithLabelValues(grantType, "error").Inc()
		return nil, fmt.Errorf("%s grant: %w", grantType, localError(ErrNoAccessToken, "token_type %q", tok.TokenType))
	}

	metrics.TokenGrantsTotal.WithLabelValues(grantType, "success").Inc()
	c.logger.Info("token granted",
		"grant_type", grantType,
		"scope", tok.Scope,
		"expires_in", tok.ExpiresIn,
	)

	return &tok, nil
}
