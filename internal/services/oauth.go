// OAuth2 authorization code client for the provider's accounts service
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/releasedash/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthOpts contains configuration options for creating an [OAuthClient].
type OAuthOpts struct {
	Provider   shared.ProviderConfig
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OAuthClient builds authorization URLs and performs token endpoint calls.
//
// Token requests authenticate with HTTP Basic (client_id:client_secret) and are bounded by a hard timeout.
// Only a 200 response from the token endpoint counts as success.
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

var _ TokenExchanger = (*OAuthClient)(nil)

// NewOAuthClient creates an [OAuthClient] from provider configuration.
func NewOAuthClient(opts OAuthOpts) (*OAuthClient, error) {
	p := opts.Provider
	if p.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if p.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if p.AuthURL == "" || p.TokenURL == "" {
		return nil, fmt.Errorf("%w: missing authorization or token endpoint", shared.ErrInvalidConfig)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = shared.DefaultTimeout
	}

	config := &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURI,
		Scopes:       p.Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &OAuthClient{
		config:     config,
		httpClient: tokenHTTPClient(opts.HTTPClient, p.ClientID, p.ClientSecret),
		timeout:    opts.Timeout,
	}, nil
}

// AuthorizationURL returns the provider's authorization endpoint with client_id, response_type=code,
// redirect_uri and scope query parameters. The state parameter is only added when non-empty.
func (c *OAuthClient) AuthorizationURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// RedirectURI returns the configured redirect URI.
func (c *OAuthClient) RedirectURI() string {
	return c.config.RedirectURL
}

// ExchangeCode trades an authorization code for a token pair with a single POST to the token endpoint.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, transportError("exchange authorization code", shared.ErrAuthExchange, err)
	}

	return pairFromToken(token), nil
}

// RefreshToken requests a new access token with grant_type=refresh_token.
//
// The returned pair carries the original refresh token when the provider did not rotate it.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	token, err := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, transportError("refresh access token", shared.ErrRefreshFailed, err)
	}

	pair := pairFromToken(token)
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (c *OAuthClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.timeout)
}

func pairFromToken(token *oauth2.Token) *TokenPair {
	pair := &TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    expiresIn(token.Extra("expires_in")),
	}
	if scope, ok := token.Extra("scope").(string); ok {
		pair.Scope = scope
	}
	return pair
}

// expiresIn reads the raw expires_in value, which is a float64 for JSON bodies and an int64 or string for
// form-encoded ones. Absent or non-positive values yield zero.
func expiresIn(raw any) time.Duration {
	var seconds int64
	switch v := raw.(type) {
	case float64:
		seconds = int64(v)
	case int64:
		seconds = v
	case int:
		seconds = int64(v)
	case json.Number:
		seconds, _ = v.Int64()
	case string:
		seconds, _ = strconv.ParseInt(v, 10, 64)
	}

	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// tokenStatusError is returned by [tokenTransport] for any token endpoint status other than 200.
type tokenStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *tokenStatusError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.StatusCode)
}

// tokenTransport sends the unescaped client credentials as HTTP Basic auth and rejects non-200 responses.
type tokenTransport struct {
	base         http.RoundTripper
	clientID     string
	clientSecret string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.clientID, t.clientSecret)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return nil, &tokenStatusError{StatusCode: resp.StatusCode, Body: body}
}

// tokenHTTPClient copies base with its transport wrapped in a [tokenTransport].
func tokenHTTPClient(base *http.Client, clientID, clientSecret string) *http.Client {
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	client := *base
	client.Transport = &tokenTransport{base: rt, clientID: clientID, clientSecret: clientSecret}
	return &client
}
