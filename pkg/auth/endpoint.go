package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Endpoints are the provider URLs the client posts to.
type Endpoints struct {
	DeviceAuthorizationURL string
	TokenURL               string
}

// DiscoverEndpoints resolves the token and device-authorization endpoints
// from the provider's OIDC discovery document.
func DiscoverEndpoints(ctx context.Context, client *http.Client, authority string) (Endpoints, error) {
	if authority == "" {
		return Endpoints{}, errors.New("authority is required")
	}
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, strings.TrimRight(authority, "/"))
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	var claims struct {
		TokenEndpoint               string `json:"token_endpoint"`
		DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return Endpoints{}, fmt.Errorf("failed to parse discovery document: %w", err)
	}
	if claims.DeviceAuthorizationEndpoint == "" {
		return Endpoints{}, errors.New("device authorization endpoint not advertised")
	}
	if claims.TokenEndpoint == "" {
		return Endpoints{}, errors.New("token endpoint not advertised")
	}
	return Endpoints{
		DeviceAuthorizationURL: claims.DeviceAuthorizationEndpoint,
		TokenURL:               claims.TokenEndpoint,
	}, nil
}

// DeviceCode is the provider's response to a device-authorization request.
type DeviceCode struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// EndpointClient performs the stateless HTTP operations of the device grant.
// It carries no retry policy; polling cadence belongs to Session and refresh
// scheduling to the account manager. Endpoints are discovered lazily on first
// use and cached, so constructing a client never touches the network.
type EndpointClient struct {
	authority string
	clientID  string
	http      *http.Client

	mu        sync.Mutex
	endpoints Endpoints
}

// EndpointOption customizes an EndpointClient.
type EndpointOption func(*EndpointClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) EndpointOption {
	return func(c *EndpointClient) { c.http = client }
}

// WithEndpoints pins the provider endpoints, skipping OIDC discovery.
func WithEndpoints(endpoints Endpoints) EndpointOption {
	return func(c *EndpointClient) { c.endpoints = endpoints }
}

// NewEndpointClient creates a client for the given provider authority.
func NewEndpointClient(authority, clientID string, opts ...EndpointOption) *EndpointClient {
	c := &EndpointClient{
		authority: authority,
		clientID:  clientID,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EndpointClient) resolveEndpoints(ctx context.Context) (Endpoints, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoints.TokenURL != "" {
		return c.endpoints, nil
	}
	endpoints, err := DiscoverEndpoints(ctx, c.http, c.authority)
	if err != nil {
		return Endpoints{}, err
	}
	c.endpoints = endpoints
	return endpoints, nil
}

// RequestDeviceCode asks the provider to start a device authorization.
func (c *EndpointClient) RequestDeviceCode(ctx context.Context, scopes []string) (*DeviceCode, error) {
	endpoints, err := c.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("client_id", c.clientID)
	if len(scopes) > 0 {
		values.Set("scope", strings.Join(scopes, " "))
	}
	resp, err := c.postForm(ctx, endpoints.DeviceAuthorizationURL, values)
	if err != nil {
		return nil, fmt.Errorf("device authorization request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, providerError(resp)
	}
	var payload DeviceCode
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse device authorization response: %w", err)
	}
	if payload.DeviceCode == "" || payload.UserCode == "" {
		return nil, errors.New("device authorization response missing codes")
	}
	return &payload, nil
}

// PollForToken attempts to exchange a device code for a token set. The four
// expected provider signals come back as a *PendingError, never as a generic
// failure.
func (c *EndpointClient) PollForToken(ctx context.Context, deviceCode string) (*oauth2.Token, error) {
	endpoints, err := c.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("grant_type", deviceGrantType)
	values.Set("device_code", deviceCode)
	values.Set("client_id", c.clientID)
	resp, err := c.postForm(ctx, endpoints.TokenURL, values)
	if err != nil {
		return nil, fmt.Errorf("device token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse device token response: %w", err)
	}
	if payload.Error != "" {
		switch payload.Error {
		case "authorization_pending":
			return nil, &PendingError{Kind: PendingAuthorization}
		case "slow_down":
			return nil, &PendingError{Kind: PendingSlowDown}
		case "authorization_declined", "access_denied":
			return nil, &PendingError{Kind: PendingDeclined}
		case "expired_token":
			return nil, &PendingError{Kind: PendingExpired}
		default:
			return nil, &ProviderError{Code: payload.Error, Description: payload.ErrorDesc, StatusCode: resp.StatusCode}
		}
	}
	return payload.token(), nil
}

// Refresh exchanges a refresh token for a fresh token set. Failures are
// always a *RefreshError; invalid_grant marks the grant as rejected while
// transport failures stay recoverable.
func (c *EndpointClient) Refresh(ctx context.Context, refreshToken string, scopes []string) (*oauth2.Token, error) {
	endpoints, err := c.resolveEndpoints(ctx)
	if err != nil {
		return nil, &RefreshError{Recoverable: true, Err: err}
	}
	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", refreshToken)
	values.Set("client_id", c.clientID)
	if len(scopes) > 0 {
		values.Set("scope", strings.Join(scopes, " "))
	}
	resp, err := c.postForm(ctx, endpoints.TokenURL, values)
	if err != nil {
		return nil, &RefreshError{Recoverable: true, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &RefreshError{Recoverable: true, Err: fmt.Errorf("failed to parse refresh response: %w", err)}
	}
	if payload.Error != "" {
		provider := &ProviderError{Code: payload.Error, Description: payload.ErrorDesc, StatusCode: resp.StatusCode}
		// Only a definitive rejection of the grant is terminal. Anything
		// else (provider outage, throttling) may clear up on retry.
		recoverable := payload.Error != "invalid_grant" && payload.Error != "invalid_token"
		return nil, &RefreshError{Recoverable: recoverable, Err: provider}
	}
	if resp.StatusCode >= 400 {
		return nil, &RefreshError{Recoverable: true, Err: fmt.Errorf("refresh failed with status %d", resp.StatusCode)}
	}
	return payload.token(), nil
}

func (c *EndpointClient) postForm(ctx context.Context, endpoint string, values url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func (p *tokenResponse) token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
	}
	if p.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return token
}

func providerError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &ProviderError{Code: payload.Error, Description: payload.ErrorDesc, StatusCode: resp.StatusCode}
	}
	return &ProviderError{Code: resp.Status, Description: strings.TrimSpace(string(body)), StatusCode: resp.StatusCode}
}

// NewHTTPClient builds an HTTP client for provider and API traffic,
// optionally trusting a custom CA bundle for on-prem installs.
func NewHTTPClient(caFile string, insecureSkipTLS bool) (*http.Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecureSkipTLS}
	if caFile != "" {
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(data); !ok {
			return nil, errors.New("failed to parse CA file")
		}
		tlsConfig.RootCAs = pool
	}
	transport := &http.Transport{TLSClientConfig: tlsConfig}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}
