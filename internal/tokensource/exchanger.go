package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

// RefreshPath is the API path of the refresh-token exchange.
const RefreshPath = "/api/v1/auth/refresh"

const defaultTimeout = 30 * time.Second

// ErrMissingRefreshToken is returned by Refresh when called without a refresh token.
var ErrMissingRefreshToken = errors.New("missing refresh token")

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*exchangerConfig)

// exchangerConfig holds configuration for NewExchanger.
type exchangerConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for refresh requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) ExchangerOption {
	return func(c *exchangerConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds a single exchange. Defaults to 30 seconds.
func WithTimeout(timeout time.Duration) ExchangerOption {
	return func(c *exchangerConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Exchanger trades a refresh token for a new credential pair.
// Requests bypass the dispatcher: no bearer injection and no refresh-retry.
type Exchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewExchanger creates an Exchanger targeting baseURL + RefreshPath.
func NewExchanger(baseURL string, opts ...ExchangerOption) *Exchanger {
	cfg := &exchangerConfig{
		baseTransport: http.DefaultTransport,
		timeout:       defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Exchanger{
		config: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimSuffix(baseURL, "/") + RefreshPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		// Bounds the exchange even when the caller's context carries no deadline.
		httpClient: &http.Client{
			Timeout: cfg.timeout,
			Transport: &tokenRefreshTransport{
				base: cfg.baseTransport,
			},
		},
	}
}

// Refresh exchanges refreshToken for a new pair. The returned pair is always complete.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (tokenstore.CredentialPair, error) {
	if refreshToken == "" {
		return tokenstore.CredentialPair{}, ErrMissingRefreshToken
	}

	// oauth2 picks up the custom HTTP client from the context (oauth2.HTTPClient key).
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	token, err := e.config.TokenSource(oauthCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return tokenstore.CredentialPair{}, fmt.Errorf("refreshing credentials: %w", err)
	}

	pair := tokenstore.CredentialPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !pair.Complete() {
		return tokenstore.CredentialPair{}, fmt.Errorf("refreshing credentials: %w", tokenstore.ErrIncompletePair)
	}
	return pair, nil
}

// refreshRequest is the API's refresh request body.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the API's refresh response body.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// oauth2Response is the standard token response oauth2 understands.
type oauth2Response struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// tokenRefreshTransport converts oauth2's form-encoded refresh requests into the API's
// JSON body and maps successful JSON responses back to OAuth2 field names.
// The oauth2 package guarantees this transport only receives token endpoint requests.
type tokenRefreshTransport struct {
	base http.RoundTripper
}

// Compile-time check that tokenRefreshTransport implements http.RoundTripper.
var _ http.RoundTripper = (*tokenRefreshTransport)(nil)

// RoundTrip rewrites the request, forwards it and rewrites a 2xx response.
func (t *tokenRefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// The original body is fully consumed and replaced on the clone.
	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	formData, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}

	jsonBody, err := json.Marshal(refreshRequest{RefreshToken: formData.Get("refresh_token")})
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON request: %w", err)
	}

	newReq := req.Clone(req.Context())
	newReq.Body = io.NopCloser(bytes.NewReader(jsonBody))
	newReq.ContentLength = int64(len(jsonBody))
	newReq.Header.Set("Content-Type", "application/json")
	newReq.Header.Set("Accept", "application/json")

	resp, err := t.base.RoundTrip(newReq)
	if err != nil {
		return nil, err
	}
	// Non-2xx responses pass through; oauth2 surfaces them as *oauth2.RetrieveError.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	return rewriteResponse(resp)
}

// rewriteResponse replaces the API's camelCase body with an OAuth2 token response.
func rewriteResponse(resp *http.Response) (*http.Response, error) {
	original := resp.Body
	defer func() { _ = original.Close() }()

	var payload refreshResponse
	if err := json.NewDecoder(original).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response: %w", tokenstore.ErrIncompletePair)
	}

	rewritten, err := json.Marshal(oauth2Response{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    "Bearer",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling token response: %w", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(rewritten))
	resp.ContentLength = int64(len(rewritten))
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("Content-Length", strconv.Itoa(len(rewritten)))
	return resp, nil
}
