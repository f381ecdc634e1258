package lakeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/aborroy/alfresco-lake-bridge/internal/errs"
)

// tokenRefreshSkew is how far ahead of expiry a cached token is refreshed.
const tokenRefreshSkew = 60 * time.Second

// Client is a typed wrapper over the content lake's REST API. Authentication
// is OAuth2 Resource-Owner-Password; every request carries a bearer token
// and a Repository selector header.
type Client struct {
	baseURL      string
	repositoryID string
	httpClient   *http.Client

	oauthConfig *oauth2.Config
	username    string
	password    string

	tokenMu sync.Mutex
	token   *oauth2.Token
}

// Option configures Client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// Config carries the IdP settings used for the Resource-Owner-Password
// grant.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// New constructs a content lake client.
func New(baseURL, repositoryID string, idp Config, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		repositoryID: repositoryID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		username:     idp.Username,
		password:     idp.Password,
		oauthConfig: &oauth2.Config{
			ClientID:     idp.ClientID,
			ClientSecret: idp.ClientSecret,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				TokenURL: idp.TokenURL,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// accessToken returns a valid bearer token, acquiring or refreshing it under
// a mutex when the cached one is within tokenRefreshSkew of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != nil && time.Now().Before(c.token.Expiry.Add(-tokenRefreshSkew)) {
		return c.token.AccessToken, nil
	}

	tok, err := c.oauthConfig.PasswordCredentialsToken(ctx, c.username, c.password)
	if err != nil {
		return "", fmt.Errorf("acquire lake access token: %w", errs.ErrAuthenticationFailed)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// Ping verifies the configured credentials still mint a valid access token
// (a cached, unexpired token is reused without any request). It contacts
// only the identity provider, not the lake's document API.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.accessToken(ctx)
	return err
}

// newRequest builds a request carrying the bearer token and Repository
// selector header, the content lake's standard interceptor behavior.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Repository", c.repositoryID)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content lake request failed: %w", errs.ErrTransientBackend)
	}
	return resp, nil
}

// classify maps a non-2xx response to the taxonomy in errs, but lets the
// caller special-case 404/409 where those are expected outcomes rather than
// hard failures (existsByPath, createFolder).
func classify(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	if e := errs.Classify(resp.StatusCode); e != nil {
		return fmt.Errorf("content lake returned %s: %w", resp.Status, e)
	}
	return fmt.Errorf("content lake returned unexpected status %s", resp.Status)
}

func decodeJSON(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode content lake response: %w", err)
	}
	return nil
}

func marshalBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return bytes.NewReader(b), nil
}
