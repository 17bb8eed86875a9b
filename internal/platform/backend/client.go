// Package backend is the JSON client for the medical-records REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/session"
)

const maxBodyBytes = 4 << 20

// Template is an endpoint path containing an {id} placeholder.
type Template string

// Expand substitutes id for every {id} in the template.
func (t Template) Expand(id string) string {
	return strings.ReplaceAll(string(t), "{id}", url.PathEscape(id))
}

// Client issues requests against the backend base URL. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	observe Observer
}

// Observer is told about every completed backend call. status is zero when
// no response arrived.
type Observer func(method string, status int, latency time.Duration, err error)

func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout
	return NewWithHTTPClient(baseURL, hc, logger)
}

func NewWithHTTPClient(baseURL string, hc *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// Observe installs fn as the call observer. It must be called before the
// client is shared.
func (c *Client) Observe(fn Observer) { c.observe = fn }

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path, token string, out any) error {
	return c.Do(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) Post(ctx context.Context, path, token string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, token, in, out)
}

func (c *Client) Put(ctx context.Context, path, token string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, token, in, out)
}

func (c *Client) Delete(ctx context.Context, path, token string) error {
	return c.Do(ctx, http.MethodDelete, path, token, nil, nil)
}

// Do sends one request. A non-empty token is sent as a bearer credential.
// in is JSON-encoded when non-nil; a 2xx body is decoded into out when out
// is non-nil and the body is not empty.
func (c *Client) Do(ctx context.Context, method, path, token string, in, out any) error {
	return c.do(ctx, method, path, token, in, out, false)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any, login bool) (err error) {
	var status int
	if c.observe != nil {
		began := time.Now()
		defer func() { c.observe(method, status, time.Since(began), err) }()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %w", ErrNetwork, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrNetwork, method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, path, errorMessage(data), login)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("malformed backend response")
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// errorMessage extracts the backend's {"message": ...} body, if any.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

// Credentials is the login request body.
type Credentials struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// Login exchanges credentials for a session. Rejected credentials return an
// error matching ErrAuthentication.
func (c *Client) Login(ctx context.Context, creds Credentials) (*session.Session, error) {
	var sess session.Session
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", creds, &sess, true); err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		c.logger.Warn().Msg("login response carried no access token")
		return nil, fmt.Errorf("%w: login response has no access token", ErrMalformedResponse)
	}
	return &sess, nil
}

// Ping checks that the backend answers the public doctor listing.
func (c *Client) Ping(ctx context.Context) error {
	return c.Get(ctx, "/v1/doctor/list", "", nil)
}
