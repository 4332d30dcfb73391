// Package admingql is a minimal transport for the shop Admin GraphQL API.
// It knows nothing about draft orders; callers supply query and variables.
package admingql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"draftbff/pkg/shop"
)

const maxResponseBytes = 8 << 20

// ErrTransport is the sentinel behind every TransportError.
var ErrTransport = errors.New("admingql: upstream request failed")

// TransportError covers network failures, non-2xx responses and top-level
// GraphQL errors. Application-level userErrors are not transport errors.
type TransportError struct {
	StatusCode int
	Messages   []string
	Cause      error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("admin graphql")
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is the GraphQL request body.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type Client struct {
	http     HTTPDoer
	version  string
	buildURL func(shop, version string) (string, error)
}

type Option func(*Client)

// WithHTTPClient swaps the transport, e.g. for an otelhttp-wrapped client.
func WithHTTPClient(h HTTPDoer) Option { return func(c *Client) { c.http = h } }

// WithURLBuilder overrides endpoint construction; tests point it at httptest.
func WithURLBuilder(fn func(shop, version string) (string, error)) Option {
	return func(c *Client) { c.buildURL = fn }
}

func New(version string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{http: &http.Client{Timeout: timeout}, version: version, buildURL: EndpointURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EndpointURL returns https://<shop>/admin/api/<version>/graphql.json.
func EndpointURL(shopDomain, version string) (string, error) {
	host := shop.Normalize(shopDomain)
	if host == "" {
		return "", errors.New("admingql: empty shop")
	}
	if version == "" {
		return "", errors.New("admingql: empty api version")
	}
	return (&url.URL{Scheme: "https", Host: host, Path: "/admin/api/" + version + "/graphql.json"}).String(), nil
}

// Do executes one GraphQL request and returns the raw data object.
func (c *Client) Do(ctx context.Context, shopDomain, accessToken string, req Request) (json.RawMessage, error) {
	endpoint, err := c.buildURL(shopDomain, c.version)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Cause: fmt.Errorf("encode request: %w", err)}
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Messages: []string{snippet(raw)}}
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Messages: msgs}
	}
	return out.Data, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = http.StatusText(http.StatusInternalServerError)
	}
	return s
}
