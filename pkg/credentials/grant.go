package credentials

import (
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

	"draftbff/pkg/shop"
)

const (
	maxGrantResponseBytes = 1 << 20
	defaultGrantTimeout   = 15 * time.Second

	grantClientCredentials  = "client_credentials"
	grantTokenExchange      = "urn:ietf:params:oauth:grant-type:token-exchange"
	subjectTokenTypeIDToken = "urn:ietf:params:oauth:token-type:id_token"
	requestedOfflineToken   = "urn:shopify:params:oauth:token-type:offline-access-token"
)

// ErrGrantFailed is the sentinel behind every GrantError.
var ErrGrantFailed = errors.New("credentials: token grant failed")

// GrantError describes a failed call to the shop's token endpoint.
type GrantError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Cause      error
}

func (e *GrantError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = "token grant failed"
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.ErrorCode != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.ErrorCode)
	}
	if e.Cause != nil && !errors.Is(e.Cause, ErrGrantFailed) {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *GrantError) Unwrap() error { return e.Cause }

func (e *GrantError) Is(target error) bool { return target == ErrGrantFailed }

// TokenURL returns https://<shop>/admin/oauth/access_token.
func TokenURL(shopDomain string) (string, error) {
	host := shop.Normalize(shopDomain)
	if host == "" {
		return "", ErrMissingShop
	}
	return (&url.URL{Scheme: "https", Host: host, Path: "/admin/oauth/access_token"}).String(), nil
}

type grantClient struct {
	clientID     string
	clientSecret string
	http         HTTPDoer
	tokenURL     func(string) (string, error)
	now          func() time.Time
}

func newGrantClient(cfg Config) (*grantClient, error) {
	id, secret := strings.TrimSpace(cfg.ClientID), strings.TrimSpace(cfg.ClientSecret)
	if id == "" || secret == "" {
		return nil, fmt.Errorf("%w: client id and client secret are required", ErrNotConfigured)
	}
	g := &grantClient{clientID: id, clientSecret: secret, http: cfg.HTTPClient, tokenURL: cfg.TokenURL, now: cfg.Now}
	if g.http == nil {
		g.http = &http.Client{Timeout: defaultGrantTimeout}
	}
	if g.tokenURL == nil {
		g.tokenURL = TokenURL
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

func (g *grantClient) clientCredentials(ctx context.Context, shopDomain string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", grantClientCredentials)
	return g.post(ctx, shopDomain, form)
}

func (g *grantClient) exchange(ctx context.Context, shopDomain, subjectToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", grantTokenExchange)
	form.Set("subject_token", subjectToken)
	form.Set("subject_token_type", subjectTokenTypeIDToken)
	form.Set("requested_token_type", requestedOfflineToken)
	return g.post(ctx, shopDomain, form)
}

func (g *grantClient) post(ctx context.Context, shopDomain string, form url.Values) (Token, error) {
	endpoint, err := g.tokenURL(shopDomain)
	if err != nil {
		return Token{}, &GrantError{Message: "resolve token url", Cause: err}
	}
	form.Set("client_id", g.clientID)
	form.Set("client_secret", g.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &GrantError{Message: "build token request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return Token{}, &GrantError{Message: "token request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGrantResponseBytes+1))
	if err != nil {
		return Token{}, &GrantError{StatusCode: resp.StatusCode, Message: "read token response", Cause: err}
	}
	if len(body) > maxGrantResponseBytes {
		return Token{}, &GrantError{StatusCode: resp.StatusCode, Message: "token response too large", Cause: ErrGrantFailed}
	}

	var payload struct {
		AccessToken      string          `json:"access_token"`
		Scope            string          `json:"scope"`
		ExpiresIn        json.RawMessage `json:"expires_in"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			if resp.StatusCode >= http.StatusMultipleChoices {
				return Token{}, &GrantError{StatusCode: resp.StatusCode, Message: "token endpoint rejected the request", Cause: ErrGrantFailed}
			}
			return Token{}, &GrantError{StatusCode: resp.StatusCode, Message: "decode token response", Cause: err}
		}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || payload.Error != "" {
		msg := strings.TrimSpace(payload.ErrorDescription)
		if msg == "" {
			msg = "token endpoint rejected the request"
		}
		return Token{}, &GrantError{StatusCode: resp.StatusCode, ErrorCode: payload.Error, Message: msg, Cause: ErrGrantFailed}
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return Token{}, &GrantError{StatusCode: resp.StatusCode, Message: "token response missing access_token", Cause: ErrGrantFailed}
	}

	t := Token{Value: strings.TrimSpace(payload.AccessToken), Scope: payload.Scope}
	if secs := parseExpiresIn(payload.ExpiresIn); secs > 0 {
		t.ExpiresAt = g.now().Add(time.Duration(secs) * time.Second)
	}
	return t, nil
}

// expires_in arrives as a number or, from some proxies, a quoted number.
func parseExpiresIn(raw json.RawMessage) int64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
