// Package credentials produces Admin API access tokens for a shop. Exactly one
// strategy is picked when the process starts; callers only see Provider.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"draftbff/pkg/logger"
	"draftbff/pkg/sessions"
)

// Strategy names how access tokens are obtained.
type Strategy string

const (
	StrategyStatic            Strategy = "static"
	StrategyClientCredentials Strategy = "client_credentials"
	StrategyTokenExchange     Strategy = "token_exchange"
	StrategySession           Strategy = "session"
)

// DefaultRefreshMargin is how long before expiry a cached token is replaced.
const DefaultRefreshMargin = 60 * time.Second

var (
	ErrUnknownStrategy = errors.New("credentials: unknown strategy")
	ErrMissingShop     = errors.New("credentials: shop is required")
	ErrNoSubjectToken  = errors.New("credentials: subject token is required")
	ErrSessionNotFound = sessions.ErrNotFound
	ErrNotConfigured   = errors.New("credentials: provider is not configured")
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyStatic:
		return StrategyStatic, nil
	case StrategyClientCredentials, "client-credentials":
		return StrategyClientCredentials, nil
	case StrategyTokenExchange, "token-exchange":
		return StrategyTokenExchange, nil
	case StrategySession, "oauth", "sessions":
		return StrategySession, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// MultiTenant reports whether the strategy serves any shop that presents a
// valid token, rather than one configured shop.
func (s Strategy) MultiTenant() bool {
	return s == StrategyTokenExchange || s == StrategySession
}

// Token is an Admin API access token. A zero ExpiresAt means it never expires.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Scope     string
}

// ValidAt reports whether the token can still be handed out at now, keeping
// margin in reserve before expiry.
func (t Token) ValidAt(now time.Time, margin time.Duration) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

func (t Token) String() string { return logger.MaskToken(t.Value) }

// Provider hands out a currently valid access token for shop. subjectToken is
// the caller's verified session token; only token exchange uses it.
type Provider interface {
	Strategy() Strategy
	AccessToken(ctx context.Context, shop, subjectToken string) (Token, error)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config selects and parameterizes the strategy.
type Config struct {
	Strategy      Strategy
	ClientID      string
	ClientSecret  string
	StaticToken   string
	Sessions      sessions.Store
	HTTPClient    HTTPDoer
	TokenURL      func(shop string) (string, error)
	RefreshMargin time.Duration
	Now           func() time.Time
	Log           *zap.SugaredLogger
}

// New builds the provider for cfg.Strategy, failing if its inputs are missing.
func New(cfg Config) (Provider, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	switch cfg.Strategy {
	case StrategyStatic:
		if strings.TrimSpace(cfg.StaticToken) == "" {
			return nil, fmt.Errorf("%w: static token is empty", ErrNotConfigured)
		}
		return &StaticProvider{token: Token{Value: strings.TrimSpace(cfg.StaticToken)}}, nil
	case StrategyClientCredentials:
		grant, err := newGrantClient(cfg)
		if err != nil {
			return nil, err
		}
		return newClientCredentialsProvider(grant, cfg.RefreshMargin, cfg.Now, cfg.Log), nil
	case StrategyTokenExchange:
		grant, err := newGrantClient(cfg)
		if err != nil {
			return nil, err
		}
		return &TokenExchangeProvider{grant: grant, log: cfg.Log}, nil
	case StrategySession:
		if cfg.Sessions == nil {
			return nil, fmt.Errorf("%w: session store is nil", ErrNotConfigured)
		}
		return &SessionProvider{store: cfg.Sessions, now: cfg.Now}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
}

// StaticProvider returns a pre-provisioned, non-expiring token.
type StaticProvider struct {
	token Token
}

func (p *StaticProvider) Strategy() Strategy { return StrategyStatic }

func (p *StaticProvider) AccessToken(context.Context, string, string) (Token, error) {
	return p.token, nil
}

// SessionProvider reads the offline token stored by the install flow.
type SessionProvider struct {
	store sessions.Store
	now   func() time.Time
}

func (p *SessionProvider) Strategy() Strategy { return StrategySession }

func (p *SessionProvider) AccessToken(ctx context.Context, shop, _ string) (Token, error) {
	if strings.TrimSpace(shop) == "" {
		return Token{}, ErrMissingShop
	}
	s, err := sessions.FindOffline(ctx, p.store, shop, p.now())
	if err != nil {
		return Token{}, err
	}
	t := Token{Value: s.AccessToken, Scope: s.Scope}
	if s.Expires != nil {
		t.ExpiresAt = *s.Expires
	}
	return t, nil
}

var (
	_ Provider = (*StaticProvider)(nil)
	_ Provider = (*SessionProvider)(nil)
	_ Provider = (*ClientCredentialsProvider)(nil)
	_ Provider = (*TokenExchangeProvider)(nil)
)
