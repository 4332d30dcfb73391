// Package authz turns an inbound request's headers into an authorized
// {shop, access token} pair, or a typed AuthError.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"draftbff/pkg/credentials"
	"draftbff/pkg/logger"
	"draftbff/pkg/sessions"
	"draftbff/pkg/sessiontoken"
	"draftbff/pkg/shop"
)

// Kind is the machine-readable reason an authorization failed.
type Kind string

const (
	MissingAuth            Kind = "missing_auth"
	InvalidToken           Kind = "invalid_token"
	NoShop                 Kind = "no_shop"
	ShopMismatch           Kind = "shop_mismatch"
	SessionNotFound        Kind = "session_not_found"
	ExchangeFailed         Kind = "exchange_failed"
	CredentialsUnavailable Kind = "credentials_unavailable"
)

// Status maps the kind onto an HTTP status. Only a failure on our side of
// the credential fetch is not the caller's fault.
func (k Kind) Status() int {
	if k == CredentialsUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

type AuthError struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

func (e *AuthError) Unwrap() error { return e.Cause }

// KindOf extracts the AuthError kind, or "" for any other error.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Context is the result of a successful authorization. It is only built by
// Authorize.
type Context struct {
	Shop        string
	AccessToken string
}

func (c Context) String() string {
	return fmt.Sprintf("{shop:%s token:%s}", c.Shop, logger.MaskToken(c.AccessToken))
}

type Authorizer struct {
	verifier *sessiontoken.Verifier
	provider credentials.Provider
	shop     string
	log      *zap.SugaredLogger
}

// New wires an authorizer. configuredShop is mandatory for single-tenant
// strategies and optional for the others; config validation enforces that.
func New(verifier *sessiontoken.Verifier, provider credentials.Provider, configuredShop string, log *zap.SugaredLogger) *Authorizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Authorizer{verifier: verifier, provider: provider, shop: shop.Normalize(configuredShop), log: log}
}

// Authorize runs the fixed check sequence and stops at the first failure.
func (a *Authorizer) Authorize(ctx context.Context, h http.Header) (Context, error) {
	bearer, ok := BearerToken(h)
	if !ok {
		return Context{}, &AuthError{Kind: MissingAuth, Detail: "missing or malformed Authorization header"}
	}

	claims, err := a.verifier.Verify(bearer)
	if err != nil {
		return Context{}, &AuthError{Kind: InvalidToken, Detail: "session token could not be verified", Cause: err}
	}

	claimed := shop.Normalize(claims.Destination())
	if claimed == "" {
		return Context{}, &AuthError{Kind: NoShop, Detail: "session token carries no shop"}
	}
	if a.shop != "" && claimed != a.shop {
		return Context{}, &AuthError{Kind: ShopMismatch, Detail: fmt.Sprintf("token issued for %s", claimed)}
	}

	tok, err := a.provider.AccessToken(ctx, claimed, bearer)
	if err != nil {
		return Context{}, a.credentialError(claimed, err)
	}
	return Context{Shop: claimed, AccessToken: tok.Value}, nil
}

func (a *Authorizer) credentialError(shopDomain string, err error) error {
	switch a.provider.Strategy() {
	case credentials.StrategySession:
		if errors.Is(err, sessions.ErrNotFound) {
			return &AuthError{
				Kind:   SessionNotFound,
				Detail: fmt.Sprintf("no offline session for %s; install the app or grant consent", shopDomain),
				Cause:  err,
			}
		}
	case credentials.StrategyTokenExchange:
		return &AuthError{Kind: ExchangeFailed, Detail: "session token exchange was rejected", Cause: err}
	}
	a.log.Errorw("access token unavailable", "shop", shopDomain, "strategy", a.provider.Strategy(), "err", err)
	return &AuthError{Kind: CredentialsUnavailable, Detail: "shop credentials are temporarily unavailable", Cause: err}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(h http.Header) (string, bool) {
	v := strings.TrimSpace(h.Get("Authorization"))
	const prefix = "bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(v[len(prefix):])
	return tok, tok != ""
}
