package credentials

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"draftbff/pkg/metrics"
	"draftbff/pkg/shop"
)

// TokenExchangeProvider trades the caller's verified session token for an
// offline access token on every request. Nothing is cached.
type TokenExchangeProvider struct {
	grant *grantClient
	log   *zap.SugaredLogger
}

func (p *TokenExchangeProvider) Strategy() Strategy { return StrategyTokenExchange }

func (p *TokenExchangeProvider) AccessToken(ctx context.Context, shopDomain, subjectToken string) (Token, error) {
	key := shop.Normalize(shopDomain)
	if key == "" {
		return Token{}, ErrMissingShop
	}
	if strings.TrimSpace(subjectToken) == "" {
		return Token{}, ErrNoSubjectToken
	}
	t, err := p.grant.exchange(ctx, key, strings.TrimSpace(subjectToken))
	metrics.TokenAcquisitions.WithLabelValues(string(StrategyTokenExchange), metrics.Outcome(err)).Inc()
	if err != nil {
		p.log.Warnw("token exchange failed", "shop", key, "err", err)
		return Token{}, err
	}
	return t, nil
}
