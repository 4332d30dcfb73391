package credentials

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"draftbff/pkg/metrics"
	"draftbff/pkg/shop"
)

// ClientCredentialsProvider acquires tokens with the client-credentials grant
// and keeps one cached token per shop. The lock is never held across the
// network call, so concurrent misses may each hit the token endpoint.
type ClientCredentialsProvider struct {
	grant  *grantClient
	margin time.Duration
	now    func() time.Time
	log    *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string]Token
}

func newClientCredentialsProvider(grant *grantClient, margin time.Duration, now func() time.Time, log *zap.SugaredLogger) *ClientCredentialsProvider {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &ClientCredentialsProvider{grant: grant, margin: margin, now: now, log: log, cache: map[string]Token{}}
}

func (p *ClientCredentialsProvider) Strategy() Strategy { return StrategyClientCredentials }

func (p *ClientCredentialsProvider) AccessToken(ctx context.Context, shopDomain, _ string) (Token, error) {
	key := shop.Normalize(shopDomain)
	if key == "" {
		return Token{}, ErrMissingShop
	}

	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && cached.ValidAt(p.now(), p.margin) {
		metrics.TokenCacheHits.Inc()
		return cached, nil
	}

	t, err := p.grant.clientCredentials(ctx, key)
	metrics.TokenAcquisitions.WithLabelValues(string(StrategyClientCredentials), metrics.Outcome(err)).Inc()
	if err != nil {
		p.log.Warnw("client credentials grant failed", "shop", key, "err", err)
		return Token{}, err
	}

	p.mu.Lock()
	p.cache[key] = t
	p.mu.Unlock()
	p.log.Infow("access token acquired", "shop", key, "token", t, "expires_at", t.ExpiresAt)
	return t, nil
}

// Invalidate drops the cached token for shop, forcing the next call to
// acquire a fresh one.
func (p *ClientCredentialsProvider) Invalidate(shopDomain string) {
	p.mu.Lock()
	delete(p.cache, shop.Normalize(shopDomain))
	p.mu.Unlock()
}
