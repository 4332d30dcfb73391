package bff

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"draftbff/internal/authz"
	"draftbff/internal/draftorders"
	"draftbff/pkg/admingql"
	"draftbff/pkg/config"
	"draftbff/pkg/credentials"
	"draftbff/pkg/middleware"
	"draftbff/pkg/sessions"
	"draftbff/pkg/sessiontoken"
)

// App holds the process-wide dependencies. The only mutable shared state
// lives inside the credential provider's cache.
type App struct {
	cfg  config.Config
	log  *zap.SugaredLogger
	pg   *pgxpool.Pool
	rdb  *redis.Client
	now  func() time.Time
	http credentials.HTTPDoer
	gql  draftorders.GraphQL

	tokenURL   func(string) (string, error)
	provider   credentials.Provider
	authorizer *authz.Authorizer
	dispatcher *draftorders.Dispatcher
}

type Option func(*App)

func WithPostgres(pool *pgxpool.Pool) Option { return func(a *App) { a.pg = pool } }

func WithRedis(rdb *redis.Client) Option { return func(a *App) { a.rdb = rdb } }

// WithUpstream replaces the shop-facing clients, e.g. with httptest fakes.
func WithUpstream(tokenHTTP credentials.HTTPDoer, tokenURL func(string) (string, error), gql draftorders.GraphQL) Option {
	return func(a *App) {
		a.http = tokenHTTP
		a.tokenURL = tokenURL
		a.gql = gql
	}
}

func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// New builds the credential strategy chosen by cfg and everything that
// depends on it. Errors here are startup errors.
func New(log *zap.SugaredLogger, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: log, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	upstream := &http.Client{Timeout: cfg.UpstreamTimeout, Transport: middleware.Transport(nil)}
	if a.http == nil {
		a.http = upstream
	}
	if a.gql == nil {
		a.gql = admingql.New(cfg.APIVersion, cfg.UpstreamTimeout, admingql.WithHTTPClient(upstream))
	}

	ccfg := credentials.Config{
		Strategy:     cfg.Strategy,
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		StaticToken:  cfg.AccessToken,
		HTTPClient:   a.http,
		TokenURL:     a.tokenURL,
		Now:          a.now,
		Log:          log,
	}
	if cfg.Strategy == credentials.StrategySession {
		store, err := a.sessionStore()
		if err != nil {
			return nil, err
		}
		ccfg.Sessions = store
	}
	provider, err := credentials.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("credential provider: %w", err)
	}
	a.provider = provider

	verifier := sessiontoken.NewVerifier(cfg.APISecret,
		sessiontoken.WithClockSkew(cfg.TokenClockSkew),
		sessiontoken.WithClock(a.now),
	)
	a.authorizer = authz.New(verifier, provider, cfg.Shop, log)
	a.dispatcher = draftorders.NewDispatcher(a.gql, log)

	log.Infow("credential strategy selected",
		"strategy", provider.Strategy(),
		"shop", cfg.Shop,
		"session_store", cfg.SessionStore,
		"api_version", cfg.APIVersion,
	)
	return a, nil
}

func (a *App) sessionStore() (sessions.Store, error) {
	switch a.cfg.SessionStore {
	case config.StoreMemory:
		return sessions.NewMemoryStoreFromJSON(a.cfg.SessionSeedJSON, a.log), nil
	case config.StoreRedis:
		if a.rdb == nil {
			return nil, fmt.Errorf("session store redis: client is not connected")
		}
		return sessions.NewRedisStore(a.rdb, a.cfg.SessionKeyPrefix, a.log), nil
	case config.StorePostgres:
		if a.pg == nil {
			return nil, fmt.Errorf("session store postgres: pool is not connected")
		}
		return sessions.NewPostgresStore(a.pg, a.cfg.SessionTable, a.log), nil
	}
	return nil, fmt.Errorf("unknown session store %q", a.cfg.SessionStore)
}

// Strategy reports the credential strategy in use.
func (a *App) Strategy() credentials.Strategy { return a.provider.Strategy() }
