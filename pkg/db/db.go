package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"draftbff/pkg/config"
)

const connectTimeout = 10 * time.Second

// MustConnect opens the Postgres pool holding shop sessions. It returns nil
// when the configured session store is not postgres.
func MustConnect(cfg config.Config, log *zap.SugaredLogger) *pgxpool.Pool {
	if cfg.SessionStore != config.StorePostgres || cfg.DatabaseURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("pg connect", "err", err, "host", redactDSN(cfg.DatabaseURL))
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalw("pg ping", "err", err, "host", redactDSN(cfg.DatabaseURL))
	}
	log.Infow("postgres ready", "host", redactDSN(cfg.DatabaseURL))
	return pool
}

// MustRedis connects to the Redis session store, or returns nil when the
// configured session store is not redis.
func MustRedis(cfg config.Config, log *zap.SugaredLogger) *redis.Client {
	if cfg.SessionStore != config.StoreRedis || cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalw("redis parse", "err", err)
	}
	cli := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		log.Fatalw("redis ping", "err", err, "addr", opts.Addr)
	}
	log.Infow("redis ready", "addr", opts.Addr)
	return cli
}

func redactDSN(dsn string) string {
	if i := strings.LastIndex(dsn, "@"); i > 0 {
		scheme := ""
		if j := strings.Index(dsn, "://"); j > 0 && j < i {
			scheme = dsn[:j+3]
		}
		return scheme + "***@" + dsn[i+1:]
	}
	return dsn
}
