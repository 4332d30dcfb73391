package sessions

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix matches the Redis session adapter used by the install flow.
const DefaultKeyPrefix = "shopify_sessions"

// stringGetter is the slice of redis.Cmdable the store uses.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisStore struct {
	rdb    stringGetter
	prefix string
	log    *zap.SugaredLogger
}

// NewRedisStore reads sessions stored under "<prefix>_<id>".
func NewRedisStore(rdb stringGetter, prefix string, log *zap.SugaredLogger) Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &redisStore{rdb: rdb, prefix: strings.TrimSpace(prefix), log: log}
}

func (r *redisStore) key(id string) string { return r.prefix + "_" + id }

func (r *redisStore) Load(ctx context.Context, id string) (Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		if r.log != nil {
			r.log.Warnw("session lookup failed", "key", r.key(id), "err", err)
		}
		return Session{}, err
	}
	s, err := decodeSession(raw)
	if err != nil {
		return Session{}, err
	}
	if s.ID == "" {
		s.ID = id
	}
	return s, nil
}
