// pkg/sessions/postgres.go
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultTable is the table the install flow's PostgreSQL adapter writes.
const DefaultTable = "shopify_sessions"

// rowQuerier is satisfied by *pgxpool.Pool and pgxmock pools.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgStore reads sessions from PostgreSQL.
type pgStore struct {
	db    rowQuerier
	log   *zap.SugaredLogger
	query string
}

// NewPostgresStore constructs a PostgreSQL-backed session store reading table.
func NewPostgresStore(db rowQuerier, table string, log *zap.SugaredLogger) Store {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier{strings.TrimSpace(table)}.Sanitize()
	return &pgStore{
		db:  db,
		log: log,
		query: fmt.Sprintf(`SELECT id, COALESCE(shop,''), COALESCE("accessToken",''), COALESCE(scope,''), COALESCE("isOnline",false), expires FROM %s WHERE id=$1`,
			ident),
	}
}

// Load fetches a session by id.
func (p *pgStore) Load(ctx context.Context, id string) (Session, error) {
	var s Session
	var expires *int64
	err := p.db.QueryRow(ctx, p.query, id).Scan(&s.ID, &s.Shop, &s.AccessToken, &s.Scope, &s.IsOnline, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		if p.log != nil {
			p.log.Warnw("session lookup failed", "id", id, "err", err)
		}
		return Session{}, err
	}
	if expires != nil {
		s.Expires = unixToTime(*expires)
	}
	return s, nil
}
