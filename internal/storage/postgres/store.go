package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists entity documents in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the entities table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind model.Kind, id string) ([]byte, bool, error) {
	return getEntity(ctx, s.pool, kind, id)
}

func (s *Store) Put(ctx context.Context, kind model.Kind, id string, data []byte) error {
	return putEntity(ctx, s.pool, kind, id, data)
}

// WithinTx runs fn in one database transaction; any error rolls it back.
func (s *Store) WithinTx(ctx context.Context, fn func(entity.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) Get(ctx context.Context, kind model.Kind, id string) ([]byte, bool, error) {
	return getEntity(ctx, t.tx, kind, id)
}

func (t *txStore) Put(ctx context.Context, kind model.Kind, id string, data []byte) error {
	return putEntity(ctx, t.tx, kind, id, data)
}

func getEntity(ctx context.Context, q querier, kind model.Kind, id string) ([]byte, bool, error) {
	var data []byte
	row := q.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, string(kind), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func putEntity(ctx context.Context, q querier, kind model.Kind, id string, data []byte) error {
	_, err := q.Exec(ctx, `
		INSERT INTO entities (kind, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (kind, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, string(kind), id, data)
	return err
}

var (
	_ entity.Store      = (*Store)(nil)
	_ entity.Transactor = (*Store)(nil)
)
