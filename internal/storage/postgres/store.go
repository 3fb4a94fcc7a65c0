package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS entities (
		chain_id   BIGINT      NOT NULL,
		kind       TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chain_id, kind, id)
	)
`

// Store is a Postgres entity backend. Each Apply runs in one SQL transaction.
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
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create entities table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, chainID uint64, kind store.Kind, id string) ([]byte, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE chain_id=$1 AND kind=$2 AND id=$3`, int64(chainID), string(kind), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return data, true, nil
}

// Apply upserts every write inside a single transaction.
func (s *Store) Apply(ctx context.Context, chainID uint64, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, w := range writes {
			batch.Queue(`
				INSERT INTO entities (chain_id, kind, id, data, updated_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (chain_id, kind, id)
				DO UPDATE SET data = EXCLUDED.data, updated_at = now()
			`, int64(chainID), string(w.Kind), w.ID, w.Data)
		}

		br := tx.SendBatch(ctx, batch)
		for _, w := range writes {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert %s %s: %w", w.Kind, w.ID, err)
			}
		}
		return br.Close()
	})
}
