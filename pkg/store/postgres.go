package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures a [PostgresStore].
type PostgresConfig struct {
	DSN string
	// Table defaults to "mixgraph_graphs".
	Table string
}

// PostgresStore keeps one row per graph.
type PostgresStore struct {
	db    *pgxpool.Pool
	table string
}

// NewPostgresStore connects a pool and creates the table if needed.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.Table == "" {
		cfg.Table = "mixgraph_graphs"
	}
	db, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, table: pgx.Identifier{cfg.Table}.Sanitize()}
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the graph table if it doesn't exist.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    key        TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table))
	return err
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table), key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, transient(err)
	}
	return data, nil
}

// Put implements [Store].
func (s *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (key, data, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, s.table), key, data)
	return transient(err)
}

// Delete implements [Store].
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key)
	return transient(err)
}

// List implements [Store].
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, s.table))
	if err != nil {
		return nil, transient(err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, transient(err)
	}
	return keys, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
