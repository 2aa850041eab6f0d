// Package store persists menu snapshots in PostgreSQL so a restarted
// service can serve the last known menu before the sheet answers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/bakery/internal/cache"
	"github.com/JonMunkholm/bakery/internal/config"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx used by the store.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS menu_snapshots (
	id          UUID PRIMARY KEY,
	fetched_at  TIMESTAMPTZ NOT NULL,
	item_count  INTEGER NOT NULL,
	items       JSONB NOT NULL,
	categories  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS menu_snapshots_fetched_at_idx ON menu_snapshots (fetched_at DESC);
`

const insertSQL = `
INSERT INTO menu_snapshots (id, fetched_at, item_count, items, categories)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

const latestSQL = `
SELECT id, fetched_at, items, categories
FROM menu_snapshots
ORDER BY fetched_at DESC
LIMIT 1`

const pruneSQL = `
DELETE FROM menu_snapshots
WHERE id NOT IN (
	SELECT id FROM menu_snapshots ORDER BY fetched_at DESC LIMIT $1
)`

// Store is a PostgreSQL-backed cache.Store.
type Store struct {
	db DBTX
}

var _ cache.Store = (*Store)(nil)

// New returns a Store over db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Open creates a connection pool from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName returns the database part of a connection URL for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Save stores snap. Saving the same snapshot twice is a no-op.
func (s *Store) Save(ctx context.Context, snap cache.Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("encode snapshot items: %w", err)
	}
	categories, err := json.Marshal(snap.Categories)
	if err != nil {
		return fmt.Errorf("encode snapshot categories: %w", err)
	}

	_, err = s.db.Exec(ctx, insertSQL,
		pgtype.UUID{Bytes: snap.ID, Valid: true},
		pgtype.Timestamptz{Time: snap.Timestamp, Valid: true},
		len(snap.Items),
		items,
		categories,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when none has been saved.
func (s *Store) Latest(ctx context.Context) (*cache.Snapshot, error) {
	var (
		id         pgtype.UUID
		fetchedAt  pgtype.Timestamptz
		items      []byte
		categories []byte
	)
	err := s.db.QueryRow(ctx, latestSQL).Scan(&id, &fetchedAt, &items, &categories)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	snap := &cache.Snapshot{
		ID:        id.Bytes,
		Timestamp: fetchedAt.Time,
	}
	if err := json.Unmarshal(items, &snap.Items); err != nil {
		return nil, fmt.Errorf("decode snapshot items: %w", err)
	}
	if err := json.Unmarshal(categories, &snap.Categories); err != nil {
		return nil, fmt.Errorf("decode snapshot categories: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []menu.MenuItem{}
	}
	if snap.Categories == nil {
		snap.Categories = []menu.Category{}
	}
	return snap, nil
}

// Prune deletes all but the keep most recent snapshots and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("prune snapshots: keep must be positive, got %d", keep)
	}
	tag, err := s.db.Exec(ctx, pruneSQL, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
