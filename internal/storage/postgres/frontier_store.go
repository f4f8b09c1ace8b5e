// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/crawlhub/internal/frontier"
)

const defaultTable = "urls"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FrontierStoreConfig controls the Postgres connection pool used for the frontier.
type FrontierStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// FrontierStore implements frontier.Store on a single Postgres table. Every
// write is one INSERT ... ON CONFLICT statement, so row-level conflict
// resolution in Postgres is the only serialization point.
type FrontierStore struct {
	pool  pool
	table string
}

// NewFrontierStore creates a Postgres-backed FrontierStore using the provided config.
func NewFrontierStore(ctx context.Context, cfg FrontierStoreConfig) (*FrontierStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &FrontierStore{pool: p, table: table}, nil
}

// NewFrontierStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewFrontierStoreWithPool(p pool, table string) (*FrontierStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &FrontierStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *FrontierStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *FrontierStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// CreateSchema creates the frontier table if it does not exist.
func (s *FrontierStore) CreateSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url VARCHAR PRIMARY KEY,
	status INT NOT NULL DEFAULT %d,
	user_id_hash VARCHAR NOT NULL,
	score BIGINT NOT NULL DEFAULT 0,
	updated TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')
)`, s.table, frontier.StateNew)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create frontier table: %w", err)
	}
	return nil
}

// RecordDiscoveries merges NEW claims by owner for urls.
func (s *FrontierStore) RecordDiscoveries(ctx context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(ctx, owner, urls, at, frontier.StateNew, 1)
}

// RecordAssigned advances urls to ASSIGNED unless they are further along.
func (s *FrontierStore) RecordAssigned(ctx context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(ctx, owner, urls, at, frontier.StateAssigned, 0)
}

// RecordCrawled marks urls as CRAWLED.
func (s *FrontierStore) RecordCrawled(ctx context.Context, owner string, urls []string, at time.Time) error {
	return s.upsert(ctx, owner, urls, at, frontier.StateCrawled, 0)
}

// upsertQuery evaluates frontier.NextState in SQL against the row version
// visible to the statement.
func (s *FrontierStore) upsertQuery() string {
	return fmt.Sprintf(`
INSERT INTO %[1]s (url, status, user_id_hash, score, updated)
SELECT u, $2::int, $3::text, $4::bigint, $5::timestamp
FROM unnest($1::text[]) AS u
ON CONFLICT (url) DO UPDATE SET
	status = CASE
		WHEN %[1]s.status = %[2]d AND excluded.status = %[2]d
			AND %[1]s.user_id_hash <> excluded.user_id_hash THEN %[3]d
		ELSE GREATEST(%[1]s.status, excluded.status)
	END,
	score = %[1]s.score + excluded.score,
	user_id_hash = excluded.user_id_hash,
	updated = excluded.updated`, s.table, frontier.StateNew, frontier.StateConfirmed)
}

func (s *FrontierStore) upsert(
	ctx context.Context,
	owner string,
	urls []string,
	at time.Time,
	proposed frontier.State,
	scoreDelta int64,
) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("frontier store is not configured")
	}
	normalized, err := frontier.NormalizeURLs(urls)
	if err != nil {
		return fmt.Errorf("record %s: %w", proposed, err)
	}
	if len(normalized) == 0 {
		return nil
	}
	// Conflicting rows are locked in array order. Sorting gives every writer
	// the same order so overlapping batches cannot deadlock.
	sort.Strings(normalized)
	args := []any{normalized, int(proposed), owner, scoreDelta, at.UTC()}
	if _, err := s.pool.Exec(ctx, s.upsertQuery(), args...); err != nil {
		return fmt.Errorf("upsert %s urls: %w", proposed, err)
	}
	return nil
}

// Lookup returns the rows that exist for urls, ordered by URL.
func (s *FrontierStore) Lookup(ctx context.Context, urls []string) ([]frontier.URLRecord, error) {
	normalized, err := frontier.NormalizeURLs(urls)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	if len(normalized) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
SELECT url, status, user_id_hash, score, updated
FROM %s
WHERE url = ANY($1::text[])
ORDER BY url`, s.table)
	rows, err := s.pool.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup urls: %w", err)
	}
	defer rows.Close()

	var out []frontier.URLRecord
	for rows.Next() {
		var (
			rec    frontier.URLRecord
			status int32
		)
		if err := rows.Scan(&rec.URL, &status, &rec.UserIDHash, &rec.Score, &rec.Updated); err != nil {
			return nil, fmt.Errorf("scan url row: %w", err)
		}
		rec.State = frontier.State(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate url rows: %w", err)
	}
	return out, nil
}
