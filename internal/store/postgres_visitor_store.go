package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const visitorSchemaSQL = `
CREATE TABLE IF NOT EXISTS site_stats (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS visitor_markers (
	token TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);
`

type PostgresVisitorStore struct {
	db          *sql.DB
	counterName string
	now         func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgresVisitorStore(ctx context.Context, dsn, counterName string) (*PostgresVisitorStore, error) {
	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}

	store := newPostgresVisitorStore(db, counterName)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgresVisitorStore returns a store without contacting the database.
// The schema is created by the first call that reaches it, so an outage at
// startup surfaces as per-call errors and clears once Postgres is back.
func OpenPostgresVisitorStore(dsn, counterName string) (*PostgresVisitorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	return newPostgresVisitorStore(db, counterName), nil
}

func newPostgresVisitorStore(db *sql.DB, counterName string) *PostgresVisitorStore {
	if strings.TrimSpace(counterName) == "" {
		counterName = "visitor_count"
	}
	return &PostgresVisitorStore{
		db:          db,
		counterName: counterName,
		now:         time.Now,
	}
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresVisitorStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if _, err := s.db.ExecContext(ctx, visitorSchemaSQL); err != nil {
		return fmt.Errorf("ensure visitor schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresVisitorStore) ready(ctx context.Context) error {
	s.schemaMu.Lock()
	ready := s.schemaReady
	s.schemaMu.Unlock()
	if ready {
		return nil
	}
	return s.EnsureSchema(ctx)
}

func (s *PostgresVisitorStore) Close() error {
	return s.db.Close()
}

// MarkVisitor inserts the marker or revives an expired one in a single
// statement; a live marker yields no row.
func (s *PostgresVisitorStore) MarkVisitor(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	now := s.now().UTC()
	var inserted string
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO visitor_markers (token, expires_at)
		 VALUES ($1, $2)
		 ON CONFLICT (token) DO UPDATE
		 SET expires_at = EXCLUDED.expires_at
		 WHERE visitor_markers.expires_at <= $3
		 RETURNING token`,
		token,
		now.Add(ttl),
		now,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert visitor marker: %w", err)
	}
	return true, nil
}

func (s *PostgresVisitorStore) IncrementVisitors(ctx context.Context) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var value int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO site_stats (name, value)
		 VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE
		 SET value = site_stats.value + 1
		 RETURNING value`,
		s.counterName,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", s.counterName, err)
	}
	return value, nil
}

func (s *PostgresVisitorStore) VisitorCount(ctx context.Context) (int64, error) {
	value, err := s.SelectCounter(ctx)
	if errors.Is(err, ErrCounterNotFound) {
		return 0, nil
	}
	return value, err
}

func (s *PostgresVisitorStore) SelectCounter(ctx context.Context) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var value int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT value FROM site_stats WHERE name = $1`,
		s.counterName,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCounterNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select %s: %w", s.counterName, err)
	}
	return value, nil
}

func (s *PostgresVisitorStore) UpdateCounter(ctx context.Context, value int64) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var updated int64
	err := s.db.QueryRowContext(
		ctx,
		`UPDATE site_stats SET value = $1 WHERE name = $2 RETURNING value`,
		value,
		s.counterName,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCounterNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", s.counterName, err)
	}
	return updated, nil
}

func (s *PostgresVisitorStore) UpsertCounter(ctx context.Context, value int64) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var upserted int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO site_stats (name, value)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
		 RETURNING value`,
		s.counterName,
		value,
	).Scan(&upserted)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", s.counterName, err)
	}
	return upserted, nil
}
