package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
)

const frameSchemaSQL = `
CREATE TABLE IF NOT EXISTS frames (
	id TEXT PRIMARY KEY,
	config JSONB NOT NULL,
	photo_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresFrameStore struct {
	db *sql.DB
}

func NewPostgresFrameStore(ctx context.Context, dsn string) (*PostgresFrameStore, error) {
	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}

	store := &PostgresFrameStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresFrameStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, frameSchemaSQL); err != nil {
		return fmt.Errorf("ensure frames schema: %w", err)
	}
	return nil
}

func (s *PostgresFrameStore) Close() error {
	return s.db.Close()
}

func (s *PostgresFrameStore) Create(ctx context.Context, frame domain.Frame) error {
	configJSON, err := json.Marshal(frame.Config)
	if err != nil {
		return fmt.Errorf("marshal frame config: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO frames (id, config, photo_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		frame.ID,
		configJSON,
		frame.PhotoKey,
		frame.CreatedAt,
		frame.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}

	return nil
}

func (s *PostgresFrameStore) Get(ctx context.Context, id string) (domain.Frame, bool, error) {
	frame, err := scanFrame(s.db.QueryRowContext(
		ctx,
		`SELECT id, config, photo_key, created_at, updated_at
		 FROM frames
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Frame{}, false, nil
	}
	if err != nil {
		return domain.Frame{}, false, err
	}
	return frame, true, nil
}

// Update locks the row for the duration of mutate so concurrent PATCHes
// apply one after another.
func (s *PostgresFrameStore) Update(ctx context.Context, id string, mutate FrameMutator) (domain.Frame, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("begin frame update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanFrame(tx.QueryRowContext(
		ctx,
		`SELECT id, config, photo_key, created_at, updated_at
		 FROM frames
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Frame{}, ErrFrameNotFound
	}
	if err != nil {
		return domain.Frame{}, err
	}

	next, err := mutate(current)
	if err != nil {
		return domain.Frame{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	configJSON, err := json.Marshal(next.Config)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("marshal frame config: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE frames
		 SET config = $1, photo_key = $2, updated_at = $3
		 WHERE id = $4`,
		configJSON,
		next.PhotoKey,
		next.UpdatedAt,
		id,
	); err != nil {
		return domain.Frame{}, fmt.Errorf("update frame: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Frame{}, fmt.Errorf("commit frame update: %w", err)
	}
	return next, nil
}

func scanFrame(row *sql.Row) (domain.Frame, error) {
	var (
		frame      domain.Frame
		configJSON []byte
	)
	if err := row.Scan(
		&frame.ID,
		&configJSON,
		&frame.PhotoKey,
		&frame.CreatedAt,
		&frame.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Frame{}, err
		}
		return domain.Frame{}, fmt.Errorf("query frame: %w", err)
	}

	if err := json.Unmarshal(configJSON, &frame.Config); err != nil {
		return domain.Frame{}, fmt.Errorf("unmarshal frame config: %w", err)
	}
	return frame, nil
}
