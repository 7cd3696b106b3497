package transcript

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time assertion that PostgresStore satisfies the Store interface.
var _ Store = (*PostgresStore)(nil)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id              BIGSERIAL    PRIMARY KEY,
    audio_filename  TEXT         NOT NULL,
    audio           BYTEA        NOT NULL,
    converted_text  TEXT         NOT NULL DEFAULT '',
    corrected_text  TEXT         NOT NULL DEFAULT '',
    strategy        TEXT         NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at
    ON transcripts (created_at DESC);
`

// PostgresStore is a PostgreSQL-backed implementation of [Store], holding a
// single [pgxpool.Pool]. All operations are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the PostgreSQL database
// at dsn and runs [Migrate] to ensure the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates or ensures the transcripts table and its indexes exist. It
// is idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return fmt.Errorf("transcript migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, t *Transcript) error {
	const q = `
		INSERT INTO transcripts
		    (audio_filename, audio, converted_text, corrected_text, strategy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.pool.QueryRow(ctx, q,
		t.AudioFilename,
		t.Audio,
		t.ConvertedText,
		t.CorrectedText,
		t.Strategy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("transcript store: create: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id int64) (Transcript, error) {
	const q = `
		SELECT id, audio_filename, audio, converted_text, corrected_text,
		       strategy, created_at, updated_at
		FROM   transcripts
		WHERE  id = $1`

	var t Transcript
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&t.ID,
		&t.AudioFilename,
		&t.Audio,
		&t.ConvertedText,
		&t.CorrectedText,
		&t.Strategy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transcript{}, ErrNotFound
	}
	if err != nil {
		return Transcript{}, fmt.Errorf("transcript store: get: %w", err)
	}
	return t, nil
}

// List implements [Store.List]. Audio payloads are not fetched.
func (s *PostgresStore) List(ctx context.Context) ([]Transcript, error) {
	const q = `
		SELECT id, audio_filename, converted_text, corrected_text,
		       strategy, created_at, updated_at
		FROM   transcripts
		ORDER  BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("transcript store: list: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transcript, error) {
		var t Transcript
		err := row.Scan(
			&t.ID,
			&t.AudioFilename,
			&t.ConvertedText,
			&t.CorrectedText,
			&t.Strategy,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("transcript store: scan rows: %w", err)
	}
	if result == nil {
		result = []Transcript{}
	}
	return result, nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("transcript store: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping implements [Store.Ping].
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool. Call it when
// the store is no longer needed, typically via defer.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
