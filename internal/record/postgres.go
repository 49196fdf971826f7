package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the playback_records table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS playback_records (
    presentation_id TEXT PRIMARY KEY,
    elapsed         DOUBLE PRECISION NOT NULL,
    planned_total   DOUBLE PRECISION NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database, for
// deployments where records must survive host replacement.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// playback_records table if it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("record: migrate: %w", err)
	}
	return nil
}

// Save writes or replaces the record for the presentation id.
func (s *PostgresStore) Save(ctx context.Context, presentationID string, rec Record) error {
	const query = `
		INSERT INTO playback_records (presentation_id, elapsed, planned_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (presentation_id) DO UPDATE SET
			elapsed = EXCLUDED.elapsed,
			planned_total = EXCLUDED.planned_total,
			updated_at = now()`

	_, err := s.db.Exec(ctx, query, presentationID, rec.Elapsed, rec.PlannedTotal)
	if err != nil {
		return fmt.Errorf("record: save %q: %w", presentationID, err)
	}
	return nil
}

// Load returns the stored record, or [ErrNotFound].
func (s *PostgresStore) Load(ctx context.Context, presentationID string) (Record, error) {
	const query = `
		SELECT elapsed, planned_total
		FROM playback_records
		WHERE presentation_id = $1`

	var rec Record
	err := s.db.QueryRow(ctx, query, presentationID).Scan(&rec.Elapsed, &rec.PlannedTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("record: load %q: %w", presentationID, err)
	}
	return rec, nil
}

// Delete removes the record. Deleting a non-existent record is not an error.
func (s *PostgresStore) Delete(ctx context.Context, presentationID string) error {
	const query = `DELETE FROM playback_records WHERE presentation_id = $1`
	_, err := s.db.Exec(ctx, query, presentationID)
	if err != nil {
		return fmt.Errorf("record: delete %q: %w", presentationID, err)
	}
	return nil
}
