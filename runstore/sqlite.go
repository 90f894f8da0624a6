package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_results (
	id           TEXT PRIMARY KEY,
	machine_cid  TEXT NOT NULL,
	chunk_offset INTEGER NOT NULL,
	chunk_len    INTEGER NOT NULL,
	payload      BLOB NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS run_results_machine ON run_results (machine_cid, chunk_offset);
`

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save writes the record, assigning ID and CreatedAt when unset.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_results (id, machine_cid, chunk_offset, chunk_len, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MachineCID, rec.Offset, rec.Len, rec.Payload, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("runstore: save %s: %w", rec.ID, err)
	}
	return nil
}

// Load returns the record with the given ID.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, machine_cid, chunk_offset, chunk_len, payload, created_at
		 FROM run_results WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns the machine's records ordered by chunk offset.
func (s *SQLiteStore) List(ctx context.Context, machineCID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, machine_cid, chunk_offset, chunk_len, payload, created_at
		 FROM run_results WHERE machine_cid = ? ORDER BY chunk_offset`, machineCID)
	if err != nil {
		return nil, fmt.Errorf("runstore: list %s: %w", machineCID, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec     Record
		created string
	)
	if err := row.Scan(&rec.ID, &rec.MachineCID, &rec.Offset, &rec.Len, &rec.Payload, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("runstore: parse created_at: %w", err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
