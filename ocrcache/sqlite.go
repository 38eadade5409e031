package ocrcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/exametl/dbopen"
)

// Schema is the DDL of the SQLite backend.
const Schema = `
CREATE TABLE IF NOT EXISTS ocr_cache (
    fingerprint TEXT PRIMARY KEY,
    text        TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);
`

// SQLiteStore keeps entries in one table, for deployments that prefer a
// single file over a directory of small files.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("ocrcache: open %s: %w", path, err)
	}
	return &SQLiteStore{DB: db}, nil
}

// NewSQLiteStore uses an already opened database; Schema must be applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) Load(ctx context.Context, fingerprint string) (Entry, error) {
	e := Entry{Fingerprint: fingerprint}
	var created int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT text, created_at FROM ocr_cache WHERE fingerprint = ?`, fingerprint,
	).Scan(&e.Text, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ocrcache: select: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

func (s *SQLiteStore) Save(ctx context.Context, e Entry) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO ocr_cache (fingerprint, text, created_at) VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET text = excluded.text, created_at = excluded.created_at`,
		e.Fingerprint, e.Text, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("ocrcache: upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM ocr_cache`); err != nil {
		return fmt.Errorf("ocrcache: clear: %w", err)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_cache`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error { return s.DB.Close() }
