package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/market_snapshot/internal/domain"
)

// SQLiteStore keeps snapshot envelopes in a single table keyed by snapshot
// name. Each save is one upsert, so SQLite's transaction guarantees replace
// the whole row or nothing.
type SQLiteStore struct {
	db      *sql.DB
	timeNow func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, timeNow: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			format_version INTEGER NOT NULL,
			envelope BLOB NOT NULL,
			saved_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := s.timeNow()
	data, err := Encode(key, value, now)
	if err != nil {
		return err
	}

	query := `INSERT INTO snapshots (key, format_version, envelope, saved_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET
			  format_version=excluded.format_version,
			  envelope=excluded.envelope,
			  saved_at=excluded.saved_at`
	if _, err := s.db.ExecContext(ctx, query, key, FormatVersion, data, now.UTC()); err != nil {
		return &domain.IOError{Key: key, Op: "save", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string, dst any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx, `SELECT envelope FROM snapshots WHERE key = ?`, key)

	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Key: key}
	}
	if err != nil {
		return &domain.IOError{Key: key, Op: "load", Err: err}
	}
	return Decode(key, data, dst)
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
