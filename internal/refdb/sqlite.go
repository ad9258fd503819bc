package refdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const phrasesTable = "phrases"

// SQLiteStore keeps reference phrases in a SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database and applies the schema
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reference database: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already-opened database and migrates it
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate reference database: %w", err)
	}
	return s, nil
}

// Migrate creates the phrases table if it does not exist
func (s *SQLiteStore) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS phrases (
			phrase TEXT PRIMARY KEY,
			meta   TEXT NOT NULL DEFAULT '{}'
		)
	`)
	return err
}

// Seed upserts phrases with their metadata in one transaction
func (s *SQLiteStore) Seed(ctx context.Context, entries map[string]interface{}) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, phrase := range Keys(entries) {
		meta, err := json.Marshal(entries[phrase])
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w", phrase, err)
		}

		query, args, err := sq.Insert(phrasesTable).
			Columns("phrase", "meta").
			Values(phrase, string(meta)).
			Suffix("ON CONFLICT(phrase) DO UPDATE SET meta = excluded.meta").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %q: %w", phrase, err)
		}
	}

	return tx.Commit()
}

// Phrases returns every stored phrase in ascending order
func (s *SQLiteStore) Phrases(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("phrase").
		From(phrasesTable).
		Where(sq.NotEq{"phrase": ""}).
		OrderBy("phrase").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		phrases = append(phrases, p)
	}
	return phrases, rows.Err()
}

// Meta returns the decoded metadata stored for a phrase
func (s *SQLiteStore) Meta(ctx context.Context, phrase string) (interface{}, error) {
	query, args, err := sq.Select("meta").
		From(phrasesTable).
		Where(sq.Eq{"phrase": phrase}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return nil, err
	}

	var meta interface{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %q: %w", phrase, err)
	}
	return meta, nil
}

// Count returns the number of stored phrases
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(phrasesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count phrases: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
