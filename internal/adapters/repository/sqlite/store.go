// Package sqlite stores archived models in SQLite through the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowgraph/portgraph/internal/core/store"
)

const recordColumns = "id, name, format_version, codec, compression, node_count, tags, created_at, data"

// Store implements store.Store for SQLite
type Store struct {
	db        *sql.DB
	tableName string
}

// NewStore wraps an open database. Call CreateTables before first use.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		tableName: "models",
	}
}

// Open opens the database at dsn and creates the tables. An in-memory dsn
// is limited to one connection so every query sees the same database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s := NewStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (s *Store) WithTableName(name string) *Store {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save stores a record in SQLite
func (s *Store) Save(ctx context.Context, r *store.Record) error {
	if r == nil {
		return store.ErrInvalidRecordID
	}
	if err := r.Validate(); err != nil {
		return err
	}

	tagsJSON, err := json.Marshal(nonNilTags(r.Tags))
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName, recordColumns)

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.FormatVersion, r.Codec, r.Compression, r.NodeCount,
		string(tagsJSON), r.CreatedAt.UnixNano(), r.Data)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Load retrieves a record by ID
func (s *Store) Load(ctx context.Context, id string) (*store.Record, error) {
	if id == "" {
		return nil, store.ErrInvalidRecordID
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", recordColumns, s.tableName)
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return r, nil
}

// List retrieves records based on filter criteria
func (s *Store) List(ctx context.Context, filter store.Filter) ([]*store.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*store.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes a record by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return store.ErrInvalidRecordID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrRecordNotFound
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			format_version TEXT NOT NULL DEFAULT '1.0.0',
			codec TEXT NOT NULL,
			compression TEXT NOT NULL DEFAULT 'none',
			node_count INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			data BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_name ON %s (name);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// buildListQuery constructs the SQL query for listing records
func (s *Store) buildListQuery(filter store.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", recordColumns, s.tableName)
	args := make([]interface{}, 0)

	if filter.Name != "" {
		query += " AND name = ?"
		args = append(args, filter.Name)
	}

	for _, tag := range filter.Tags {
		query += " AND EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?)"
		args = append(args, tag)
	}

	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}

	if filter.Before != nil {
		query += " AND created_at < ?"
		args = append(args, filter.Before.UnixNano())
	}

	query += " ORDER BY created_at DESC, id ASC"

	// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var r store.Record
	var tagsJSON string
	var createdAt int64

	err := row.Scan(&r.ID, &r.Name, &r.FormatVersion, &r.Codec, &r.Compression, &r.NodeCount,
		&tagsJSON, &createdAt, &r.Data)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return nil, fmt.Errorf("failed to deserialize tags: %w", err)
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	return &r, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
