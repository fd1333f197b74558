package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgraph/portgraph/internal/core/store"
)

const recordColumns = "id, name, format_version, codec, compression, node_count, tags, created_at, data"

// Store implements store.Store for PostgreSQL
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewStore creates a new PostgreSQL model store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:      pool,
		tableName: "models",
	}
}

// Connect opens a pool for dsn and creates the tables.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := NewStore(pool)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Save stores a record in PostgreSQL
func (s *Store) Save(ctx context.Context, r *store.Record) error {
	if r == nil {
		return store.ErrInvalidRecordID
	}
	if err := r.Validate(); err != nil {
		return err
	}

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			format_version = EXCLUDED.format_version,
			codec = EXCLUDED.codec,
			compression = EXCLUDED.compression,
			node_count = EXCLUDED.node_count,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at,
			data = EXCLUDED.data
	`, s.tableName, recordColumns)

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Name, r.FormatVersion, r.Codec, r.Compression, r.NodeCount, tags, r.CreatedAt, r.Data)
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

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", recordColumns, s.tableName)
	r, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	rows, err := s.pool.Query(ctx, query, args...)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrRecordNotFound
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			format_version VARCHAR(50) NOT NULL DEFAULT '1.0.0',
			codec VARCHAR(16) NOT NULL,
			compression VARCHAR(16) NOT NULL DEFAULT 'none',
			node_count INTEGER NOT NULL DEFAULT 0,
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			data BYTEA NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_name ON %s (name);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
		CREATE INDEX IF NOT EXISTS idx_%s_tags ON %s USING GIN (tags);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// buildListQuery constructs the SQL query for listing records
func (s *Store) buildListQuery(filter store.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", recordColumns, s.tableName)
	args := make([]interface{}, 0)
	argCount := 0

	if filter.Name != "" {
		argCount++
		query += fmt.Sprintf(" AND name = $%d", argCount)
		args = append(args, filter.Name)
	}

	if len(filter.Tags) > 0 {
		argCount++
		query += fmt.Sprintf(" AND tags @> $%d", argCount)
		args = append(args, filter.Tags)
	}

	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.Since)
	}

	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at < $%d", argCount)
		args = append(args, *filter.Before)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanRecord(row pgx.Row) (*store.Record, error) {
	var r store.Record
	err := row.Scan(&r.ID, &r.Name, &r.FormatVersion, &r.Codec, &r.Compression, &r.NodeCount,
		&r.Tags, &r.CreatedAt, &r.Data)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	return &r, nil
}
