package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/core/store/storetest"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.Store {
		return newMemoryStore(t)
	})
}

func TestSQLiteStore_CustomTable(t *testing.T) {
	s := newMemoryStore(t)
	s.WithTableName("archived_models")
	require.NoError(t, s.CreateTables(context.Background()))

	record := storetest.NewRecord("m-1", "alpha", time.Now())
	require.NoError(t, s.Save(context.Background(), record))
	loaded, err := s.Load(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, record.Data, loaded.Data)
}

func TestSQLiteStore_WithTableNameRejectsUnsafe(t *testing.T) {
	s := NewStore(nil)
	s.WithTableName("models; DROP TABLE models")
	assert.Equal(t, "models", s.tableName)
}

func TestSQLiteStore_BuildListQuery(t *testing.T) {
	s := NewStore(nil)
	since := time.Unix(100, 0)

	query, args := s.buildListQuery(store.Filter{Name: "alpha", Tags: []string{"x"}, Since: &since, Offset: 5})
	assert.Contains(t, query, "name = ?")
	assert.Contains(t, query, "json_each(tags)")
	assert.Contains(t, query, "LIMIT ? OFFSET ?")
	assert.Equal(t, []interface{}{"alpha", "x", since.UnixNano(), -1, 5}, args)
}
