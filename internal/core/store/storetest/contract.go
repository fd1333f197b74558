// Package storetest holds the behavior every store.Store adapter must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/core/store"
)

// NewRecord builds a valid record created at the given time.
func NewRecord(id, name string, createdAt time.Time, tags ...string) *store.Record {
	return &store.Record{
		ID:            id,
		Name:          name,
		FormatVersion: "1.0.0",
		Codec:         "msgpack",
		Compression:   "zstd",
		NodeCount:     3,
		Tags:          tags,
		CreatedAt:     createdAt,
		Data:          []byte(fmt.Sprintf("archive-%s", id)),
	}
}

// RunContract runs the store suite against an adapter. newStore must return
// an empty store each time it is called.
func RunContract(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		s := newStore(t)
		record := NewRecord("m-1", "alpha", base, "prod", "v2")
		require.NoError(t, s.Save(ctx, record))

		loaded, err := s.Load(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, record.ID, loaded.ID)
		assert.Equal(t, record.Name, loaded.Name)
		assert.Equal(t, record.FormatVersion, loaded.FormatVersion)
		assert.Equal(t, record.Codec, loaded.Codec)
		assert.Equal(t, record.Compression, loaded.Compression)
		assert.Equal(t, record.NodeCount, loaded.NodeCount)
		assert.Equal(t, record.Tags, loaded.Tags)
		assert.Equal(t, record.Data, loaded.Data)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt), "created at %v, loaded %v", record.CreatedAt, loaded.CreatedAt)
	})

	t.Run("Save replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewRecord("m-1", "alpha", base)))
		updated := NewRecord("m-1", "alpha", base.Add(time.Minute))
		updated.Data = []byte("second")
		require.NoError(t, s.Save(ctx, updated))

		loaded, err := s.Load(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded.Data)

		all, err := s.List(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Save invalid", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Save(ctx, NewRecord("", "alpha", base)), store.ErrInvalidRecordID)
		assert.ErrorIs(t, s.Save(ctx, nil), store.ErrInvalidRecordID)
	})

	t.Run("Load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
		_, err = s.Load(ctx, "")
		assert.ErrorIs(t, err, store.ErrInvalidRecordID)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewRecord("m-1", "alpha", base)))
		require.NoError(t, s.Delete(ctx, "m-1"))

		_, err := s.Load(ctx, "m-1")
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "m-1"), store.ErrRecordNotFound)
	})

	t.Run("List", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewRecord("a", "alpha", base, "x")))
		require.NoError(t, s.Save(ctx, NewRecord("b", "beta", base.Add(time.Hour), "x", "y")))
		require.NoError(t, s.Save(ctx, NewRecord("c", "alpha", base.Add(2*time.Hour))))
		require.NoError(t, s.Save(ctx, NewRecord("d", "gamma", base.Add(3*time.Hour), "y")))

		since := base.Add(time.Hour)
		before := base.Add(3 * time.Hour)
		tests := []struct {
			name   string
			filter store.Filter
			want   []string
		}{
			{"all newest first", store.Filter{}, []string{"d", "c", "b", "a"}},
			{"by name", store.Filter{Name: "alpha"}, []string{"c", "a"}},
			{"by tag", store.Filter{Tags: []string{"y"}}, []string{"d", "b"}},
			{"by every tag", store.Filter{Tags: []string{"x", "y"}}, []string{"b"}},
			{"time window", store.Filter{Since: &since, Before: &before}, []string{"c", "b"}},
			{"limit", store.Filter{Limit: 2}, []string{"d", "c"}},
			{"offset", store.Filter{Offset: 3}, []string{"a"}},
			{"limit and offset", store.Filter{Limit: 2, Offset: 1}, []string{"c", "b"}},
			{"no match", store.Filter{Name: "delta"}, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				records, err := s.List(ctx, tt.filter)
				require.NoError(t, err)
				var got []string
				for _, r := range records {
					got = append(got, r.ID)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("List invalid filter", func(t *testing.T) {
		s := newStore(t)
		_, err := s.List(ctx, store.Filter{Limit: -1})
		assert.ErrorIs(t, err, store.ErrInvalidLimit)
	})
}
