package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/core/store/storetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.Store {
		s := Default()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := Default()
	defer func() { _ = s.Close() }()

	record := storetest.NewRecord("m-1", "alpha", time.Now(), "x")
	require.NoError(t, s.Save(ctx, record))
	record.Data[0] = 'X'
	record.Tags[0] = "changed"

	loaded, err := s.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive-m-1"), loaded.Data)
	assert.Equal(t, []string{"x"}, loaded.Tags)

	loaded.Data[0] = 'Y'
	again, err := s.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive-m-1"), again.Data)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	defer func() { _ = s.Close() }()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Save(ctx, storetest.NewRecord("ttl", "alpha", clock)))
	_, err := s.Load(ctx, "ttl")
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)

	list, err := s.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Load(ctx, "ttl")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	assert.Equal(t, int64(0), s.GetStats().Count)
}

func TestMemoryStore_CleanupGoroutine(t *testing.T) {
	ctx := context.Background()
	s := New(Config{DefaultTTL: 20 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(ctx, storetest.NewRecord("short", "alpha", time.Now())))

	assert.Eventually(t, func() bool {
		return s.GetStats().Count == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	ctx := context.Background()
	s := New(Config{MaxMemoryMB: 1})
	defer func() { _ = s.Close() }()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	big := func(id string) *store.Record {
		r := storetest.NewRecord(id, "big", clock)
		r.Data = make([]byte, 400*1024)
		return r
	}

	require.NoError(t, s.Save(ctx, big("a")))
	clock = clock.Add(time.Second)
	require.NoError(t, s.Save(ctx, big("b")))
	clock = clock.Add(time.Second)

	// Touch "a" so "b" becomes the eviction candidate.
	_, err := s.Load(ctx, "a")
	require.NoError(t, err)
	clock = clock.Add(time.Second)

	require.NoError(t, s.Save(ctx, big("c")))

	_, err = s.Load(ctx, "b")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = s.Load(ctx, "a")
	assert.NoError(t, err)
	_, err = s.Load(ctx, "c")
	assert.NoError(t, err)

	stats := s.GetStats()
	assert.Equal(t, int64(2), stats.Count)
	assert.LessOrEqual(t, stats.UtilizationPercent, 100.0)
}

func TestMemoryStore_RecordLargerThanCeiling(t *testing.T) {
	s := New(Config{MaxMemoryMB: 1})
	defer func() { _ = s.Close() }()

	r := storetest.NewRecord("huge", "huge", time.Now())
	r.Data = make([]byte, 2*1024*1024)
	assert.ErrorIs(t, s.Save(context.Background(), r), store.ErrStoreFull)
}

func TestMemoryStore_ReplaceTracksSize(t *testing.T) {
	ctx := context.Background()
	s := Default()
	defer func() { _ = s.Close() }()

	r := storetest.NewRecord("m-1", "alpha", time.Now())
	require.NoError(t, s.Save(ctx, r))
	first := s.GetStats().SizeBytes

	require.NoError(t, s.Save(ctx, r))
	assert.Equal(t, first, s.GetStats().SizeBytes)

	require.NoError(t, s.Delete(ctx, "m-1"))
	assert.Equal(t, int64(0), s.GetStats().SizeBytes)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := Default()
	defer func() { _ = s.Close() }()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("m-%d-%d", w, i)
				assert.NoError(t, s.Save(ctx, storetest.NewRecord(id, "alpha", time.Now())))
				_, err := s.Load(ctx, id)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	list, err := s.List(ctx, store.Filter{Name: "alpha"})
	require.NoError(t, err)
	assert.Len(t, list, workers*perWorker)
}

func TestMemoryStore_Stats(t *testing.T) {
	s := New(Config{MaxMemoryMB: 100})
	defer func() { _ = s.Close() }()

	stats := s.GetStats()
	assert.Equal(t, int64(0), stats.Count)
	assert.Equal(t, int64(100), stats.MaxSizeMB)
	assert.Equal(t, float64(0), stats.UtilizationPercent)

	require.NoError(t, s.Save(context.Background(), storetest.NewRecord("m-1", "alpha", time.Now())))
	stats = s.GetStats()
	assert.Equal(t, int64(1), stats.Count)
	assert.Greater(t, stats.SizeBytes, int64(0))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
