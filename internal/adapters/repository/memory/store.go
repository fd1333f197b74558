// Package memory provides an in-process model store with expiry and a
// memory ceiling.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgraph/portgraph/internal/core/store"
)

// Store implements store.Store with thread-safe in-memory storage
// PRINCIPLES:
// - KISS: Simple map guarded by one lock
// - SRP: Single responsibility for in-memory record storage
// - DIP: Implements store.Store interface
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// TTL management; zero disables expiry
	defaultTTL time.Duration
	// Memory management
	maxBytes    int64
	maxMemoryMB int64
	currentSize int64
	// Cleanup
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupOnce   sync.Once
	now           func() time.Time
}

// Config holds configuration for Store
type Config struct {
	DefaultTTL      time.Duration // Lifetime of a saved record; zero keeps records forever
	MaxMemoryMB     int64         // Maximum archive bytes held, in MB
	CleanupInterval time.Duration // Cleanup interval for expired items
}

// entry holds a record copy with bookkeeping
type entry struct {
	record     *store.Record
	size       int64
	expiresAt  time.Time
	accessedAt time.Time
}

// New creates a new in-memory store
func New(config Config) *Store {
	if config.MaxMemoryMB == 0 {
		config.MaxMemoryMB = 256
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	s := &Store{
		entries:     make(map[string]*entry),
		defaultTTL:  config.DefaultTTL,
		maxMemoryMB: config.MaxMemoryMB,
		maxBytes:    config.MaxMemoryMB * 1024 * 1024,
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}

	if s.defaultTTL > 0 {
		s.startCleanup(config.CleanupInterval)
	}

	return s
}

// Default creates a Store with default configuration
func Default() *Store {
	return New(Config{})
}

// Save stores a copy of the record, replacing any record with the same ID.
// When the archive would exceed the memory ceiling the least recently used
// records are evicted first.
func (s *Store) Save(_ context.Context, r *store.Record) error {
	if r == nil {
		return store.ErrInvalidRecordID
	}
	if err := r.Validate(); err != nil {
		return err
	}

	size := recordSize(r)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[r.ID]; ok {
		s.currentSize -= old.size
		delete(s.entries, r.ID)
	}

	if err := s.ensureCapacity(size); err != nil {
		return err
	}

	e := &entry{
		record:     r.Clone(),
		size:       size,
		accessedAt: now,
	}
	if s.defaultTTL > 0 {
		e.expiresAt = now.Add(s.defaultTTL)
	}
	s.entries[r.ID] = e
	s.currentSize += size

	return nil
}

// Load returns a copy of the record stored under id.
func (s *Store) Load(_ context.Context, id string) (*store.Record, error) {
	if id == "" {
		return nil, store.ErrInvalidRecordID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	now := s.now()
	if e.expired(now) {
		s.remove(id)
		return nil, store.ErrRecordNotFound
	}

	e.accessedAt = now
	return e.record.Clone(), nil
}

// List returns records matching the filter, newest first.
func (s *Store) List(_ context.Context, filter store.Filter) ([]*store.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	now := s.now()
	records := make([]*store.Record, 0, len(s.entries))
	for _, e := range s.entries {
		if e.expired(now) {
			continue
		}
		records = append(records, e.record.Clone())
	}
	s.mu.RUnlock()

	return filter.Apply(records), nil
}

// Delete removes a record
func (s *Store) Delete(_ context.Context, id string) error {
	if id == "" {
		return store.ErrInvalidRecordID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return store.ErrRecordNotFound
	}
	s.remove(id)
	if e.expired(s.now()) {
		return store.ErrRecordNotFound
	}
	return nil
}

// MemoryStats reports memory usage
type MemoryStats struct {
	Count              int64   `json:"count"`
	SizeBytes          int64   `json:"size_bytes"`
	MaxSizeMB          int64   `json:"max_size_mb"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

// GetStats returns memory usage statistics
func (s *Store) GetStats() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var utilization float64
	if s.maxBytes > 0 {
		utilization = float64(s.currentSize) / float64(s.maxBytes) * 100
	}

	return MemoryStats{
		Count:              int64(len(s.entries)),
		SizeBytes:          s.currentSize,
		MaxSizeMB:          s.maxMemoryMB,
		UtilizationPercent: utilization,
	}
}

// Close stops the cleanup goroutine and releases resources
func (s *Store) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
	})
	return nil
}

// startCleanup starts the cleanup goroutine for expired items
func (s *Store) startCleanup(interval time.Duration) {
	s.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

// cleanupExpired removes expired records
func (s *Store) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if e.expired(now) {
			s.remove(id)
		}
	}
}

// remove deletes an entry and updates memory tracking. Callers hold mu.
func (s *Store) remove(id string) {
	if e, ok := s.entries[id]; ok {
		s.currentSize -= e.size
		delete(s.entries, id)
	}
}

// ensureCapacity frees room for size bytes by LRU eviction. Callers hold mu.
func (s *Store) ensureCapacity(size int64) error {
	if size > s.maxBytes {
		return fmt.Errorf("%w: archive of %d bytes exceeds %dMB", store.ErrStoreFull, size, s.maxMemoryMB)
	}
	if s.currentSize+size <= s.maxBytes {
		return nil
	}

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.entries[ids[i]].accessedAt.Before(s.entries[ids[j]].accessedAt)
	})

	for _, id := range ids {
		if s.currentSize+size <= s.maxBytes {
			break
		}
		s.remove(id)
	}
	return nil
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func recordSize(r *store.Record) int64 {
	size := int64(len(r.Data) + len(r.ID) + len(r.Name))
	for _, tag := range r.Tags {
		size += int64(len(tag))
	}
	return size
}
