// Package redis stores archived models in Redis. Each record is a hash
// holding its metadata and archive bytes; a sorted set scored by expiry
// indexes the live records.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/flowgraph/portgraph/internal/core/store"
)

const (
	defaultPrefix = "portgraph:model:"
	metaField     = "meta"
	dataField     = "data"
	// noExpiryScore indexes records saved without a TTL (2100-01-01).
	noExpiryScore = 4102444800
)

// Store implements store.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for saved records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the record hash and indexes it.
func (s *Store) Save(ctx context.Context, r *store.Record) error {
	if r == nil {
		return store.ErrInvalidRecordID
	}
	if err := r.Validate(); err != nil {
		return err
	}

	meta, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(r.ID))
	pipe.HSet(ctx, s.key(r.ID), metaField, meta, dataField, r.Data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(r.ID), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: r.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load retrieves the record from Redis.
func (s *Store) Load(ctx context.Context, id string) (*store.Record, error) {
	if id == "" {
		return nil, store.ErrInvalidRecordID
	}

	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	r, err := decodeRecord(fields)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List prunes expired index entries, then fetches and filters the rest.
func (s *Store) List(ctx context.Context, filter store.Filter) ([]*store.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired records: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	records := make([]*store.Record, 0, len(ids))
	for _, cmd := range cmds {
		r, err := decodeRecord(cmd.Val())
		if errors.Is(err, store.ErrRecordNotFound) {
			// expired between the index read and the fetch
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return filter.Apply(records), nil
}

// Delete removes the record and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return store.ErrInvalidRecordID
	}

	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return store.ErrRecordNotFound
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeRecord(fields map[string]string) (*store.Record, error) {
	meta, ok := fields[metaField]
	if !ok {
		return nil, store.ErrRecordNotFound
	}

	var r store.Record
	if err := json.Unmarshal([]byte(meta), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.Data = []byte(fields[dataField])
	return &r, nil
}
