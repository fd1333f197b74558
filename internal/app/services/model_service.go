package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/infrastructure/metrics"
	"github.com/flowgraph/portgraph/internal/logging"
	"github.com/flowgraph/portgraph/pkg/serialization"
)

// Event describes a completed model operation.
type Event struct {
	Type      string    `json:"type"` // "saved", "loaded", "deleted", "pruned"
	ModelID   string    `json:"model_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hook is called after a model operation succeeds. Hook errors are logged
// and never fail the operation.
type Hook func(ctx context.Context, e Event) error

// ModelService archives models into a store and restores them
// PRINCIPLES:
// - SRP: Moves models between memory and storage
// - DIP: Depends on store.Store abstraction
// - OCP: Node kinds come from the injected SerializationContext
type ModelService struct {
	store    store.Store
	types    *graph.SerializationContext
	encoding Encoding
	key      []byte
	logger   *slog.Logger
	metrics  *metrics.Metrics
	hooks    []Hook
	now      func() time.Time
}

// Option configures a ModelService.
type Option func(*ModelService)

// WithSerializationContext sets the node registry used when loading.
func WithSerializationContext(ctx *graph.SerializationContext) Option {
	return func(s *ModelService) {
		s.types = ctx
	}
}

// WithEncoding sets the encoding of stored archives.
func WithEncoding(e Encoding) Option {
	return func(s *ModelService) {
		s.encoding = e
	}
}

// WithEncryptionKey encrypts stored archives with an AES-256 key.
func WithEncryptionKey(key []byte) Option {
	return func(s *ModelService) {
		s.key = key
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ModelService) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ModelService) {
		s.metrics = m
	}
}

// WithHook registers a hook for model events.
func WithHook(h Hook) Option {
	return func(s *ModelService) {
		s.hooks = append(s.hooks, h)
	}
}

// NewModelService creates a new model service
func NewModelService(st store.Store, opts ...Option) (*ModelService, error) {
	if st == nil {
		return nil, errors.New("model service requires a store")
	}

	s := &ModelService{
		store:    st,
		encoding: DefaultEncoding,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.types == nil {
		s.types = graph.NewSerializationContext()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if _, err := s.encoding.serializer(s.key); err != nil {
		return nil, fmt.Errorf("invalid storage encoding: %w", err)
	}

	return s, nil
}

// Encoding returns the encoding of stored archives.
func (s *ModelService) Encoding() Encoding {
	return s.encoding
}

// Save archives m under its model ID. Saving a model again replaces the
// stored record.
func (s *ModelService) Save(ctx context.Context, name string, m *graph.Model, tags ...string) (*store.Record, error) {
	start := time.Now()
	defer s.metrics.ObserveDuration("save", start)

	if m == nil {
		return nil, errors.New("model is nil")
	}

	ser, err := s.encoding.serializer(s.key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := m.SaveTo(&buf, ser); err != nil {
		return nil, fmt.Errorf("failed to archive model %s: %w", m.ID(), err)
	}

	record := &store.Record{
		ID:            m.ID(),
		Name:          name,
		FormatVersion: graph.FormatVersion,
		Codec:         ser.Codec().Name(),
		Compression:   string(ser.Compression()),
		NodeCount:     m.Len(),
		Tags:          tags,
		CreatedAt:     s.now().UTC(),
		Data:          buf.Bytes(),
	}

	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	s.metrics.ObserveSave(record.Codec, len(record.Data))
	s.logger.Info("model saved",
		"model_id", record.ID,
		"name", record.Name,
		"nodes", record.NodeCount,
		"bytes", len(record.Data),
		"encoding", s.encoding.String(),
	)
	s.notify(ctx, "saved", record)

	return record, nil
}

// Load restores the model stored under id.
func (s *ModelService) Load(ctx context.Context, id string, opts ...graph.LoadOption) (*graph.Model, *store.Record, error) {
	start := time.Now()
	defer s.metrics.ObserveDuration("load", start)

	record, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}

	ser, err := serialization.ForFormat(record.Codec, record.Compression, s.key)
	if err != nil {
		s.metrics.IncLoadFailure(ErrorKind(err))
		return nil, nil, fmt.Errorf("model %s has an unreadable encoding: %w", id, err)
	}

	m, err := graph.LoadFrom(bytes.NewReader(record.Data), ser, s.types, opts...)
	if err != nil {
		kind := ErrorKind(err)
		s.metrics.IncLoadFailure(kind)
		s.logger.Warn("model load failed", "model_id", id, "kind", kind, "error", err)
		return nil, nil, fmt.Errorf("failed to restore model %s: %w", id, err)
	}

	s.metrics.IncLoad(record.Codec)
	s.logger.Debug("model loaded", "model_id", id, "nodes", m.Len())
	s.notify(ctx, "loaded", record)

	return m, record, nil
}

// List returns stored records matching filter, newest first.
func (s *ModelService) List(ctx context.Context, filter store.Filter) ([]*store.Record, error) {
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return records, nil
}

// Delete removes a stored model.
func (s *ModelService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	s.metrics.IncDelete()
	s.logger.Info("model deleted", "model_id", id)
	s.notify(ctx, "deleted", &store.Record{ID: id})
	return nil
}

// Import loads an archive encoded with from, which fully validates it, and
// stores the model.
func (s *ModelService) Import(ctx context.Context, name string, r io.Reader, from Encoding, tags ...string) (*store.Record, error) {
	ser, err := from.serializer(nil)
	if err != nil {
		return nil, err
	}

	m, err := graph.LoadFrom(r, ser, s.types)
	if err != nil {
		s.metrics.IncLoadFailure(ErrorKind(err))
		return nil, fmt.Errorf("failed to import archive: %w", err)
	}

	return s.Save(ctx, name, m, tags...)
}

// Export writes the stored archive for id to w re-encoded as to.
func (s *ModelService) Export(ctx context.Context, id string, w io.Writer, to Encoding) error {
	record, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	from, err := serialization.ForFormat(record.Codec, record.Compression, s.key)
	if err != nil {
		return err
	}
	target, err := to.serializer(nil)
	if err != nil {
		return err
	}

	if _, err := s.convert(bytes.NewReader(record.Data), from, w, target); err != nil {
		return fmt.Errorf("failed to export model %s: %w", id, err)
	}
	return nil
}

// Convert re-encodes an archive between encodings; see ConvertArchive.
func (s *ModelService) Convert(r io.Reader, from Encoding, w io.Writer, to Encoding) (int, error) {
	src, err := from.serializer(nil)
	if err != nil {
		return 0, err
	}
	dst, err := to.serializer(nil)
	if err != nil {
		return 0, err
	}
	return s.convert(r, src, w, dst)
}

func (s *ModelService) convert(r io.Reader, from *serialization.Serializer, w io.Writer, to *serialization.Serializer) (int, error) {
	n, err := ConvertArchive(r, from, w, to)
	if err != nil {
		return n, err
	}
	s.metrics.IncConversion(to.Codec().Name())
	return n, nil
}

// Prune loads the model, removes nodes that feed no sink and stores the
// result in place. It returns the removed node IDs.
func (s *ModelService) Prune(ctx context.Context, id string) ([]graph.NodeID, *store.Record, error) {
	m, record, err := s.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	removed, err := m.Prune()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prune model %s: %w", id, err)
	}
	if len(removed) == 0 {
		return nil, record, nil
	}

	updated, err := s.Save(ctx, record.Name, m, record.Tags...)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.AddPruned(len(removed))
	s.logger.Info("model pruned", "model_id", id, "removed", len(removed))
	s.notify(ctx, "pruned", updated)

	return removed, updated, nil
}

func (s *ModelService) notify(ctx context.Context, eventType string, record *store.Record) {
	if len(s.hooks) == 0 {
		return
	}
	event := Event{
		Type:      eventType,
		ModelID:   record.ID,
		Name:      record.Name,
		Timestamp: s.now(),
	}
	for _, hook := range s.hooks {
		if err := hook(ctx, event); err != nil {
			s.logger.Warn("model hook failed", "event", eventType, "model_id", record.ID, "error", err)
		}
	}
}

// ErrorKind classifies a load error for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, serialization.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, serialization.ErrMissingProperty):
		return "missing_property"
	case errors.Is(err, graph.ErrUnresolvedReference):
		return "unresolved_reference"
	case errors.Is(err, graph.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, graph.ErrCyclicGraph):
		return "cyclic_graph"
	case errors.Is(err, graph.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, graph.ErrInvalidArchive), errors.Is(err, serialization.ErrMalformedObject):
		return "invalid_archive"
	case errors.Is(err, serialization.ErrInvalidCiphertext):
		return "decryption"
	case errors.Is(err, serialization.ErrUnknownCodec), errors.Is(err, serialization.ErrUnknownCompression):
		return "unknown_encoding"
	default:
		return "decode"
	}
}
