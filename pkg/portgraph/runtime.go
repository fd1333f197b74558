package portgraph

import (
	"context"
	"io"

	"github.com/flowgraph/portgraph/internal/adapters/repository/memory"
	"github.com/flowgraph/portgraph/internal/app/services"
	coregraph "github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/internal/core/store"
)

// Re-export core model types for convenience
type Model = coregraph.Model
type Node = coregraph.Node
type NodeID = coregraph.NodeID
type PortType = coregraph.PortType
type SerializationContext = coregraph.SerializationContext
type Record = store.Record
type Filter = store.Filter
type Store = store.Store
type Encoding = services.Encoding

// Element types of the built-in node kinds.
const (
	Real        = coregraph.PortTypeReal
	Integer     = coregraph.PortTypeInteger
	Boolean     = coregraph.PortTypeBoolean
	Categorical = coregraph.PortTypeCategorical
)

// NewModel returns an empty model with a fresh identity.
func NewModel() *Model { return coregraph.NewModel() }

// ParseEncoding parses "codec" or "codec+compression", e.g. "yaml+gzip".
func ParseEncoding(s string) (Encoding, error) { return services.ParseEncoding(s) }

// Runtime is a simple façade to archive and reload models without importing
// internal packages directly. The default runtime uses an in-memory store and
// is suitable for local usage and tests.
type Runtime struct {
	models *services.ModelService
}

// Option configures a Runtime.
type Option = services.Option

// WithEncryptionKey seals stored archives with a 32-byte AES key.
func WithEncryptionKey(key []byte) Option { return services.WithEncryptionKey(key) }

// WithEncoding sets the encoding of stored archives.
func WithEncoding(e Encoding) Option { return services.WithEncoding(e) }

// WithSerializationContext sets the node kinds available when loading.
func WithSerializationContext(ctx *SerializationContext) Option {
	return services.WithSerializationContext(ctx)
}

// NewRuntime constructs a default runtime backed by an in-memory store.
func NewRuntime(opts ...Option) (*Runtime, error) {
	return NewRuntimeWithStore(memory.Default(), opts...)
}

// NewRuntimeWithStore constructs a runtime over st.
func NewRuntimeWithStore(st Store, opts ...Option) (*Runtime, error) {
	svc, err := services.NewModelService(st, opts...)
	if err != nil {
		return nil, err
	}
	return &Runtime{models: svc}, nil
}

// Save archives m under name.
func (rt *Runtime) Save(ctx context.Context, name string, m *Model, tags ...string) (*Record, error) {
	return rt.models.Save(ctx, name, m, tags...)
}

// Load reconstructs the model stored under id.
func (rt *Runtime) Load(ctx context.Context, id string) (*Model, error) {
	m, _, err := rt.models.Load(ctx, id)
	return m, err
}

// List returns the records matching filter, newest first.
func (rt *Runtime) List(ctx context.Context, filter Filter) ([]*Record, error) {
	return rt.models.List(ctx, filter)
}

// Delete removes the model stored under id.
func (rt *Runtime) Delete(ctx context.Context, id string) error {
	return rt.models.Delete(ctx, id)
}

// Prune removes dead nodes from the stored model and returns their ids.
func (rt *Runtime) Prune(ctx context.Context, id string) ([]NodeID, error) {
	removed, _, err := rt.models.Prune(ctx, id)
	return removed, err
}

// Import reads an archive in the given encoding and stores it.
func (rt *Runtime) Import(ctx context.Context, name string, r io.Reader, from Encoding, tags ...string) (*Record, error) {
	return rt.models.Import(ctx, name, r, from, tags...)
}

// Export writes the stored model to w in the given encoding.
func (rt *Runtime) Export(ctx context.Context, id string, w io.Writer, to Encoding) error {
	return rt.models.Export(ctx, id, w, to)
}
