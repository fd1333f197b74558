package prebuilt

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

// Builder constructs a model from a typed configuration.
// Implementations should be pure (no side effects) and return
// a resolved model.
type Builder interface {
	Name() string
	Build(ctx context.Context, cfg any) (*graph.Model, error)
}

// BuildFunc is a convenience adapter to implement Builder via functions.
type BuildFunc struct {
	NameStr string
	Fn      func(ctx context.Context, cfg any) (*graph.Model, error)
}

func (b BuildFunc) Name() string { return b.NameStr }
func (b BuildFunc) Build(ctx context.Context, cfg any) (*graph.Model, error) {
	return b.Fn(ctx, cfg)
}

// NewBuildFunc creates a Builder from a function.
func NewBuildFunc(name string, fn func(ctx context.Context, cfg any) (*graph.Model, error)) BuildFunc {
	return BuildFunc{NameStr: name, Fn: fn}
}

// Registry holds named prebuilts.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds or replaces a prebuilt builder.
func (r *Registry) Register(b Builder) {
	r.builders[b.Name()] = b
}

// MustRegister panics on duplicate names; useful during init() setup.
func (r *Registry) MustRegister(b Builder) {
	if _, exists := r.builders[b.Name()]; exists {
		panic(fmt.Sprintf("prebuilt already registered: %s", b.Name()))
	}
	r.builders[b.Name()] = b
}

// Get retrieves a named prebuilt.
func (r *Registry) Get(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build runs the named prebuilt.
func (r *Registry) Build(ctx context.Context, name string, cfg any) (*graph.Model, error) {
	b, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown prebuilt %q", name)
	}
	return b.Build(ctx, cfg)
}

// DefaultRegistry is a singleton for convenience. Projects can also
// construct their own Registry if they want isolation.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.MustRegister(NewBuildFunc(ChainName, buildChain))
	DefaultRegistry.MustRegister(NewBuildFunc(ReductionName, buildReduction))
	DefaultRegistry.MustRegister(NewBuildFunc(RandomName, buildRandom))
}

// decodeConfig fills target from cfg, which may be nil, a value or pointer
// of target's type, or a map such as a decoded query or YAML document.
func decodeConfig[T any](cfg any, target *T) error {
	switch c := cfg.(type) {
	case nil:
		return nil
	case T:
		*target = c
		return nil
	case *T:
		if c != nil {
			*target = *c
		}
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("invalid prebuilt config: %w", err)
	}
	return nil
}
