package prebuilt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

func typeTags(m *graph.Model) []string {
	tags := make([]string, 0, m.Len())
	for _, n := range m.Nodes() {
		tags = append(tags, n.TypeTag())
	}
	return tags
}

func TestChain(t *testing.T) {
	m, err := Chain(ChainConfig{Size: 3, Operations: []string{"abs", "square"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"InputNode<real>",
		"UnaryOperationNode<real>",
		"UnaryOperationNode<real>",
		"OutputNode<real>",
	}, typeTags(m))
	assert.True(t, m.IsDAG())

	_, err = Chain(ChainConfig{Operations: []string{"teleport"}})
	assert.ErrorIs(t, err, graph.ErrUnknownOperation)
}

func TestReduction(t *testing.T) {
	m, err := Reduction(ReductionConfig{Inputs: 3, Size: 2})
	require.NoError(t, err)
	// 3 inputs, 2 folds, sum, output
	assert.Equal(t, 7, m.Len())

	removed, err := m.Prune()
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = Reduction(ReductionConfig{})
	assert.Error(t, err)
}

func TestRandom(t *testing.T) {
	a, err := Random(RandomConfig{Nodes: 12, Size: 2, Seed: 42})
	require.NoError(t, err)
	b, err := Random(RandomConfig{Nodes: 12, Size: 2, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 12, a.Len())
	assert.Equal(t, typeTags(a), typeTags(b))
	assert.True(t, a.IsDAG())

	_, err = a.Prune()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.Len(), 2)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{ChainName, RandomName, ReductionName}, DefaultRegistry.Names())

	tests := []struct {
		name    string
		builder string
		cfg     any
		nodes   int
		wantErr bool
	}{
		{name: "chain defaults", builder: ChainName, nodes: 3},
		{name: "chain from map", builder: ChainName, cfg: map[string]any{"size": "4", "operations": []string{"abs", "exp"}}, nodes: 4},
		{name: "typed config", builder: ReductionName, cfg: ReductionConfig{Inputs: 2}, nodes: 5},
		{name: "typed pointer", builder: RandomName, cfg: &RandomConfig{Nodes: 5, Seed: 1}, nodes: 5},
		{name: "unknown key", builder: ChainName, cfg: map[string]any{"depth": 3}, wantErr: true},
		{name: "unknown prebuilt", builder: "lattice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DefaultRegistry.Build(context.Background(), tt.builder, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nodes, m.Len())
		})
	}
}

func TestRegistry_MustRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewBuildFunc("x", buildChain))
	assert.Panics(t, func() { r.MustRegister(NewBuildFunc("x", buildChain)) })
}
