package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []Node) []NodeID {
	out := make([]NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func TestModel_TopologicalOrder(t *testing.T) {
	s := newSample(t)
	order, err := s.model.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []NodeID{"1", "2", "6", "7", "3", "4", "5"}, ids(order))
	assert.True(t, s.model.IsDAG())
}

func TestModel_TopologicalOrder_Errors(t *testing.T) {
	t.Run("dangling reference", func(t *testing.T) {
		s := newSample(t)
		s.output.Input().AddReference("missing", "output")
		_, err := s.model.TopologicalOrder()
		assert.ErrorIs(t, err, ErrUnresolvedReference)
		assert.False(t, s.model.IsDAG())
	})

	t.Run("self loop", func(t *testing.T) {
		m := NewModel()
		n := newUnaryOperationNode(PortTypeReal)
		require.NoError(t, m.AddNode(n))
		n.Input().Connect(n.Output())

		_, err := m.TopologicalOrder()
		var cyclic *CyclicGraphError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []NodeID{"1"}, cyclic.Nodes)
	})

	t.Run("cycle behind a source", func(t *testing.T) {
		s := newSample(t)
		extra := newBinaryOperationNode(PortTypeReal)
		require.NoError(t, s.model.AddNode(extra))
		extra.Input1().Connect(s.input.Output())
		extra.Input2().Connect(extra.Output())

		_, err := s.model.TopologicalOrder()
		var cyclic *CyclicGraphError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []NodeID{extra.ID()}, cyclic.Nodes)
	})
}

func TestModel_Prune(t *testing.T) {
	t.Run("removes dead branches only", func(t *testing.T) {
		s := newSample(t)
		removed, err := s.model.Prune()
		require.NoError(t, err)
		assert.Equal(t, []NodeID{"7", "6"}, removed)
		assert.Equal(t, 5, s.model.Len())

		require.NoError(t, s.model.Resolve())
		for _, n := range s.model.Nodes() {
			for _, out := range n.OutputPorts() {
				if n.ID() != "5" {
					assert.True(t, out.IsReferenced(), "node %s", n.ID())
				}
			}
		}
	})

	t.Run("chain without sink disappears", func(t *testing.T) {
		m := NewModel()
		in, err := NewInputNode(PortTypeReal, 2)
		require.NoError(t, err)
		require.NoError(t, m.AddNode(in))
		neg, err := NewUnaryOperationNode("negate", in.Output())
		require.NoError(t, err)
		require.NoError(t, m.AddNode(neg))
		sq, err := NewUnaryOperationNode("square", neg.Output())
		require.NoError(t, err)
		require.NoError(t, m.AddNode(sq))

		removed, err := m.Prune()
		require.NoError(t, err)
		assert.Equal(t, []NodeID{"3", "2", "1"}, removed)
		assert.Zero(t, m.Len())
	})

	t.Run("nothing to prune", func(t *testing.T) {
		s := newSample(t)
		_, err := s.model.Prune()
		require.NoError(t, err)
		removed, err := s.model.Prune()
		require.NoError(t, err)
		assert.Empty(t, removed)
	})

	t.Run("cyclic model is refused", func(t *testing.T) {
		m := NewModel()
		n := newUnaryOperationNode(PortTypeReal)
		require.NoError(t, m.AddNode(n))
		n.Input().Connect(n.Output())
		_, err := m.Prune()
		assert.ErrorIs(t, err, ErrCyclicGraph)
		assert.Equal(t, 1, m.Len())
	})
}
