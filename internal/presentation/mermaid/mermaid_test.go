package mermaid_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/internal/presentation/mermaid"
)

func buildModel(t *testing.T) *graph.Model {
	t.Helper()
	m := graph.NewModel()
	in, err := graph.NewInputNode(graph.PortTypeReal, 2)
	require.NoError(t, err)
	require.NoError(t, m.AddNode(in))
	c, err := graph.NewConstantNode(graph.PortTypeReal, []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, m.AddNode(c))
	add, err := graph.NewBinaryOperationNode("add", in.Output(), c.Output())
	require.NoError(t, err)
	require.NoError(t, m.AddNode(add))
	out, err := graph.NewOutputNode(add.Output())
	require.NoError(t, err)
	require.NoError(t, m.AddNode(out))
	return m
}

func TestGenerate(t *testing.T) {
	got := mermaid.Generate(buildModel(t), nil)

	tests := []struct {
		name     string
		contains string
	}{
		{"header", "graph LR\n"},
		{"input shape", `n1[/"1: InputNode&lt;real&gt;"/]`},
		{"constant shape", `n2(["2: ConstantNode&lt;real&gt;"])`},
		{"operation shape", `n3["3: BinaryOperationNode&lt;real&gt;"]`},
		{"sink shape", `n4(("4: OutputNode&lt;real&gt;"))`},
		{"labelled edge", `n1 -- "output → input1" --> n3`},
		{"second input", `n2 -- "output → input2" --> n3`},
		{"default edge", "n3 --> n4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, got, tt.contains)
		})
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerate_Overlay(t *testing.T) {
	got := mermaid.Generate(buildModel(t), &mermaid.Overlay{Dead: []graph.NodeID{"2", "2"}})

	assert.Contains(t, got, "classDef dead")
	assert.Equal(t, 1, strings.Count(got, "class n2 dead;"))
}

func TestGenerate_Empty(t *testing.T) {
	assert.Equal(t, "graph LR\n", mermaid.Generate(graph.NewModel(), nil))
}
