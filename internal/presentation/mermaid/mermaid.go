// Package mermaid renders models as Mermaid flowcharts.
package mermaid

import (
	"fmt"
	"strings"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

// Overlay contains extra state to visualize on the chart.
type Overlay struct {
	// Dead marks nodes that a prune would remove.
	Dead []graph.NodeID
}

// Generate produces a Mermaid flowchart for m. Shapes follow the node role:
// - Input: [/Parallelogram/]
// - Constant: ([Stadium])
// - Sink: ((Circle))
// - Default: [Rectangle]
// Edges run from the referenced output to the reading input and are
// labelled with the port names when either is not the default.
func Generate(m *graph.Model, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range m.Nodes() {
		opener, closer := shape(n)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s: %s\"%s\n",
			safeID(n.ID()), opener, n.ID(), escapeLabel(n.TypeTag()), closer))
	}

	for _, n := range m.Nodes() {
		for _, in := range n.InputPorts() {
			for _, ref := range in.References() {
				from, to := safeID(ref.Node), safeID(n.ID())
				if label := edgeLabel(ref.Port, in.Name()); label != "" {
					sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, label, to))
					continue
				}
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
			}
		}
	}

	if overlay != nil && len(overlay.Dead) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef dead fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 2,color:#000;\n")
		seen := make(map[graph.NodeID]bool)
		for _, id := range overlay.Dead {
			if seen[id] {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s dead;\n", safeID(id)))
		}
	}

	return sb.String()
}

func shape(n graph.Node) (string, string) {
	if s, ok := n.(graph.Sink); ok && s.IsSink() {
		return "((", "))"
	}
	switch n.(type) {
	case *graph.InputNode:
		return "[/", "/]"
	case *graph.ConstantNode:
		return "([", "])"
	}
	return "[", "]"
}

func edgeLabel(output, input string) string {
	if output == graph.DefaultOutputPortName && input == graph.DefaultInputPortName {
		return ""
	}
	return output + " → " + input
}

// safeID prefixes ids so numeric ones stay valid Mermaid identifiers.
func safeID(id graph.NodeID) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", ":", "_", " ", "_")
	return "n" + r.Replace(string(id))
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
