// Package validation provides model descriptors with validation tags
package validation

import (
	"github.com/flowgraph/portgraph/internal/core/graph"
)

// ModelDescriptor is a flat, tagged view of a model used for rule checks and
// for listing a model's structure to external tools.
// PRINCIPLES:
// - Single Responsibility: describes, never mutates, the model
// - Validation: Comprehensive validation tags
type ModelDescriptor struct {
	ID            string           `json:"id" validate:"required,uuid" yaml:"id"`
	FormatVersion string           `json:"format_version" validate:"required,format_version" yaml:"format_version"`
	Nodes         []NodeDescriptor `json:"nodes" validate:"dive" yaml:"nodes"`
}

// NodeDescriptor describes one node and its ports.
type NodeDescriptor struct {
	ID      string           `json:"id" validate:"required,node_id" yaml:"id"`
	TypeTag string           `json:"type_tag" validate:"required,type_tag" yaml:"type_tag"`
	Sink    bool             `json:"sink,omitempty" yaml:"sink,omitempty"`
	Inputs  []PortDescriptor `json:"inputs,omitempty" validate:"dive" yaml:"inputs,omitempty"`
	Outputs []PortDescriptor `json:"outputs,omitempty" validate:"dive" yaml:"outputs,omitempty"`
}

// PortDescriptor describes an input or output port.
type PortDescriptor struct {
	Name       string                `json:"name" validate:"required,port_name" yaml:"name"`
	Type       string                `json:"type" validate:"required,port_type" yaml:"type"`
	Size       int                   `json:"size" validate:"min=0" yaml:"size"`
	Referenced bool                  `json:"referenced,omitempty" yaml:"referenced,omitempty"`
	References []ReferenceDescriptor `json:"references,omitempty" validate:"dive" yaml:"references,omitempty"`
}

// ReferenceDescriptor names the output an input port reads.
type ReferenceDescriptor struct {
	Node string `json:"node" validate:"required,node_id" yaml:"node"`
	Port string `json:"port" validate:"required,port_name" yaml:"port"`
}

// Describe builds the descriptor of m. Input sizes are those of the last
// resolution.
func Describe(m *graph.Model) ModelDescriptor {
	d := ModelDescriptor{
		ID:            m.ID(),
		FormatVersion: graph.FormatVersion,
		Nodes:         make([]NodeDescriptor, 0, m.Len()),
	}
	for _, n := range m.Nodes() {
		nd := NodeDescriptor{ID: string(n.ID()), TypeTag: n.TypeTag()}
		if s, ok := n.(graph.Sink); ok {
			nd.Sink = s.IsSink()
		}
		for _, in := range n.InputPorts() {
			pd := PortDescriptor{Name: in.Name(), Type: string(in.Type()), Size: in.Size()}
			for _, ref := range in.References() {
				pd.References = append(pd.References, ReferenceDescriptor{Node: string(ref.Node), Port: ref.Port})
			}
			nd.Inputs = append(nd.Inputs, pd)
		}
		for _, out := range n.OutputPorts() {
			nd.Outputs = append(nd.Outputs, PortDescriptor{
				Name:       out.Name(),
				Type:       string(out.Type()),
				Size:       out.Size(),
				Referenced: out.IsReferenced(),
			})
		}
		d.Nodes = append(d.Nodes, nd)
	}
	return d
}

// Validate implements cross-node checks the tags cannot express.
func (d *ModelDescriptor) Validate() error {
	var errs ValidationErrors

	outputs := make(map[string]map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if outputs[n.ID] != nil {
			errs = append(errs, ValidationError{Field: "nodes", Value: n.ID, Message: "duplicate node ID"})
			continue
		}
		names := make(map[string]bool, len(n.Outputs))
		for _, p := range n.Outputs {
			names[p.Name] = true
		}
		outputs[n.ID] = names
		errs = append(errs, duplicatePorts(n.ID, "inputs", n.Inputs)...)
		errs = append(errs, duplicatePorts(n.ID, "outputs", n.Outputs)...)
	}

	for _, n := range d.Nodes {
		for _, in := range n.Inputs {
			for _, ref := range in.References {
				if !outputs[ref.Node][ref.Port] {
					errs = append(errs, ValidationError{
						Field:   "nodes." + n.ID + ".inputs." + in.Name,
						Value:   ref.Node + "." + ref.Port,
						Message: "referenced output does not exist",
					})
				}
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func duplicatePorts(node, side string, ports []PortDescriptor) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   "nodes." + node + "." + side,
				Value:   p.Name,
				Message: "duplicate port name",
			})
		}
		seen[p.Name] = true
	}
	return errs
}
