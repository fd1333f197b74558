// Package graph provides node definitions
package graph

import (
	"fmt"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// NodeID identifies a node within a Model.
type NodeID string

// Node represents a vertex in the dataflow graph. Concrete kinds embed
// NodeBase, which supplies identity, port ownership and the base half of the
// archive contract.
type Node interface {
	ID() NodeID
	// TypeTag names the concrete kind for factory dispatch on load.
	TypeTag() string
	InputPorts() []*InputPort
	OutputPorts() []*OutputPort
	DescribeProperties(a *serialization.Archiver) error
	RestoreState(a *serialization.Archiver, ctx *SerializationContext) error

	nodeBase() *NodeBase
}

// Sink marks node kinds that are kept by Prune even when nothing consumes
// their outputs.
type Sink interface {
	IsSink() bool
}

// Verifier is implemented by node kinds with constraints that can only be
// checked once every input is resolved, such as matching sizes.
type Verifier interface {
	Verify() error
}

// NodeBase is embedded by every node kind.
// PRINCIPLES:
// - SRP: owns identity and ports, knows nothing about the model
// - Ports point back to the node by id only
type NodeBase struct {
	id      NodeID
	inputs  []*InputPort
	outputs []*OutputPort
}

func (n *NodeBase) ID() NodeID                 { return n.id }
func (n *NodeBase) InputPorts() []*InputPort   { return n.inputs }
func (n *NodeBase) OutputPorts() []*OutputPort { return n.outputs }
func (n *NodeBase) nodeBase() *NodeBase        { return n }

// SetID assigns the node id. Nodes without an id get one from Model.AddNode.
func (n *NodeBase) SetID(id NodeID) {
	n.id = id
	for _, p := range n.inputs {
		p.node = id
	}
	for _, p := range n.outputs {
		p.node = id
	}
}

// InputPort returns the input port called name.
func (n *NodeBase) InputPort(name string) (*InputPort, bool) {
	for _, p := range n.inputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// OutputPort returns the output port called name.
func (n *NodeBase) OutputPort(name string) (*OutputPort, bool) {
	for _, p := range n.outputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// AddInputPort declares a new input port. Names are unique per side.
func (n *NodeBase) AddInputPort(name string, portType PortType) (*InputPort, error) {
	if _, exists := n.InputPort(name); exists {
		return nil, fmt.Errorf("%w: input %q on node %q", ErrDuplicatePort, name, n.id)
	}
	p, err := NewInputPort(name, portType)
	if err != nil {
		return nil, err
	}
	p.node = n.id
	n.inputs = append(n.inputs, p)
	return p, nil
}

// AddOutputPort declares a new output port. Names are unique per side.
func (n *NodeBase) AddOutputPort(name string, portType PortType, size int) (*OutputPort, error) {
	if _, exists := n.OutputPort(name); exists {
		return nil, fmt.Errorf("%w: output %q on node %q", ErrDuplicatePort, name, n.id)
	}
	p, err := NewOutputPort(name, portType, size)
	if err != nil {
		return nil, err
	}
	p.node = n.id
	n.outputs = append(n.outputs, p)
	return p, nil
}

// Archive property names written by NodeBase.
const (
	propID          = "id"
	propInputPorts  = "inputPorts"
	propOutputPorts = "outputPorts"
)

// DescribeProperties writes the id and both ordered port lists. Kinds that
// override it call it first and then add their own properties.
func (n *NodeBase) DescribeProperties(a *serialization.Archiver) error {
	if err := a.Set(propID, string(n.id)); err != nil {
		return err
	}
	inputs := a.SetObjects(propInputPorts, len(n.inputs))
	for i, p := range n.inputs {
		inputs[i].SetType(p.TypeTag())
		if err := p.DescribeProperties(inputs[i]); err != nil {
			return fmt.Errorf("input %q: %w", p.name, err)
		}
	}
	outputs := a.SetObjects(propOutputPorts, len(n.outputs))
	for i, p := range n.outputs {
		outputs[i].SetType(p.TypeTag())
		if err := p.DescribeProperties(outputs[i]); err != nil {
			return fmt.Errorf("output %q: %w", p.name, err)
		}
	}
	return nil
}

// RestoreState reads the id and both port lists. Archived ports are matched
// by name against the ports declared by the node's factory; ports the factory
// did not declare are created, and declared ports absent from the archive are
// reported as missing properties. Input references are recorded, not
// resolved.
func (n *NodeBase) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	var id string
	if err := a.Get(propID, &id); err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidNodeID
	}
	n.SetID(NodeID(id))

	inputs, err := a.Objects(propInputPorts)
	if err != nil {
		return err
	}
	if n.inputs, err = restoreInputs(n, inputs, ctx); err != nil {
		return err
	}

	outputs, err := a.Objects(propOutputPorts)
	if err != nil {
		return err
	}
	n.outputs, err = restoreOutputs(n, outputs, ctx)
	return err
}

func restoreInputs(n *NodeBase, objs []*serialization.Archiver, ctx *SerializationContext) ([]*InputPort, error) {
	restored := make([]*InputPort, 0, len(objs))
	seen := make(map[string]bool, len(objs))
	for _, obj := range objs {
		if obj.Type() != InputPortTypeTag {
			return nil, &serialization.UnknownTypeError{Tag: obj.Type()}
		}
		var name string
		if err := obj.Get("name", &name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: input %q on node %q", ErrDuplicatePort, name, n.id)
		}
		seen[name] = true

		p, declared := n.InputPort(name)
		if !declared {
			p = &InputPort{portBase: portBase{node: n.id}}
		}
		if err := p.RestoreState(obj, ctx); err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		restored = append(restored, p)
	}
	for _, p := range n.inputs {
		if !seen[p.name] {
			return nil, &serialization.MissingPropertyError{Object: string(n.id), Property: propInputPorts + "." + p.name}
		}
	}
	return restored, nil
}

func restoreOutputs(n *NodeBase, objs []*serialization.Archiver, ctx *SerializationContext) ([]*OutputPort, error) {
	restored := make([]*OutputPort, 0, len(objs))
	seen := make(map[string]bool, len(objs))
	for _, obj := range objs {
		if obj.Type() != OutputPortTypeTag {
			return nil, &serialization.UnknownTypeError{Tag: obj.Type()}
		}
		var name string
		if err := obj.Get("name", &name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: output %q on node %q", ErrDuplicatePort, name, n.id)
		}
		seen[name] = true

		p, declared := n.OutputPort(name)
		if !declared {
			p = &OutputPort{portBase: portBase{node: n.id}}
		}
		if err := p.RestoreState(obj, ctx); err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		restored = append(restored, p)
	}
	for _, p := range n.outputs {
		if !seen[p.name] {
			return nil, &serialization.MissingPropertyError{Object: string(n.id), Property: propOutputPorts + "." + p.name}
		}
	}
	return restored, nil
}
