// Package graph provides port definitions
package graph

import (
	"fmt"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// PortType is the element type carried by a port.
type PortType string

const (
	PortTypeReal        PortType = "real"
	PortTypeInteger     PortType = "integer"
	PortTypeBoolean     PortType = "boolean"
	PortTypeCategorical PortType = "categorical"
)

// Valid reports whether t is a known element type.
func (t PortType) Valid() bool {
	switch t {
	case PortTypeReal, PortTypeInteger, PortTypeBoolean, PortTypeCategorical:
		return true
	default:
		return false
	}
}

// Accepts reports whether an input of type t may consume an output of type
// src. Types must match, except that real inputs also take integer outputs.
func (t PortType) Accepts(src PortType) bool {
	return t == src || (t == PortTypeReal && src == PortTypeInteger)
}

// Type tags of the two port kinds.
const (
	InputPortTypeTag  = "InputPort"
	OutputPortTypeTag = "OutputPort"
)

// Port is a named, typed attachment point on a node.
type Port interface {
	Name() string
	Type() PortType
	// NodeID identifies the owning node. It is a lookup key, not ownership.
	NodeID() NodeID
	TypeTag() string
	DescribeProperties(a *serialization.Archiver) error
	RestoreState(a *serialization.Archiver, ctx *SerializationContext) error
}

// portBase holds the fields shared by input and output ports.
type portBase struct {
	name     string
	portType PortType
	node     NodeID
}

func (p *portBase) Name() string   { return p.name }
func (p *portBase) Type() PortType { return p.portType }
func (p *portBase) NodeID() NodeID { return p.node }

func (p *portBase) DescribeProperties(a *serialization.Archiver) error {
	if err := a.Set("name", p.name); err != nil {
		return err
	}
	return a.Set("portType", string(p.portType))
}

// RestoreState reads name and portType. A port that already has a declared
// type (created by its node's factory) refuses an archive with another type.
func (p *portBase) RestoreState(a *serialization.Archiver, _ *SerializationContext) error {
	var name string
	if err := a.Get("name", &name); err != nil {
		return err
	}
	var portType PortType
	if err := a.Get("portType", &portType); err != nil {
		return err
	}
	if !portType.Valid() {
		return fmt.Errorf("%w: %q on port %q", ErrInvalidPortType, portType, name)
	}
	if p.portType != "" && p.portType != portType {
		return &TypeMismatchError{
			Node:   p.node,
			Port:   name,
			Detail: fmt.Sprintf("archived type %s, declared %s", portType, p.portType),
		}
	}
	p.name = name
	p.portType = portType
	return nil
}

// OutputPort is a port a node produces values on.
type OutputPort struct {
	portBase
	size       int
	referenced bool
}

// NewOutputPort creates an output port with a fixed element count.
func NewOutputPort(name string, portType PortType, size int) (*OutputPort, error) {
	if err := checkPort(name, portType); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}
	return &OutputPort{portBase: portBase{name: name, portType: portType}, size: size}, nil
}

func (p *OutputPort) TypeTag() string { return OutputPortTypeTag }

// Size returns the element count. It never changes after construction; a
// different shape needs a new port.
func (p *OutputPort) Size() int { return p.size }

// IsReferenced reports whether at least one input port consumes this output.
// The flag is derived by Model.RecomputeReferenced and never archived.
func (p *OutputPort) IsReferenced() bool { return p.referenced }

func (p *OutputPort) markReferenced(referenced bool) { p.referenced = referenced }

func (p *OutputPort) DescribeProperties(a *serialization.Archiver) error {
	if err := p.portBase.DescribeProperties(a); err != nil {
		return err
	}
	return a.Set("size", p.size)
}

func (p *OutputPort) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	if err := p.portBase.RestoreState(a, ctx); err != nil {
		return err
	}
	var size int
	if err := a.Get("size", &size); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: port %q has size %d", ErrInvalidSize, p.name, size)
	}
	p.size = size
	p.referenced = false
	return nil
}

// PortReference names an output port elsewhere in the model.
type PortReference struct {
	Node NodeID
	Port string
}

func (r PortReference) String() string {
	return fmt.Sprintf("%s.%s", r.Node, r.Port)
}

// InputPort is a port a node consumes values from. It records references
// symbolically and turns them into live outputs only in Resolve.
type InputPort struct {
	portBase
	refs     []PortReference
	resolved []*OutputPort
}

// NewInputPort creates an input port without references.
func NewInputPort(name string, portType PortType) (*InputPort, error) {
	if err := checkPort(name, portType); err != nil {
		return nil, err
	}
	return &InputPort{portBase: portBase{name: name, portType: portType}}, nil
}

func (p *InputPort) TypeTag() string { return InputPortTypeTag }

// AddReference appends a reference to output port of node. Neither existence
// nor type is checked here, since the target may not be constructed yet.
func (p *InputPort) AddReference(node NodeID, port string) {
	p.refs = append(p.refs, PortReference{Node: node, Port: port})
	p.resolved = nil
}

// Connect references an existing output port.
func (p *InputPort) Connect(out *OutputPort) {
	p.AddReference(out.NodeID(), out.Name())
}

// References returns the recorded references in order.
func (p *InputPort) References() []PortReference {
	out := make([]PortReference, len(p.refs))
	copy(out, p.refs)
	return out
}

// IsResolved reports whether every reference is bound to a live output.
func (p *InputPort) IsResolved() bool {
	return len(p.refs) > 0 && len(p.resolved) == len(p.refs)
}

// Resolved returns the outputs bound by the last successful Resolve.
func (p *InputPort) Resolved() []*OutputPort {
	return p.resolved
}

// Size returns the total element count of the resolved outputs.
func (p *InputPort) Size() int {
	total := 0
	for _, out := range p.resolved {
		total += out.Size()
	}
	return total
}

// Resolve binds every reference to an output port of m. It fails with an
// *UnresolvedReferenceError when a node or port is missing and with a
// *TypeMismatchError when element types are incompatible.
func (p *InputPort) Resolve(m *Model) error {
	resolved := make([]*OutputPort, 0, len(p.refs))
	for _, ref := range p.refs {
		out, ok := m.lookupOutput(ref)
		if !ok {
			return &UnresolvedReferenceError{Node: p.node, Input: p.name, Reference: ref}
		}
		if !p.portType.Accepts(out.Type()) {
			return &TypeMismatchError{
				Node:   p.node,
				Port:   p.name,
				Detail: fmt.Sprintf("%s input cannot consume %s output %s", p.portType, out.Type(), ref),
			}
		}
		resolved = append(resolved, out)
	}
	p.resolved = resolved
	return nil
}

// dropReferencesTo removes every reference into node and returns how many
// were removed.
func (p *InputPort) dropReferencesTo(node NodeID) int {
	kept := p.refs[:0]
	for _, ref := range p.refs {
		if ref.Node != node {
			kept = append(kept, ref)
		}
	}
	removed := len(p.refs) - len(kept)
	p.refs = kept
	if removed > 0 {
		p.resolved = nil
	}
	return removed
}

func (p *InputPort) DescribeProperties(a *serialization.Archiver) error {
	if err := p.portBase.DescribeProperties(a); err != nil {
		return err
	}
	objs := a.SetObjects("references", len(p.refs))
	for i, ref := range p.refs {
		objs[i].SetType(referenceTypeTag)
		if err := objs[i].Set("node", string(ref.Node)); err != nil {
			return err
		}
		if err := objs[i].Set("port", ref.Port); err != nil {
			return err
		}
	}
	return nil
}

func (p *InputPort) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	if err := p.portBase.RestoreState(a, ctx); err != nil {
		return err
	}
	objs, err := a.Objects("references")
	if err != nil {
		return err
	}
	p.refs = make([]PortReference, 0, len(objs))
	p.resolved = nil
	for _, obj := range objs {
		var node, port string
		if err := obj.Get("node", &node); err != nil {
			return err
		}
		if err := obj.Get("port", &port); err != nil {
			return err
		}
		p.refs = append(p.refs, PortReference{Node: NodeID(node), Port: port})
	}
	return nil
}

const referenceTypeTag = "PortReference"

func checkPort(name string, portType PortType) error {
	if name == "" {
		return ErrInvalidPortName
	}
	if !portType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPortType, portType)
	}
	return nil
}
