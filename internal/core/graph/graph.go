// Package graph provides the core dataflow model: nodes that own typed ports,
// connected by symbolic references from input ports to output ports.
package graph

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Model represents the core graph entity
// PRINCIPLES:
// - KISS: nodes kept in construction order plus an id index
// - SRP: structure and referential integrity only, no execution
// - Not safe for concurrent mutation; a resolved model may be shared for reads
type Model struct {
	id     string
	nodes  []Node
	index  map[NodeID]Node
	nextID int
}

// NewModel creates an empty model with a fresh id.
func NewModel() *Model {
	return newModelWithID(uuid.NewString())
}

func newModelWithID(id string) *Model {
	return &Model{id: id, index: make(map[NodeID]Node), nextID: 1}
}

// ID returns the model id, which is kept across save and load.
func (m *Model) ID() string { return m.id }

// Len returns the number of nodes.
func (m *Model) Len() int { return len(m.nodes) }

// Nodes returns the nodes in construction order.
func (m *Model) Nodes() []Node {
	out := make([]Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// Node returns the node with the given id.
func (m *Model) Node(id NodeID) (Node, bool) {
	n, ok := m.index[id]
	return n, ok
}

// AddNode appends a node. A node without an id gets the next free sequential
// id; an explicit id must be unique.
func (m *Model) AddNode(n Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.ID() == "" {
		n.nodeBase().SetID(m.allocateID())
	}
	if _, exists := m.index[n.ID()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID())
	}
	m.nodes = append(m.nodes, n)
	m.index[n.ID()] = n
	return nil
}

func (m *Model) allocateID() NodeID {
	for {
		id := NodeID(strconv.Itoa(m.nextID))
		m.nextID++
		if _, used := m.index[id]; !used {
			return id
		}
	}
}

// RemoveNode removes a node nothing depends on. It fails with
// ErrNodeReferenced while another node's input references one of its outputs.
func (m *Model) RemoveNode(id NodeID) error {
	if _, ok := m.index[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	if dependents := m.Dependents(id); len(dependents) > 0 {
		return fmt.Errorf("%w: %q is used by %v", ErrNodeReferenced, id, dependents)
	}
	m.detach(id)
	m.RecomputeReferenced()
	return nil
}

// RemoveNodeSevering removes a node and drops every reference to its outputs
// from the remaining nodes. It returns the number of severed references.
func (m *Model) RemoveNodeSevering(id NodeID) (int, error) {
	if _, ok := m.index[id]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	m.detach(id)
	severed := 0
	for _, n := range m.nodes {
		for _, in := range n.InputPorts() {
			severed += in.dropReferencesTo(id)
		}
	}
	m.RecomputeReferenced()
	return severed, nil
}

func (m *Model) detach(id NodeID) {
	delete(m.index, id)
	kept := m.nodes[:0]
	for _, n := range m.nodes {
		if n.ID() != id {
			kept = append(kept, n)
		}
	}
	for i := len(kept); i < len(m.nodes); i++ {
		m.nodes[i] = nil
	}
	m.nodes = kept
}

func (m *Model) lookupOutput(ref PortReference) (*OutputPort, bool) {
	n, ok := m.index[ref.Node]
	if !ok {
		return nil, false
	}
	return n.nodeBase().OutputPort(ref.Port)
}

// Resolve binds every input reference to its output port, runs each node's
// verification and recomputes the referenced flags. Loading calls it as the
// second pass; programmatically built models call it before use.
func (m *Model) Resolve() error {
	for _, n := range m.nodes {
		for _, in := range n.InputPorts() {
			if err := in.Resolve(m); err != nil {
				return err
			}
		}
	}
	for _, n := range m.nodes {
		if v, ok := n.(Verifier); ok {
			if err := v.Verify(); err != nil {
				return err
			}
		}
	}
	m.RecomputeReferenced()
	return nil
}

// RecomputeReferenced derives IsReferenced on every output port from the
// current references. Dangling references are ignored here; Resolve reports
// them.
func (m *Model) RecomputeReferenced() {
	for _, n := range m.nodes {
		for _, out := range n.OutputPorts() {
			out.markReferenced(false)
		}
	}
	for _, n := range m.nodes {
		for _, in := range n.InputPorts() {
			for _, ref := range in.refs {
				if out, ok := m.lookupOutput(ref); ok {
					out.markReferenced(true)
				}
			}
		}
	}
}
