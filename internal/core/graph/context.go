package graph

import (
	"fmt"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// NodeFactory constructs an uninitialized node of one concrete kind.
type NodeFactory func() Node

// SerializationContext maps type tags to node factories for a load. Adding a
// node kind only requires registering its factory here.
//
// The context is populated before a load and only read during it.
type SerializationContext struct {
	nodes *serialization.Registry[Node]
}

// NewSerializationContext returns a context with every built-in node kind
// registered.
func NewSerializationContext() *SerializationContext {
	ctx := NewEmptySerializationContext()
	registerBuiltins(ctx)
	return ctx
}

// NewEmptySerializationContext returns a context with no registrations.
func NewEmptySerializationContext() *SerializationContext {
	return &SerializationContext{nodes: serialization.NewRegistry[Node]()}
}

// RegisterNode associates tag with factory, replacing any earlier factory.
func (c *SerializationContext) RegisterNode(tag string, factory NodeFactory) {
	c.nodes.Register(tag, serialization.Factory[Node](factory))
}

// CreateNode builds a default instance for tag. It fails with
// *serialization.UnknownTypeError when nothing is registered under tag.
func (c *SerializationContext) CreateNode(tag string) (Node, error) {
	n, err := c.nodes.Create(tag)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNilNode
	}
	if n.TypeTag() != tag {
		return nil, fmt.Errorf("%w: registered as %q, built %q", ErrFactoryMismatch, tag, n.TypeTag())
	}
	return n, nil
}

// HasNodeType reports whether tag is registered.
func (c *SerializationContext) HasNodeType(tag string) bool {
	return c.nodes.Has(tag)
}

// NodeTypes returns the registered tags in sorted order.
func (c *SerializationContext) NodeTypes() []string {
	return c.nodes.Tags()
}
