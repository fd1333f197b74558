// Package graph defines domain-specific errors
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Model errors
	ErrNilNode           = errors.New("node cannot be nil")
	ErrInvalidNodeID     = errors.New("invalid node ID")
	ErrDuplicateNode     = errors.New("duplicate node ID")
	ErrNodeNotFound      = errors.New("node not found")
	ErrNodeReferenced    = errors.New("node outputs are still referenced")
	ErrCyclicGraph       = errors.New("cyclic dependency detected")
	ErrInvalidArchive    = errors.New("invalid model archive")
	ErrFactoryMismatch   = errors.New("factory produced a node with a different type tag")
	ErrUnsupportedFormat = errors.New("unsupported archive format version")
	ErrUnknownOperation  = errors.New("unknown operation")

	// Port errors
	ErrInvalidPortName     = errors.New("invalid port name")
	ErrDuplicatePort       = errors.New("duplicate port name")
	ErrInvalidPortType     = errors.New("invalid port type")
	ErrInvalidSize         = errors.New("port size cannot be negative")
	ErrUnresolvedReference = errors.New("unresolved port reference")
	ErrTypeMismatch        = errors.New("port type mismatch")
)

// UnresolvedReferenceError reports an input reference whose node or port does
// not exist in the model.
type UnresolvedReferenceError struct {
	Node      NodeID // node owning the input port
	Input     string
	Reference PortReference
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: %s.%s -> %s", ErrUnresolvedReference.Error(), e.Node, e.Input, e.Reference)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// TypeMismatchError reports an incompatible element type or size between
// connected ports.
type TypeMismatchError struct {
	Node   NodeID
	Port   string
	Detail string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s.%s: %s", ErrTypeMismatch.Error(), e.Node, e.Port, e.Detail)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// CyclicGraphError lists the nodes left unordered by a topological sort.
type CyclicGraphError struct {
	Nodes []NodeID
}

func (e *CyclicGraphError) Error() string {
	ids := make([]string, len(e.Nodes))
	for i, id := range e.Nodes {
		ids[i] = string(id)
	}
	return fmt.Sprintf("%s among nodes [%s]", ErrCyclicGraph.Error(), strings.Join(ids, ", "))
}

func (e *CyclicGraphError) Unwrap() error { return ErrCyclicGraph }
