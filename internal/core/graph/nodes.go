package graph

import (
	"fmt"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// Default port names of the built-in node kinds.
const (
	DefaultInputPortName  = "input"
	DefaultInput1PortName = "input1"
	DefaultInput2PortName = "input2"
	DefaultOutputPortName = "output"
	operationPropertyName = "operation"
	valuesPropertyName    = "values"
)

func kindTag(kind string, elem PortType) string {
	return fmt.Sprintf("%s<%s>", kind, elem)
}

func sizeMismatch(n Node, port string, want, got int) error {
	return &TypeMismatchError{
		Node:   n.ID(),
		Port:   port,
		Detail: fmt.Sprintf("size %d, expected %d", got, want),
	}
}

// InputNode is a graph source: it has no inputs and one output fed from
// outside the graph.
type InputNode struct {
	NodeBase
	elem   PortType
	output *OutputPort
}

// NewInputNode creates a source of size elements.
func NewInputNode(elem PortType, size int) (*InputNode, error) {
	n := &InputNode{elem: elem}
	out, err := n.AddOutputPort(DefaultOutputPortName, elem, size)
	if err != nil {
		return nil, err
	}
	n.output = out
	return n, nil
}

func (n *InputNode) TypeTag() string     { return kindTag("InputNode", n.elem) }
func (n *InputNode) Output() *OutputPort { return n.output }

// ConstantNode emits fixed numeric values.
type ConstantNode struct {
	NodeBase
	elem   PortType
	values []float64
	output *OutputPort
}

// NewConstantNode creates a constant whose output size is len(values).
// Only real and integer constants exist.
func NewConstantNode(elem PortType, values []float64) (*ConstantNode, error) {
	if elem != PortTypeReal && elem != PortTypeInteger {
		return nil, fmt.Errorf("%w: constants must be real or integer, got %q", ErrInvalidPortType, elem)
	}
	n := &ConstantNode{elem: elem, values: append([]float64(nil), values...)}
	out, err := n.AddOutputPort(DefaultOutputPortName, elem, len(values))
	if err != nil {
		return nil, err
	}
	n.output = out
	return n, nil
}

func (n *ConstantNode) TypeTag() string     { return kindTag("ConstantNode", n.elem) }
func (n *ConstantNode) Output() *OutputPort { return n.output }
func (n *ConstantNode) Values() []float64   { return n.values }

func (n *ConstantNode) DescribeProperties(a *serialization.Archiver) error {
	if err := n.NodeBase.DescribeProperties(a); err != nil {
		return err
	}
	return a.Set(valuesPropertyName, n.values)
}

func (n *ConstantNode) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	if err := n.NodeBase.RestoreState(a, ctx); err != nil {
		return err
	}
	n.values = nil
	return a.Get(valuesPropertyName, &n.values)
}

func (n *ConstantNode) Verify() error {
	if n.output.Size() != len(n.values) {
		return sizeMismatch(n, n.output.Name(), len(n.values), n.output.Size())
	}
	return nil
}

// UnaryOperations lists the operations a UnaryOperationNode accepts.
var UnaryOperations = []string{"abs", "exp", "log", "negate", "sqrt", "square", "logicalNot"}

// UnaryOperationNode applies an element-wise operation to one input.
type UnaryOperationNode struct {
	NodeBase
	elem      PortType
	operation string
	input     *InputPort
	output    *OutputPort
}

func newUnaryOperationNode(elem PortType) *UnaryOperationNode {
	n := &UnaryOperationNode{elem: elem}
	n.input, _ = n.AddInputPort(DefaultInputPortName, elem)
	n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 0)
	return n
}

// NewUnaryOperationNode creates an operation over input. The input's node
// must already belong to a model so that its id is known.
func NewUnaryOperationNode(operation string, input *OutputPort) (*UnaryOperationNode, error) {
	if !containsOperation(UnaryOperations, operation) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	n := &UnaryOperationNode{elem: input.Type(), operation: operation}
	var err error
	if n.input, err = n.AddInputPort(DefaultInputPortName, input.Type()); err != nil {
		return nil, err
	}
	if n.output, err = n.AddOutputPort(DefaultOutputPortName, input.Type(), input.Size()); err != nil {
		return nil, err
	}
	n.input.Connect(input)
	return n, nil
}

func (n *UnaryOperationNode) TypeTag() string     { return kindTag("UnaryOperationNode", n.elem) }
func (n *UnaryOperationNode) Operation() string   { return n.operation }
func (n *UnaryOperationNode) Input() *InputPort   { return n.input }
func (n *UnaryOperationNode) Output() *OutputPort { return n.output }

func (n *UnaryOperationNode) DescribeProperties(a *serialization.Archiver) error {
	if err := n.NodeBase.DescribeProperties(a); err != nil {
		return err
	}
	return a.Set(operationPropertyName, n.operation)
}

func (n *UnaryOperationNode) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	if err := n.NodeBase.RestoreState(a, ctx); err != nil {
		return err
	}
	if err := a.Get(operationPropertyName, &n.operation); err != nil {
		return err
	}
	if !containsOperation(UnaryOperations, n.operation) {
		return fmt.Errorf("%w: %q on node %q", ErrUnknownOperation, n.operation, n.id)
	}
	return nil
}

func (n *UnaryOperationNode) Verify() error {
	if n.output.Size() != n.input.Size() {
		return sizeMismatch(n, n.output.Name(), n.input.Size(), n.output.Size())
	}
	return nil
}

// BinaryOperations lists the operations a BinaryOperationNode accepts.
var BinaryOperations = []string{"add", "subtract", "multiply", "divide", "logicalAnd", "logicalOr", "logicalXor"}

// BinaryOperationNode combines two equally sized inputs element by element.
type BinaryOperationNode struct {
	NodeBase
	elem      PortType
	operation string
	input1    *InputPort
	input2    *InputPort
	output    *OutputPort
}

func newBinaryOperationNode(elem PortType) *BinaryOperationNode {
	n := &BinaryOperationNode{elem: elem}
	n.input1, _ = n.AddInputPort(DefaultInput1PortName, elem)
	n.input2, _ = n.AddInputPort(DefaultInput2PortName, elem)
	n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 0)
	return n
}

// NewBinaryOperationNode creates an operation over a and b. Both nodes must
// already belong to a model.
func NewBinaryOperationNode(operation string, a, b *OutputPort) (*BinaryOperationNode, error) {
	if !containsOperation(BinaryOperations, operation) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	n := &BinaryOperationNode{elem: a.Type(), operation: operation}
	var err error
	if n.input1, err = n.AddInputPort(DefaultInput1PortName, a.Type()); err != nil {
		return nil, err
	}
	if n.input2, err = n.AddInputPort(DefaultInput2PortName, a.Type()); err != nil {
		return nil, err
	}
	if n.output, err = n.AddOutputPort(DefaultOutputPortName, a.Type(), a.Size()); err != nil {
		return nil, err
	}
	n.input1.Connect(a)
	n.input2.Connect(b)
	return n, nil
}

func (n *BinaryOperationNode) TypeTag() string     { return kindTag("BinaryOperationNode", n.elem) }
func (n *BinaryOperationNode) Operation() string   { return n.operation }
func (n *BinaryOperationNode) Input1() *InputPort  { return n.input1 }
func (n *BinaryOperationNode) Input2() *InputPort  { return n.input2 }
func (n *BinaryOperationNode) Output() *OutputPort { return n.output }

func (n *BinaryOperationNode) DescribeProperties(a *serialization.Archiver) error {
	if err := n.NodeBase.DescribeProperties(a); err != nil {
		return err
	}
	return a.Set(operationPropertyName, n.operation)
}

func (n *BinaryOperationNode) RestoreState(a *serialization.Archiver, ctx *SerializationContext) error {
	if err := n.NodeBase.RestoreState(a, ctx); err != nil {
		return err
	}
	if err := a.Get(operationPropertyName, &n.operation); err != nil {
		return err
	}
	if !containsOperation(BinaryOperations, n.operation) {
		return fmt.Errorf("%w: %q on node %q", ErrUnknownOperation, n.operation, n.id)
	}
	return nil
}

func (n *BinaryOperationNode) Verify() error {
	if n.input1.Size() != n.input2.Size() {
		return sizeMismatch(n, n.input2.Name(), n.input1.Size(), n.input2.Size())
	}
	if n.output.Size() != n.input1.Size() {
		return sizeMismatch(n, n.output.Name(), n.input1.Size(), n.output.Size())
	}
	return nil
}

// SumNode reduces its input to a single element.
type SumNode struct {
	NodeBase
	elem   PortType
	input  *InputPort
	output *OutputPort
}

func newSumNode(elem PortType) *SumNode {
	n := &SumNode{elem: elem}
	n.input, _ = n.AddInputPort(DefaultInputPortName, elem)
	n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 1)
	return n
}

// NewSumNode creates a sum over input.
func NewSumNode(input *OutputPort) (*SumNode, error) {
	if input.Type() != PortTypeReal && input.Type() != PortTypeInteger {
		return nil, fmt.Errorf("%w: cannot sum %q", ErrInvalidPortType, input.Type())
	}
	n := newSumNode(input.Type())
	n.input.Connect(input)
	return n, nil
}

func (n *SumNode) TypeTag() string     { return kindTag("SumNode", n.elem) }
func (n *SumNode) Input() *InputPort   { return n.input }
func (n *SumNode) Output() *OutputPort { return n.output }

func (n *SumNode) Verify() error {
	if n.output.Size() != 1 {
		return sizeMismatch(n, n.output.Name(), 1, n.output.Size())
	}
	return nil
}

// OutputNode exposes a value to the outside of the graph. It is a sink and
// survives pruning.
type OutputNode struct {
	NodeBase
	elem   PortType
	input  *InputPort
	output *OutputPort
}

func newOutputNode(elem PortType) *OutputNode {
	n := &OutputNode{elem: elem}
	n.input, _ = n.AddInputPort(DefaultInputPortName, elem)
	n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 0)
	return n
}

// NewOutputNode creates a sink reading input.
func NewOutputNode(input *OutputPort) (*OutputNode, error) {
	n := &OutputNode{elem: input.Type()}
	var err error
	if n.input, err = n.AddInputPort(DefaultInputPortName, input.Type()); err != nil {
		return nil, err
	}
	if n.output, err = n.AddOutputPort(DefaultOutputPortName, input.Type(), input.Size()); err != nil {
		return nil, err
	}
	n.input.Connect(input)
	return n, nil
}

func (n *OutputNode) TypeTag() string     { return kindTag("OutputNode", n.elem) }
func (n *OutputNode) IsSink() bool        { return true }
func (n *OutputNode) Input() *InputPort   { return n.input }
func (n *OutputNode) Output() *OutputPort { return n.output }

func (n *OutputNode) Verify() error {
	if n.output.Size() != n.input.Size() {
		return sizeMismatch(n, n.output.Name(), n.input.Size(), n.output.Size())
	}
	return nil
}

// registerBuiltins adds a factory for every built-in kind and element type.
func registerBuiltins(ctx *SerializationContext) {
	for _, elem := range []PortType{PortTypeReal, PortTypeInteger, PortTypeBoolean, PortTypeCategorical} {
		elem := elem
		ctx.RegisterNode(kindTag("InputNode", elem), func() Node {
			n := &InputNode{elem: elem}
			n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 0)
			return n
		})
		ctx.RegisterNode(kindTag("UnaryOperationNode", elem), func() Node { return newUnaryOperationNode(elem) })
		ctx.RegisterNode(kindTag("BinaryOperationNode", elem), func() Node { return newBinaryOperationNode(elem) })
		ctx.RegisterNode(kindTag("OutputNode", elem), func() Node { return newOutputNode(elem) })
	}
	for _, elem := range []PortType{PortTypeReal, PortTypeInteger} {
		elem := elem
		ctx.RegisterNode(kindTag("ConstantNode", elem), func() Node {
			n := &ConstantNode{elem: elem}
			n.output, _ = n.AddOutputPort(DefaultOutputPortName, elem, 0)
			return n
		})
		ctx.RegisterNode(kindTag("SumNode", elem), func() Node { return newSumNode(elem) })
	}
}

func containsOperation(ops []string, op string) bool {
	for _, candidate := range ops {
		if candidate == op {
			return true
		}
	}
	return false
}
