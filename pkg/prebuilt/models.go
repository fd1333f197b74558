package prebuilt

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

// Registered prebuilt names.
const (
	ChainName     = "chain"
	ReductionName = "reduction"
	RandomName    = "random"
)

// ChainConfig describes input -> op1 -> ... -> opN -> output.
type ChainConfig struct {
	Size       int      `mapstructure:"size"`
	Operations []string `mapstructure:"operations"`
}

// ReductionConfig describes Inputs sources folded pairwise with Operation,
// summed, and exposed through one output.
type ReductionConfig struct {
	Inputs    int    `mapstructure:"inputs"`
	Size      int    `mapstructure:"size"`
	Operation string `mapstructure:"operation"`
}

// RandomConfig describes a random acyclic model of real nodes. Nodes not
// on a path to the output are left in place, so the result usually has
// something to prune.
type RandomConfig struct {
	Nodes int   `mapstructure:"nodes"`
	Size  int   `mapstructure:"size"`
	Seed  int64 `mapstructure:"seed"`
}

// Chain builds a ChainConfig model.
func Chain(cfg ChainConfig) (*graph.Model, error) {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	m := graph.NewModel()
	in, err := graph.NewInputNode(graph.PortTypeReal, cfg.Size)
	if err != nil {
		return nil, err
	}
	if err := m.AddNode(in); err != nil {
		return nil, err
	}

	last := in.Output()
	for _, op := range cfg.Operations {
		n, err := graph.NewUnaryOperationNode(op, last)
		if err != nil {
			return nil, err
		}
		if err := m.AddNode(n); err != nil {
			return nil, err
		}
		last = n.Output()
	}
	return finish(m, last)
}

// Reduction builds a ReductionConfig model.
func Reduction(cfg ReductionConfig) (*graph.Model, error) {
	if cfg.Inputs < 1 {
		return nil, fmt.Errorf("reduction needs at least one input, got %d", cfg.Inputs)
	}
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.Operation == "" {
		cfg.Operation = "add"
	}

	m := graph.NewModel()
	var acc *graph.OutputPort
	for i := 0; i < cfg.Inputs; i++ {
		in, err := graph.NewInputNode(graph.PortTypeReal, cfg.Size)
		if err != nil {
			return nil, err
		}
		if err := m.AddNode(in); err != nil {
			return nil, err
		}
		if acc == nil {
			acc = in.Output()
			continue
		}
		op, err := graph.NewBinaryOperationNode(cfg.Operation, acc, in.Output())
		if err != nil {
			return nil, err
		}
		if err := m.AddNode(op); err != nil {
			return nil, err
		}
		acc = op.Output()
	}

	sum, err := graph.NewSumNode(acc)
	if err != nil {
		return nil, err
	}
	if err := m.AddNode(sum); err != nil {
		return nil, err
	}
	return finish(m, sum.Output())
}

var (
	randomUnary  = []string{"abs", "exp", "negate", "square"}
	randomBinary = []string{"add", "subtract", "multiply"}
)

// Random builds a RandomConfig model. The same seed yields the same shape.
func Random(cfg RandomConfig) (*graph.Model, error) {
	if cfg.Nodes < 2 {
		cfg.Nodes = 2
	}
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	m := graph.NewModel()
	in, err := graph.NewInputNode(graph.PortTypeReal, cfg.Size)
	if err != nil {
		return nil, err
	}
	if err := m.AddNode(in); err != nil {
		return nil, err
	}
	outputs := []*graph.OutputPort{in.Output()}

	// The output node takes the last slot.
	for i := 1; i < cfg.Nodes-1; i++ {
		var n interface {
			graph.Node
			Output() *graph.OutputPort
		}
		switch rng.Intn(4) {
		case 0:
			values := make([]float64, cfg.Size)
			for j := range values {
				values[j] = float64(rng.Intn(100))
			}
			n, err = graph.NewConstantNode(graph.PortTypeReal, values)
		case 1:
			n, err = graph.NewUnaryOperationNode(randomUnary[rng.Intn(len(randomUnary))], pick(rng, outputs))
		default:
			n, err = graph.NewBinaryOperationNode(randomBinary[rng.Intn(len(randomBinary))], pick(rng, outputs), pick(rng, outputs))
		}
		if err != nil {
			return nil, err
		}
		if err := m.AddNode(n); err != nil {
			return nil, err
		}
		outputs = append(outputs, n.Output())
	}
	return finish(m, pick(rng, outputs))
}

func pick(rng *rand.Rand, outputs []*graph.OutputPort) *graph.OutputPort {
	return outputs[rng.Intn(len(outputs))]
}

func finish(m *graph.Model, last *graph.OutputPort) (*graph.Model, error) {
	out, err := graph.NewOutputNode(last)
	if err != nil {
		return nil, err
	}
	if err := m.AddNode(out); err != nil {
		return nil, err
	}
	if err := m.Resolve(); err != nil {
		return nil, err
	}
	return m, nil
}

func buildChain(_ context.Context, cfg any) (*graph.Model, error) {
	c := ChainConfig{Size: 1, Operations: []string{"square"}}
	if err := decodeConfig(cfg, &c); err != nil {
		return nil, err
	}
	return Chain(c)
}

func buildReduction(_ context.Context, cfg any) (*graph.Model, error) {
	c := ReductionConfig{Inputs: 2, Size: 1, Operation: "add"}
	if err := decodeConfig(cfg, &c); err != nil {
		return nil, err
	}
	return Reduction(c)
}

func buildRandom(_ context.Context, cfg any) (*graph.Model, error) {
	c := RandomConfig{Nodes: 8, Size: 4}
	if err := decodeConfig(cfg, &c); err != nil {
		return nil, err
	}
	return Random(c)
}
