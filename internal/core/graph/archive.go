package graph

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// Archive header written before the nodes.
const (
	HeaderTypeTag = "Model"
	FormatVersion = "1.0.0"

	propFormatVersion = "formatVersion"
	propModelID       = "id"
	propNodeCount     = "nodeCount"
)

// Save writes a header object followed by every node in construction order,
// one object per node. Closing w is left to the caller.
func (m *Model) Save(w serialization.ObjectWriter) error {
	header := serialization.NewArchiver()
	header.SetType(HeaderTypeTag)
	if err := header.Set(propFormatVersion, FormatVersion); err != nil {
		return err
	}
	if err := header.Set(propModelID, m.id); err != nil {
		return err
	}
	if err := header.Set(propNodeCount, len(m.nodes)); err != nil {
		return err
	}
	if err := w.WriteObject(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, n := range m.nodes {
		a := serialization.NewArchiver()
		a.SetType(n.TypeTag())
		if err := n.DescribeProperties(a); err != nil {
			return fmt.Errorf("describe node %q: %w", n.ID(), err)
		}
		if err := w.WriteObject(a); err != nil {
			return fmt.Errorf("write node %q: %w", n.ID(), err)
		}
	}
	return nil
}

// LoadOption adjusts Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	requireDAG bool
}

// RequireDAG makes Load fail with *CyclicGraphError on a cyclic model.
func RequireDAG() LoadOption {
	return func(o *loadOptions) { o.requireDAG = true }
}

// Load reconstructs a model in two passes. Pass one reads the header, then
// creates every node through ctx and restores its state, recording input
// references. Pass two resolves every reference against the complete node
// set and verifies each node. Any failure aborts the load and no model is
// returned.
func Load(r serialization.ObjectReader, ctx *SerializationContext, opts ...LoadOption) (*Model, error) {
	var options loadOptions
	for _, opt := range opts {
		opt(&options)
	}
	if ctx == nil {
		ctx = NewSerializationContext()
	}

	m, expected, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	for {
		obj, err := r.ReadObject()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read node %d: %w", m.Len()+1, err)
		}
		n, err := ctx.CreateNode(obj.Type())
		if err != nil {
			return nil, err
		}
		if err := n.RestoreState(obj, ctx); err != nil {
			return nil, fmt.Errorf("restore %s: %w", obj.Type(), err)
		}
		if n.ID() == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrInvalidNodeID, obj.Type())
		}
		if err := m.AddNode(n); err != nil {
			return nil, err
		}
	}

	if expected >= 0 && expected != m.Len() {
		return nil, fmt.Errorf("%w: header announces %d nodes, found %d", ErrInvalidArchive, expected, m.Len())
	}

	if err := m.Resolve(); err != nil {
		return nil, err
	}
	if options.requireDAG {
		if _, err := m.TopologicalOrder(); err != nil {
			return nil, err
		}
	}
	m.syncNextID()
	return m, nil
}

// readHeader returns the empty model named by the header and the announced
// node count, or -1 when the header does not carry one.
func readHeader(r serialization.ObjectReader) (*Model, int, error) {
	header, err := r.ReadObject()
	if errors.Is(err, io.EOF) {
		return nil, 0, &serialization.MissingPropertyError{Object: "archive", Property: HeaderTypeTag}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if header.Type() != HeaderTypeTag {
		return nil, 0, &serialization.MissingPropertyError{Object: "archive", Property: HeaderTypeTag}
	}

	var version string
	if err := header.Get(propFormatVersion, &version); err != nil {
		return nil, 0, err
	}
	if major, _, _ := strings.Cut(version, "."); major != "1" {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, version)
	}

	var id string
	if _, err := header.Lookup(propModelID, &id); err != nil {
		return nil, 0, err
	}
	m := NewModel()
	if id != "" {
		m = newModelWithID(id)
	}

	expected := -1
	if _, err := header.Lookup(propNodeCount, &expected); err != nil {
		return nil, 0, err
	}
	return m, expected, nil
}

// syncNextID moves the id counter past every numeric id so nodes added after
// a load never collide with loaded ones.
func (m *Model) syncNextID() {
	for _, n := range m.nodes {
		if v, err := strconv.Atoi(string(n.ID())); err == nil && v >= m.nextID {
			m.nextID = v + 1
		}
	}
}

// SaveTo streams the model through s into w.
func (m *Model) SaveTo(w io.Writer, s *serialization.Serializer) error {
	sw, err := s.NewArchiveWriter(w)
	if err != nil {
		return err
	}
	if err := m.Save(sw); err != nil {
		sw.Close()
		return err
	}
	return sw.Close()
}

// LoadFrom loads a model streamed through s from r.
func LoadFrom(r io.Reader, s *serialization.Serializer, ctx *SerializationContext, opts ...LoadOption) (*Model, error) {
	sr, err := s.NewArchiveReader(r)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	return Load(sr, ctx, opts...)
}
