package serialization

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObjects(t *testing.T) []*Archiver {
	t.Helper()

	header := NewArchiver()
	header.SetType("Model")
	require.NoError(t, header.Set("formatVersion", "1.0.0"))
	require.NoError(t, header.Set("nodeCount", 1))

	node := NewArchiver()
	node.SetType("InputNode<real>")
	require.NoError(t, node.Set("id", "1"))
	node.SetObjects("inputPorts", 0)
	out := node.AppendObject("outputPorts")
	out.SetType("OutputPort")
	require.NoError(t, out.Set("name", "output"))
	require.NoError(t, out.Set("portType", "real"))
	require.NoError(t, out.Set("size", uint64(8)))
	require.NoError(t, node.Set("weights", []float64{0.25, 1, -3.5}))
	require.NoError(t, node.Set("enabled", true))

	return []*Archiver{header, node}
}

func TestStream_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	for _, codec := range []Codec{NewJSONCodec(), NewMsgPackCodec(), NewYAMLCodec()} {
		for _, compression := range []CompressionType{CompressionNone, CompressionGzip, CompressionZstd} {
			for _, encrypt := range []bool{false, true} {
				name := fmt.Sprintf("%s/%s/encrypted=%v", codec.Name(), compression, encrypt)
				t.Run(name, func(t *testing.T) {
					config := SerializationConfig{Codec: codec, Compression: compression}
					if encrypt {
						config.EncryptKey = key
					}
					s := NewSerializer(config)

					var buf bytes.Buffer
					w, err := s.NewArchiveWriter(&buf)
					require.NoError(t, err)
					for _, obj := range sampleObjects(t) {
						require.NoError(t, w.WriteObject(obj))
					}
					assert.Equal(t, 2, w.Count())
					require.NoError(t, w.Close())

					r, err := s.NewArchiveReader(&buf)
					require.NoError(t, err)
					defer r.Close()

					header, err := r.ReadObject()
					require.NoError(t, err)
					assert.Equal(t, "Model", header.Type())
					var count int
					require.NoError(t, header.Get("nodeCount", &count))
					assert.Equal(t, 1, count)

					node, err := r.ReadObject()
					require.NoError(t, err)
					assert.Equal(t, "InputNode<real>", node.Type())

					var weights []float64
					var enabled bool
					require.NoError(t, node.Get("weights", &weights))
					require.NoError(t, node.Get("enabled", &enabled))
					assert.Equal(t, []float64{0.25, 1, -3.5}, weights)
					assert.True(t, enabled)

					inputs, err := node.Objects("inputPorts")
					require.NoError(t, err)
					assert.Empty(t, inputs)

					outputs, err := node.Objects("outputPorts")
					require.NoError(t, err)
					require.Len(t, outputs, 1)
					var size int
					require.NoError(t, outputs[0].Get("size", &size))
					assert.Equal(t, 8, size)

					_, err = r.ReadObject()
					assert.ErrorIs(t, err, io.EOF)
				})
			}
		}
	}
}

func TestStream_EmptyArchive(t *testing.T) {
	s := DefaultSerializer()
	var buf bytes.Buffer
	w, err := s.NewArchiveWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := s.NewArchiveReader(&buf)
	require.NoError(t, err)
	_, err = r.ReadObject()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_WriteAfterClose(t *testing.T) {
	w, err := DefaultSerializer().NewArchiveWriter(io.Discard)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteObject(NewArchiver()), ErrWriterClosed)
}

func TestStream_JSONIsLineDelimited(t *testing.T) {
	s := NewSerializer(SerializationConfig{Codec: NewJSONCodec()})
	var buf bytes.Buffer
	w, err := s.NewArchiveWriter(&buf)
	require.NoError(t, err)
	for _, obj := range sampleObjects(t) {
		require.NoError(t, w.WriteObject(obj))
	}
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"Model"`)
}

func TestMemoryArchive(t *testing.T) {
	m := NewMemoryArchive()
	for _, obj := range sampleObjects(t) {
		require.NoError(t, m.WriteObject(obj))
	}
	assert.Len(t, m.Objects(), 2)

	first, err := m.ReadObject()
	require.NoError(t, err)
	assert.Equal(t, "Model", first.Type())
	_, err = m.ReadObject()
	require.NoError(t, err)
	_, err = m.ReadObject()
	assert.ErrorIs(t, err, io.EOF)

	m.Rewind()
	again, err := m.ReadObject()
	require.NoError(t, err)
	assert.Same(t, first, again)
}
