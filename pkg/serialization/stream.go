package serialization

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ObjectWriter receives archived objects one at a time.
type ObjectWriter interface {
	WriteObject(a *Archiver) error
}

// ObjectReader yields archived objects one at a time and returns io.EOF
// after the last one.
type ObjectReader interface {
	ReadObject() (*Archiver, error)
}

// StreamWriter encodes objects straight into an io.Writer through the
// serializer's codec and compression, so a large archive never has to be
// held in memory. With encryption enabled the compressed stream is buffered
// and sealed on Close, because AES-GCM authenticates the whole message.
type StreamWriter struct {
	dst     io.Writer
	sealed  *bytes.Buffer
	comp    io.WriteCloser
	enc     Encoder
	owner   *Serializer
	written int
	closed  bool
}

// NewArchiveWriter starts an archive stream on w.
func (s *Serializer) NewArchiveWriter(w io.Writer) (*StreamWriter, error) {
	sw := &StreamWriter{dst: w, owner: s}

	target := w
	if s.Encrypted() {
		sw.sealed = new(bytes.Buffer)
		target = sw.sealed
	}

	comp, err := s.compressWriter(target)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	sw.comp = comp
	sw.enc = s.config.Codec.NewEncoder(comp)
	return sw, nil
}

// WriteObject encodes one object.
func (w *StreamWriter) WriteObject(a *Archiver) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.enc.Encode(a.wire()); err != nil {
		return fmt.Errorf("codec encoding failed: %w", err)
	}
	w.written++
	return nil
}

// Count returns the number of objects written so far.
func (w *StreamWriter) Count() int {
	return w.written
}

// Close flushes the codec and compressor and, when encrypting, writes the
// sealed payload. The underlying writer is not closed.
func (w *StreamWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	// yaml refuses to end a stream it never started
	if closer, ok := w.enc.(io.Closer); ok && w.written > 0 {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("codec flush failed: %w", err)
		}
	}
	if err := w.comp.Close(); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	if w.sealed == nil {
		return nil
	}

	data, err := w.owner.encrypt(w.sealed.Bytes())
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}
	if _, err := w.dst.Write(data); err != nil {
		return err
	}
	return nil
}

// StreamReader decodes objects from an io.Reader one at a time.
type StreamReader struct {
	decomp io.ReadCloser
	dec    Decoder
}

// NewArchiveReader opens an archive stream on r. Encrypted archives are read
// fully and opened before decoding starts.
func (s *Serializer) NewArchiveReader(r io.Reader) (*StreamReader, error) {
	source := r
	if s.Encrypted() {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		plain, err := s.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("decryption failed: %w", err)
		}
		source = bytes.NewReader(plain)
	}

	decomp, err := s.decompressReader(source)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return &StreamReader{
		decomp: decomp,
		dec:    s.config.Codec.NewDecoder(decomp),
	}, nil
}

// ReadObject decodes the next object or returns io.EOF.
func (r *StreamReader) ReadObject() (*Archiver, error) {
	var raw map[string]any
	if err := r.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("codec decoding failed: %w", err)
	}
	return fromWire(raw, true)
}

// Close releases the decompressor.
func (r *StreamReader) Close() error {
	return r.decomp.Close()
}

// MemoryArchive keeps archived objects in a slice. It is both an
// ObjectWriter and an ObjectReader; reads start from the first object.
type MemoryArchive struct {
	objects []*Archiver
	pos     int
}

// NewMemoryArchive creates an archive, optionally pre-filled with objects.
func NewMemoryArchive(objects ...*Archiver) *MemoryArchive {
	return &MemoryArchive{objects: objects}
}

// WriteObject appends an object.
func (m *MemoryArchive) WriteObject(a *Archiver) error {
	m.objects = append(m.objects, a)
	return nil
}

// ReadObject returns the next object or io.EOF.
func (m *MemoryArchive) ReadObject() (*Archiver, error) {
	if m.pos >= len(m.objects) {
		return nil, io.EOF
	}
	a := m.objects[m.pos]
	m.pos++
	return a, nil
}

// Objects returns every object written so far.
func (m *MemoryArchive) Objects() []*Archiver {
	return m.objects
}

// Rewind moves the read position back to the first object.
func (m *MemoryArchive) Rewind() {
	m.pos = 0
}
