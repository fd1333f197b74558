package services

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flowgraph/portgraph/pkg/serialization"
)

// Encoding names an archive's codec and compression.
type Encoding struct {
	Codec       string `json:"codec" validate:"required,codec"`
	Compression string `json:"compression" validate:"omitempty,compression"`
}

// DefaultEncoding is used for stored archives unless configured otherwise.
var DefaultEncoding = Encoding{Codec: "msgpack", Compression: "zstd"}

// ParseEncoding reads "codec" or "codec+compression", e.g. "yaml+gzip".
func ParseEncoding(s string) (Encoding, error) {
	codec, compression, _ := strings.Cut(strings.TrimSpace(s), "+")
	e := Encoding{Codec: strings.ToLower(codec), Compression: strings.ToLower(compression)}
	if _, err := e.serializer(nil); err != nil {
		return Encoding{}, err
	}
	return e, nil
}

func (e Encoding) String() string {
	if e.Compression == "" || e.Compression == string(serialization.CompressionNone) {
		return e.Codec
	}
	return e.Codec + "+" + e.Compression
}

// Serializer builds the serializer for e, encrypting with key when set.
func (e Encoding) Serializer(key []byte) (*serialization.Serializer, error) {
	return e.serializer(key)
}

func (e Encoding) serializer(key []byte) (*serialization.Serializer, error) {
	return serialization.ForFormat(e.Codec, e.Compression, key)
}

// ConvertArchive re-encodes an archive object by object without building a
// model, so archives holding unknown node kinds convert too. It returns the
// number of objects copied.
func ConvertArchive(r io.Reader, from *serialization.Serializer, w io.Writer, to *serialization.Serializer) (int, error) {
	reader, err := from.NewArchiveReader(r)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	writer, err := to.NewArchiveWriter(w)
	if err != nil {
		return 0, err
	}

	for {
		obj, err := reader.ReadObject()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writer.Close()
			return writer.Count(), fmt.Errorf("object %d: %w", writer.Count()+1, err)
		}
		if err := writer.WriteObject(obj); err != nil {
			writer.Close()
			return writer.Count(), err
		}
	}

	if err := writer.Close(); err != nil {
		return writer.Count(), err
	}
	return writer.Count(), nil
}
