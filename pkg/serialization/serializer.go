// Package serialization provides the archive layer for portgraph models:
// a format-agnostic property Archiver, a tag-to-factory Registry, and the
// codec pipeline (encode, compress, encrypt) that turns archived objects
// into bytes.
// PRINCIPLES:
// - KISS: Simple interface with multiple codec implementations
// - DRY: One pipeline shared by files, HTTP uploads and every store adapter
// - SOLID: Interface segregation for different codecs
package serialization

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Encoder writes one value at a time to an underlying stream.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads one value at a time and returns io.EOF after the last one.
type Decoder interface {
	Decode(v any) error
}

// Codec interface for serialization
// PRINCIPLES:
// - ISP: Simple interface with ≤5 methods
// - SRP: Single responsibility for serialization
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	NewEncoder(w io.Writer) Encoder
	NewDecoder(r io.Reader) Decoder
	Name() string
}

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// ParseCompression maps a name ("" means none) to a CompressionType.
func ParseCompression(name string) (CompressionType, error) {
	switch CompressionType(strings.ToLower(name)) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip:
		return CompressionGzip, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// SerializationConfig holds serialization settings
type SerializationConfig struct {
	Codec       Codec
	Compression CompressionType
	EncryptKey  []byte // AES-256 key (32 bytes)
}

// Serializer provides complete serialization with compression and encryption
// PRINCIPLES:
// - KISS: Simple interface hiding complex operations
// - SRP: Single responsibility for complete serialization pipeline
type Serializer struct {
	config SerializationConfig
}

// NewSerializer creates a new serializer with configuration
func NewSerializer(config SerializationConfig) *Serializer {
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// Codec returns the configured codec.
func (s *Serializer) Codec() Codec {
	return s.config.Codec
}

// Compression returns the configured compression.
func (s *Serializer) Compression() CompressionType {
	return s.config.Compression
}

// Encrypted reports whether payloads are sealed with AES-GCM.
func (s *Serializer) Encrypted() bool {
	return len(s.config.EncryptKey) > 0
}

// Serialize encodes, compresses, and encrypts a single value
func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}

	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	if s.Encrypted() {
		data, err = s.encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}

	return data, nil
}

// Deserialize decrypts, decompresses, and decodes a single value
func (s *Serializer) Deserialize(data []byte, v any) error {
	var err error

	if s.Encrypted() {
		data, err = s.decrypt(data)
		if err != nil {
			return fmt.Errorf("decryption failed: %w", err)
		}
	}

	data, err = s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}

	if err := s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("codec decoding failed: %w", err)
	}

	return nil
}

// compress applies compression based on configuration
func (s *Serializer) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := s.compressWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress removes compression based on configuration
func (s *Serializer) decompress(data []byte) ([]byte, error) {
	r, err := s.decompressReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// compressWriter wraps w so that everything written is compressed. Closing
// the returned writer flushes the compressor but leaves w open.
func (s *Serializer) compressWriter(w io.Writer) (io.WriteCloser, error) {
	switch s.config.Compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, s.config.Compression)
	}
}

// decompressReader wraps r so that reads return decompressed bytes.
func (s *Serializer) decompressReader(r io.Reader) (io.ReadCloser, error) {
	switch s.config.Compression {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, s.config.Compression)
	}
}

// encrypt encrypts data using AES-GCM
func (s *Serializer) encrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// decrypt decrypts data using AES-GCM
func (s *Serializer) decrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func (s *Serializer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.config.EncryptKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// JSONCodec implements JSON serialization. Archives are newline-delimited
// JSON, one object per line. Numbers are decoded as json.Number so that
// integers survive without a float round trip.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return c.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *JSONCodec) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (c *JSONCodec) NewDecoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func (c *JSONCodec) Name() string {
	return "json"
}

// MsgPackCodec implements MessagePack serialization
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *MsgPackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgPackCodec) NewEncoder(w io.Writer) Encoder {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc
}

func (c *MsgPackCodec) NewDecoder(r io.Reader) Decoder {
	return msgpack.NewDecoder(r)
}

func (c *MsgPackCodec) Name() string {
	return "msgpack"
}

// YAMLCodec implements YAML serialization. Archives are multi-document
// streams, one object per document.
type YAMLCodec struct{}

func (c *YAMLCodec) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (c *YAMLCodec) Decode(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (c *YAMLCodec) NewEncoder(w io.Writer) Encoder {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc
}

func (c *YAMLCodec) NewDecoder(r io.Reader) Decoder {
	return yaml.NewDecoder(r)
}

func (c *YAMLCodec) Name() string {
	return "yaml"
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() Codec {
	return &JSONCodec{}
}

// NewMsgPackCodec creates a new MessagePack codec
func NewMsgPackCodec() Codec {
	return &MsgPackCodec{}
}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() Codec {
	return &YAMLCodec{}
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json":
		return NewJSONCodec(), nil
	case "msgpack", "mp":
		return NewMsgPackCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// ForFormat builds a serializer from codec and compression names.
func ForFormat(codec, compression string, encryptKey []byte) (*Serializer, error) {
	c, err := CodecByName(codec)
	if err != nil {
		return nil, err
	}
	comp, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	return NewSerializer(SerializationConfig{Codec: c, Compression: comp, EncryptKey: encryptKey}), nil
}

// ForPath infers codec and compression from a file name such as
// "model.json", "model.msgpack.zst" or "model.yaml.gz".
func ForPath(path string, encryptKey []byte) (*Serializer, error) {
	base := strings.ToLower(filepath.Base(path))
	compression := CompressionNone
	switch {
	case strings.HasSuffix(base, ".gz"):
		compression = CompressionGzip
		base = strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".zst"):
		compression = CompressionZstd
		base = strings.TrimSuffix(base, ".zst")
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: no extension on %q", ErrUnknownCodec, path)
	}
	return ForFormat(ext, string(compression), encryptKey)
}

// archiveMediaTypes maps HTTP media types to codec names.
// application/octet-stream names no codec.
var archiveMediaTypes = map[string]string{
	"application/json":         "json",
	"application/x-ndjson":     "json",
	"application/msgpack":      "msgpack",
	"application/x-msgpack":    "msgpack",
	"application/yaml":         "yaml",
	"application/x-yaml":       "yaml",
	"text/yaml":                "yaml",
	"application/octet-stream": "",
}

// CodecForMediaType returns the codec named by a Content-Type value. ok is
// false when the media type is not an archive encoding.
func CodecForMediaType(contentType string) (codec string, ok bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	codec, ok = archiveMediaTypes[mediaType]
	return codec, ok
}

// DefaultSerializer creates a serializer with sensible defaults
func DefaultSerializer() *Serializer {
	return NewSerializer(SerializationConfig{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}
