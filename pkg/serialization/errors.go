// Package serialization defines archive and codec errors
package serialization

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// Registry errors
	ErrUnknownType = errors.New("unknown type tag")

	// Archiver errors
	ErrMissingProperty  = errors.New("missing property")
	ErrUnsupportedValue = errors.New("unsupported property value")
	ErrMalformedObject  = errors.New("malformed archive object")
	ErrNumberRange      = errors.New("number does not fit the property type")

	// Pipeline errors
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext size")
	ErrWriterClosed       = errors.New("archive writer is closed")
)

// UnknownTypeError reports a type tag with no registered factory.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownType.Error(), e.Tag)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// MissingPropertyError reports a required property absent from an archived object.
type MissingPropertyError struct {
	Object   string // type tag of the object being read
	Property string
}

func (e *MissingPropertyError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("%s: %q", ErrMissingProperty.Error(), e.Property)
	}
	return fmt.Sprintf("%s: %q on %s", ErrMissingProperty.Error(), e.Property, e.Object)
}

func (e *MissingPropertyError) Unwrap() error { return ErrMissingProperty }
