// Package store provides the stored-model record and the persistence port
// implemented by the repository adapters.
package store

import (
	"time"
)

// Record is one archived model at rest
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only describes the stored archive, never decodes it
type Record struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FormatVersion string    `json:"format_version"`
	Codec         string    `json:"codec"`
	Compression   string    `json:"compression"`
	NodeCount     int       `json:"node_count"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	// Data holds the encoded archive exactly as written by the serializer.
	Data []byte `json:"-"`
}

// Validate ensures record integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation rules, easy to understand
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrInvalidRecordID
	}
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Codec == "" {
		return ErrInvalidCodec
	}
	if len(r.Data) == 0 {
		return ErrEmptyData
	}
	if r.NodeCount < 0 {
		return ErrInvalidNodeCount
	}
	return nil
}

// HasTags reports whether r carries every tag in tags.
func (r *Record) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range r.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Data != nil {
		c.Data = append([]byte(nil), r.Data...)
	}
	return &c
}
