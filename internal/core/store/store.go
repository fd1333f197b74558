// Package store provides model persistence interfaces
package store

import (
	"context"
	"sort"
	"time"
)

// Store interface for archived model persistence (DIP - Dependency Inversion)
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Core domain depends on interface, not implementations
// - SRP: Single responsibility - record persistence
type Store interface {
	// Save persists a record, replacing any record with the same ID
	Save(ctx context.Context, record *Record) error

	// Load retrieves a record by ID
	Load(ctx context.Context, id string) (*Record, error)

	// List returns records matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Delete removes a record by ID
	Delete(ctx context.Context, id string) error
}

// Filter for record queries (ISP - segregated interface)
type Filter struct {
	Name   string     `json:"name,omitempty"`
	Tags   []string   `json:"tags,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches applies every predicate of the filter except paging. Since is
// inclusive and Before exclusive.
func (f *Filter) Matches(r *Record) bool {
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Before != nil && !r.CreatedAt.Before(*f.Before) {
		return false
	}
	return r.HasTags(f.Tags)
}

// Apply filters, orders and pages records for stores that cannot query
// natively. The input slice is reordered.
func (f *Filter) Apply(records []*Record) []*Record {
	matched := records[:0]
	for _, r := range records {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	SortNewestFirst(matched)

	if f.Offset >= len(matched) {
		return nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// SortNewestFirst orders records by creation time descending, then by ID.
func SortNewestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
