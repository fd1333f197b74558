// Package store defines domain-specific errors
package store

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Record validation errors
	ErrInvalidRecordID  = errors.New("invalid record ID")
	ErrInvalidName      = errors.New("invalid model name")
	ErrInvalidCodec     = errors.New("record codec is required")
	ErrEmptyData        = errors.New("record data cannot be empty")
	ErrInvalidNodeCount = errors.New("node count cannot be negative")
	ErrRecordNotFound   = errors.New("record not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")

	// Capacity errors
	ErrStoreFull = errors.New("store capacity exceeded")
)
