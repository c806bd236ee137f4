// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without depending on driver-specific errors. For example,
// ErrNotFound replaces sql.ErrNoRows so the in-memory stores can report
// the same condition, while ErrConflict signals that an insert collided
// with an existing record.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no record, or
// when a delete/update affected zero rows.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an insert violates a uniqueness
// constraint (for example a duplicate id).
var ErrConflict = errors.New("conflict")
