package models

import "errors"

// ErrNotFound is returned by the repository when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrStaleState is returned when a guarded update finds the row no longer in the
// state the caller read it in.
var ErrStaleState = errors.New("record changed concurrently")
