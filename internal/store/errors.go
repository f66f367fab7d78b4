package store

import "errors"

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)
