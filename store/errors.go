package store

import "errors"

var (
	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("store: closed")

	// ErrCorruptEntry indicates a persisted state could not be decoded.
	ErrCorruptEntry = errors.New("store: corrupt entry")
)
