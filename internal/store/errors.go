package store

import "errors"

// Sentinel errors for snapshot operations. Lookup misses are not errors.
var (
	ErrEncodeFailed    = errors.New("snapshot encode failed")
	ErrSaveFailed      = errors.New("snapshot save failed")
	ErrLoadFailed      = errors.New("snapshot load failed")
	ErrCorruptSnapshot = errors.New("snapshot corrupt")
)
