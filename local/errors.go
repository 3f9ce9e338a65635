package local

import "errors"

// Sentinel errors for local store operations.
var (
	ErrNoPath     = errors.New("local store path is required")
	ErrMissingKey = errors.New("row is missing the table key column")
	ErrNoKeyField = errors.New("table has no key column")
	ErrCorrupt    = errors.New("stored rows are corrupt")
)
