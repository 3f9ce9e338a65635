package table

import (
	"context"
	"encoding/hex"
	"errors"
)

// Sentinel errors for the table model.
var (
	ErrUnknownOp = errors.New("unknown filter operator")
)

// Hash is a 256-bit block hash.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// BlockContext identifies the block a call is made on behalf of. Backends
// treat it as opaque correlation data and never retain it between calls.
type BlockContext struct {
	Hash   Hash
	Height int64
}

// TableInfo describes a table: its name, primary key column, and the
// ordered non-key columns.
type TableInfo struct {
	Name   string
	Key    string
	Fields []string
}

// Changeset holds the rows written to one table within a commit batch.
type Changeset struct {
	Info TableInfo
	Rows *RowSet
}

// Storage is the capability every backend provides to the ledger.
//
// OnlyDirty reports whether the backend holds only rows modified relative
// to some baseline. Callers composing backends must overlay such a backend
// on a canonical source instead of treating it as authoritative.
type Storage interface {
	// Select returns the rows stored under key in table that satisfy filter.
	// An empty, non-nil RowSet means no rows matched.
	Select(ctx context.Context, block BlockContext, table, key string, filter *Filter) (*RowSet, error)
	// Commit writes the changesets and returns the total number of rows accepted.
	Commit(ctx context.Context, block BlockContext, changes []*Changeset) (int, error)
	OnlyDirty() bool
}
