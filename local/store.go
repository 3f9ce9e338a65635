// Package local implements table storage on an embedded Pebble database.
// It expects full snapshots: every commit carries all rows for each key it
// touches, and those rows replace what was stored.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/table"
)

// Option configures a Storage after it is opened.
type Option func(*Storage)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Storage) { s.observer = o }
}

// Storage stores the rows of each (table, key) pair as one JSON array.
type Storage struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	observer  observability.Observer
}

var _ table.Storage = (*Storage)(nil)

// Open creates or opens the Pebble database at cfg.Path.
func Open(cfg *Config, opts ...Option) (*Storage, error) {
	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}
	if merged.Path == "" {
		return nil, ErrNoPath
	}

	db, err := pebble.Open(merged.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", merged.Path, err)
	}

	writeOpts := pebble.Sync
	if merged.NoSync {
		writeOpts = pebble.NoSync
	}

	s := &Storage{
		db:        db,
		writeOpts: writeOpts,
		observer:  observability.NewSlogObserver(slog.Default()),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		s.observer = observability.NoOpObserver{}
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OnlyDirty reports that commits must carry full snapshots.
func (s *Storage) OnlyDirty() bool {
	return false
}

// Select loads the rows stored under key and keeps those matching filter.
func (s *Storage) Select(ctx context.Context, block table.BlockContext, tableName, key string, filter *table.Filter) (*table.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, err := s.load(tableName, key)
	if err != nil {
		return nil, err
	}

	rs := table.NewRowSet()
	for _, row := range stored {
		if filter.Match(row) {
			rs.Append(row)
		}
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventSelect,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "local.Select",
		Data: map[string]any{
			"table":   tableName,
			"key":     key,
			"stored":  len(stored),
			"matched": rs.Len(),
			"num":     block.Height,
		},
	})

	return rs, nil
}

// Commit groups the rows of every changeset by table and key value, replaces
// each group in a single batch, and returns the number of rows written.
func (s *Storage) Commit(ctx context.Context, block table.BlockContext, changes []*table.Changeset) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	groups, order, count, err := group(changes)
	if err != nil {
		return 0, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, k := range order {
		value, err := json.Marshal(groups[k])
		if err != nil {
			return 0, fmt.Errorf("encode rows for %q: %w", k, err)
		}
		if err := batch.Set([]byte(k), value, nil); err != nil {
			return 0, fmt.Errorf("stage rows for %q: %w", k, err)
		}
	}

	if err := batch.Commit(s.writeOpts); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventCommit,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "local.Commit",
		Data: map[string]any{
			"changesets": len(changes),
			"keys":       len(order),
			"rows":       count,
			"num":        block.Height,
		},
	})

	return count, nil
}

func (s *Storage) load(tableName, key string) ([]*table.Row, error) {
	value, closer, err := s.db.Get([]byte(storageKey(tableName, key)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", tableName, key, err)
	}
	defer closer.Close()

	var rows []*table.Row
	if err := json.Unmarshal(value, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorrupt, tableName, key, err)
	}
	return rows, nil
}

func group(changes []*table.Changeset) (map[string][]*table.Row, []string, int, error) {
	groups := make(map[string][]*table.Row)
	var order []string
	count := 0

	for _, cs := range changes {
		if cs == nil {
			continue
		}
		if cs.Info.Key == "" {
			return nil, nil, 0, fmt.Errorf("%w: %s", ErrNoKeyField, cs.Info.Name)
		}
		for _, row := range cs.Rows.Rows() {
			if row == nil {
				continue
			}
			keyValue, ok := row.Get(cs.Info.Key)
			if !ok {
				return nil, nil, 0, fmt.Errorf("%w: table %s, column %s", ErrMissingKey, cs.Info.Name, cs.Info.Key)
			}
			k := storageKey(cs.Info.Name, keyValue)
			if _, seen := groups[k]; !seen {
				order = append(order, k)
			}
			groups[k] = append(groups[k], row)
			count++
		}
	}

	return groups, order, count, nil
}

func storageKey(tableName, key string) string {
	return tableName + "\x00" + key
}
