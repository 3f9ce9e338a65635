// Package remote implements table storage backed by an external executor
// reached over a topic-addressed request/response transport.
//
// Every Select and Commit is translated into a JSON request, sent to the
// configured topic, and the reply is decoded back into rows or a count.
// Failed attempts are retried up to the configured budget; when the budget is
// spent, or the reply is malformed, the fatal handler is invoked once and the
// failure is returned.
//
//	st, err := remote.New(&cfg,
//	    remote.WithTransport(client),
//	    remote.WithFatalHandler(func(err *remote.FatalError) { ... }),
//	)
//	rows, err := st.Select(ctx, block, "t_test", "LiSi", table.NewFilter().EQ("id", "1"))
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tailored-agentic-units/storageproxy/messaging"
	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/protocol"
	"github.com/tailored-agentic-units/storageproxy/table"
)

// Transport delivers a request to the executor listening on the message's
// topic and returns its reply.
type Transport interface {
	Request(ctx context.Context, message *messaging.Message) (*messaging.Message, error)
}

// FatalHandler is notified once per call that ends in a FatalError.
type FatalHandler func(err *FatalError)

// Option configures a Storage after config-driven initialization.
type Option func(*Storage)

// WithTransport attaches the transport used to reach the executor.
func WithTransport(t Transport) Option {
	return func(s *Storage) { s.transport = t }
}

// WithFatalHandler sets the handler notified of terminal failures.
func WithFatalHandler(h FatalHandler) Option {
	return func(s *Storage) { s.fatal = h }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Storage) { s.observer = o }
}

// Storage is the remote table storage backend. It holds no per-block state;
// settings may be changed between calls and are read once at the start of
// each call.
type Storage struct {
	mu        sync.RWMutex
	topic     string
	maxRetry  int
	transport Transport
	fatal     FatalHandler
	observer  observability.Observer
}

var _ table.Storage = (*Storage)(nil)

// New creates a Storage from configuration. Options applied after
// initialization attach the transport and handlers.
func New(cfg *Config, opts ...Option) (*Storage, error) {
	merged := DefaultConfig()
	if cfg != nil {
		if cfg.MaxRetry < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNegativeRetry, cfg.MaxRetry)
		}
		merged.Merge(cfg)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	s := &Storage{
		topic:    merged.Topic,
		maxRetry: merged.MaxRetry,
		observer: observability.NewSlogObserver(slog.Default()),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// OnlyDirty reports that commits carry only changed rows.
func (s *Storage) OnlyDirty() bool {
	return true
}

// SetTopic changes the executor topic used by later calls.
func (s *Storage) SetTopic(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
	return nil
}

// SetMaxRetry changes how many times a failed attempt is retried. Zero
// means a single attempt.
func (s *Storage) SetMaxRetry(maxRetry int) error {
	if maxRetry < 0 {
		return ErrNegativeRetry
	}
	s.mu.Lock()
	s.maxRetry = maxRetry
	s.mu.Unlock()
	return nil
}

// SetTransport replaces the transport used by later calls.
func (s *Storage) SetTransport(t Transport) error {
	if t == nil {
		return ErrNilTransport
	}
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	return nil
}

// SetFatalHandler replaces the handler notified of terminal failures.
func (s *Storage) SetFatalHandler(h FatalHandler) error {
	if h == nil {
		return ErrNilFatalHandler
	}
	s.mu.Lock()
	s.fatal = h
	s.mu.Unlock()
	return nil
}

// Topic returns the topic requests are addressed to.
func (s *Storage) Topic() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic
}

// MaxRetry returns the number of retries allowed after the first attempt.
func (s *Storage) MaxRetry() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxRetry
}

// Select returns the rows of tableName stored under key that satisfy filter.
// The executor evaluates the filter. An unknown key yields an empty RowSet.
func (s *Storage) Select(ctx context.Context, block table.BlockContext, tableName, key string, filter *table.Filter) (*table.RowSet, error) {
	var rows *table.RowSet

	err := s.call(ctx, callSpec{
		op:     protocol.OpSelect,
		source: "remote.Select",
		data: map[string]any{
			"table":      tableName,
			"key":        key,
			"predicates": filter.Len(),
			"num":        block.Height,
		},
		encode: func() (*protocol.Request, error) {
			return protocol.EncodeSelect(block, tableName, key, filter), nil
		},
		decode: func(payload []byte) error {
			rs, err := protocol.DecodeSelectResponse(payload)
			if err != nil {
				return err
			}
			rows = rs
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Commit writes the changed rows of every changeset in one request and
// returns the number of rows the executor accepted.
func (s *Storage) Commit(ctx context.Context, block table.BlockContext, changes []*table.Changeset) (int, error) {
	var count int

	rows := 0
	for _, cs := range changes {
		if cs != nil {
			rows += cs.Rows.Len()
		}
	}

	err := s.call(ctx, callSpec{
		op:     protocol.OpCommit,
		source: "remote.Commit",
		data: map[string]any{
			"changesets": len(changes),
			"rows":       rows,
			"num":        block.Height,
		},
		encode: func() (*protocol.Request, error) {
			return protocol.EncodeCommit(block, changes)
		},
		decode: func(payload []byte) error {
			n, err := protocol.DecodeCommitResponse(payload)
			if err != nil {
				return err
			}
			count = n
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
