package remote

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/tailored-agentic-units/storageproxy/messaging"
	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/protocol"
)

type callSpec struct {
	op     string
	source string
	data   map[string]any
	encode func() (*protocol.Request, error)
	decode func(payload []byte) error
}

type settings struct {
	topic     string
	maxRetry  int
	transport Transport
	fatal     FatalHandler
	observer  observability.Observer
}

func (s *Storage) snapshot() settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	observer := s.observer
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return settings{
		topic:     s.topic,
		maxRetry:  s.maxRetry,
		transport: s.transport,
		fatal:     s.fatal,
		observer:  observer,
	}
}

// call runs the encode, request, decode pipeline up to maxRetry+1 times.
// Transport failures and executor faults consume one attempt each. A protocol
// error ends the call at once. A cancelled context ends the call with the
// context error and is never escalated.
func (s *Storage) call(ctx context.Context, spec callSpec) error {
	cfg := s.snapshot()
	if cfg.transport == nil {
		return ErrNoTransport
	}

	budget := cfg.maxRetry + 1

	cfg.observer.OnEvent(ctx, observability.Event{
		Type:      EventCallStart,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    spec.source,
		Data:      with(spec.data, "topic", cfg.topic, "budget", budget),
	})

	var (
		lastErr  error
		class    Class
		attempts int
	)

	for attempts < budget {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++

		lastErr = s.attempt(ctx, cfg, spec)
		if lastErr == nil {
			cfg.observer.OnEvent(ctx, observability.Event{
				Type:      EventCallComplete,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    spec.source,
				Data:      with(spec.data, observability.AttemptsKey, attempts),
			})
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		class = Classify(lastErr)
		cfg.observer.OnEvent(ctx, observability.Event{
			Type:      EventAttemptFailed,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    spec.source,
			Data: with(spec.data,
				"attempt", attempts,
				"class", class.String(),
				"error", lastErr.Error(),
			),
		})

		if !class.Retryable() {
			break
		}
	}

	fatal := &FatalError{
		Op:       spec.op,
		Attempts: attempts,
		Class:    class,
		Err:      lastErr,
	}

	cfg.observer.OnEvent(ctx, observability.Event{
		Type:      EventCallFatal,
		Level:     observability.LevelError,
		Timestamp: time.Now(),
		Source:    spec.source,
		Data: with(spec.data,
			observability.AttemptsKey, attempts,
			"class", class.String(),
			"error", lastErr.Error(),
		),
	})

	if cfg.fatal != nil {
		cfg.fatal(fatal)
	}
	return fatal
}

func (s *Storage) attempt(ctx context.Context, cfg settings, spec callSpec) error {
	req, err := spec.encode()
	if err != nil {
		return err
	}
	payload, err := req.Marshal()
	if err != nil {
		return err
	}

	message := messaging.NewRequest(cfg.topic, payload).
		Headers(map[string]string{"op": spec.op}).
		Build()

	reply, err := cfg.transport.Request(ctx, message)
	if err != nil {
		return err
	}
	if reply == nil {
		return ErrEmptyReply
	}
	if !reply.Answers(message) {
		return fmt.Errorf("%w: reply_to %q, request %q", ErrForeignReply, reply.ReplyTo, message.ID)
	}

	return spec.decode(reply.Payload)
}

// with returns a copy of data extended with the given key/value pairs.
func with(data map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(data)+len(kv)/2)
	maps.Copy(out, data)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}
