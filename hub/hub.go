package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/storageproxy/messaging"
)

type registration struct {
	Topic   string
	Handler Handler
	Channel *MessageChannel[*messaging.Message]
	cancel  context.CancelFunc
}

type Hub interface {
	Register(topic string, handler Handler) error
	Unregister(topic string) error

	Request(ctx context.Context, message *messaging.Message) (*messaging.Message, error)
	Publish(ctx context.Context, message *messaging.Message) error

	Topics() []string
	Metrics() MetricsSnapshot
	Shutdown(timeout time.Duration) error
}

type hub struct {
	name string

	responders      map[string]*registration
	respondersMutex sync.RWMutex

	responseChannels map[string]chan *messaging.Message
	responsesMutex   sync.RWMutex

	channelBufferSize int
	defaultTimeout    time.Duration

	logger  *slog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

func New(ctx context.Context, cfg Config) Hub {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	hubCtx, cancel := context.WithCancel(ctx)

	return &hub{
		name:              defaults.Name,
		responders:        make(map[string]*registration),
		responseChannels:  make(map[string]chan *messaging.Message),
		channelBufferSize: defaults.ChannelBufferSize,
		defaultTimeout:    defaults.DefaultTimeout,
		logger:            defaults.Logger,
		metrics:           NewMetrics(),
		ctx:               hubCtx,
		cancel:            cancel,
	}
}

func (h *hub) Register(topic string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("register %s: nil handler", topic)
	}
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}

	h.respondersMutex.Lock()
	defer h.respondersMutex.Unlock()

	if _, exists := h.responders[topic]; exists {
		return fmt.Errorf("%w: %s", ErrTopicExists, topic)
	}

	regCtx, cancel := context.WithCancel(h.ctx)
	reg := &registration{
		Topic:   topic,
		Handler: handler,
		Channel: NewMessageChannel[*messaging.Message](regCtx, h.channelBufferSize),
		cancel:  cancel,
	}

	h.responders[topic] = reg
	h.metrics.RecordResponder(1)

	h.loops.Add(1)
	go h.receiveLoop(regCtx, reg)

	h.logger.DebugContext(
		h.ctx,
		"responder registered",
		slog.String("hub_name", h.name),
		slog.String("topic", topic),
	)

	return nil
}

func (h *hub) Unregister(topic string) error {
	h.respondersMutex.Lock()
	reg, exists := h.responders[topic]
	if exists {
		delete(h.responders, topic)
		reg.cancel()
	}
	h.respondersMutex.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
	}

	h.metrics.RecordResponder(-1)
	h.logger.DebugContext(
		h.ctx,
		"responder unregistered",
		slog.String("hub_name", h.name),
		slog.String("topic", topic),
	)

	return nil
}

func (h *hub) Request(ctx context.Context, message *messaging.Message) (*messaging.Message, error) {
	reg, err := h.lookup(message.Topic)
	if err != nil {
		return nil, err
	}

	responseChannel := make(chan *messaging.Message, 1)

	h.responsesMutex.Lock()
	h.responseChannels[message.ID] = responseChannel
	h.responsesMutex.Unlock()

	defer func() {
		h.responsesMutex.Lock()
		delete(h.responseChannels, message.ID)
		h.responsesMutex.Unlock()
	}()

	if err := reg.Channel.Send(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	h.metrics.RecordMessageSent(1)

	timeout := h.defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-responseChannel:
		if !response.Answers(message) {
			return nil, fmt.Errorf("%w: reply_to %q, request %q", ErrMismatchedReply, response.ReplyTo, message.ID)
		}
		if response.Failed() {
			return nil, fmt.Errorf("%w: %s", ErrHandlerFailed, response.Error)
		}
		return response, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
}

func (h *hub) Publish(ctx context.Context, message *messaging.Message) error {
	reg, err := h.lookup(message.Topic)
	if errors.Is(err, ErrTopicNotFound) {
		h.logger.DebugContext(
			ctx,
			"no responder for topic",
			slog.String("hub_name", h.name),
			slog.String("topic", message.Topic),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err := reg.Channel.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	h.metrics.RecordMessageSent(1)

	return nil
}

func (h *hub) Topics() []string {
	h.respondersMutex.RLock()
	topics := make([]string, 0, len(h.responders))
	for topic := range h.responders {
		topics = append(topics, topic)
	}
	h.respondersMutex.RUnlock()

	slices.Sort(topics)
	return topics
}

func (h *hub) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}

func (h *hub) Shutdown(timeout time.Duration) error {
	h.logger.DebugContext(
		h.ctx,
		"shutting down hub",
		slog.String("hub_name", h.name),
	)
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.loops.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("hub shutdown timeout after %v", timeout)
	}
}

func (h *hub) lookup(topic string) (*registration, error) {
	if h.ctx.Err() != nil {
		return nil, ErrHubClosed
	}

	h.respondersMutex.RLock()
	reg, exists := h.responders[topic]
	h.respondersMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
	}
	return reg, nil
}

func (h *hub) receiveLoop(ctx context.Context, reg *registration) {
	defer h.loops.Done()

	for {
		message, err := reg.Channel.Receive(ctx)
		if err != nil {
			return
		}
		h.loops.Add(1)
		go func() {
			defer h.loops.Done()
			h.handleMessage(reg, message)
		}()
	}
}

func (h *hub) handleMessage(reg *registration, message *messaging.Message) {
	h.metrics.RecordMessageRecv(1)

	response, err := reg.Handler(h.ctx, message)
	if err != nil {
		h.metrics.RecordHandlerError(1)
		h.logger.ErrorContext(
			h.ctx,
			"message handler failed",
			slog.String("hub_name", h.name),
			slog.String("topic", reg.Topic),
			slog.String("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		response = messaging.NewErrorResponse(message, err).Build()
	}

	if !message.IsRequest() {
		return
	}
	if response == nil {
		response = messaging.NewErrorResponse(message, errors.New("no reply")).Build()
	}

	h.responsesMutex.RLock()
	respChan, exists := h.responseChannels[message.ID]
	h.responsesMutex.RUnlock()

	if !exists {
		h.logger.WarnContext(
			h.ctx,
			"reply for abandoned request",
			slog.String("hub_name", h.name),
			slog.String("topic", reg.Topic),
			slog.String("message_id", message.ID),
		)
		return
	}

	select {
	case respChan <- response:
	default:
	}
}
