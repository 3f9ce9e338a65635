package hub

import "context"

// MessageChannel is a buffered queue bound to a context. Once the context
// ends, Send and Receive fail with its error.
type MessageChannel[T any] struct {
	channel chan T
	context context.Context
}

func NewMessageChannel[T any](ctx context.Context, bufferSize int) *MessageChannel[T] {
	return &MessageChannel[T]{
		channel: make(chan T, bufferSize),
		context: ctx,
	}
}

func (mc *MessageChannel[T]) Send(ctx context.Context, message T) error {
	select {
	case mc.channel <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mc.context.Done():
		return mc.context.Err()
	}
}

func (mc *MessageChannel[T]) Receive(ctx context.Context) (T, error) {
	select {
	case message := <-mc.channel:
		return message, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-mc.context.Done():
		var zero T
		return zero, mc.context.Err()
	}
}
