// Package hub provides an in-process, topic-addressed request/response broker.
//
// A responder registers a handler for a topic. Callers send a request to the
// topic and block until the responder's reply arrives, the caller's context
// ends, or the hub's default timeout elapses. Replies are correlated to the
// pending request by message ID.
//
// # Responder Registration
//
//	h := hub.New(ctx, hub.DefaultConfig())
//
//	handler := func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
//	    result := execute(msg.Payload)
//	    return messaging.NewResponse(msg, result).Build(), nil
//	}
//
//	err := h.Register("ledger.storage", handler)
//
// A topic has at most one responder. Register fails with ErrTopicExists for
// a topic that is already served.
//
// # Communication Patterns
//
// Request-Response:
//
//	req := messaging.NewRequest("ledger.storage", payload).Build()
//	reply, err := h.Request(ctx, req)
//
// Notification:
//
//	err := h.Publish(ctx, messaging.NewNotification("ledger.events", payload).Build())
//
// # Handler Errors
//
// A handler that returns an error produces an error reply. Request surfaces it
// as an error wrapping ErrHandlerFailed. A reply that does not answer the
// pending request surfaces as ErrMismatchedReply.
//
// # Lifecycle Management
//
//	err := h.Shutdown(5 * time.Second)
//
// Shutdown stops every responder loop and waits for them to exit.
//
// # Concurrency
//
//   - Each responder has a dedicated receive loop
//   - Handlers execute concurrently per message
//   - Registration and pending requests are synchronized
package hub
