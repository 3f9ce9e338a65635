// Package messaging provides the topic-addressed envelope exchanged between
// a storage backend and the executor that answers it.
//
// # Message Types
//
//   - Request: Expects a response correlated by ID
//   - Response: Reply to a previous request, ReplyTo holds the request ID
//   - Notification: One-way message requiring no response
//
// # Message Construction
//
//	req := messaging.NewRequest("ledger.storage", payload).
//	    Headers(map[string]string{"op": "select"}).
//	    Build()
//
//	resp := messaging.NewResponse(req, result).Build()
//
// # Correlation
//
// Each message carries a UUIDv7 ID. Transports match a reply to its request
// by comparing the reply's ReplyTo with the request's ID; a reply whose
// ReplyTo differs belongs to some other exchange.
//
// Error responses carry a transport-level failure in Error rather than a
// payload. They never stand in for an executor fault, which travels inside
// the payload.
package messaging
