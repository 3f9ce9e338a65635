package remote

import "github.com/tailored-agentic-units/storageproxy/observability"

// Remote storage event types emitted per call.
const (
	EventCallStart     observability.EventType = "storage.call.start"
	EventAttemptFailed observability.EventType = "storage.attempt.failed"
	EventCallComplete  observability.EventType = "storage.call.complete"
	EventCallFatal     observability.EventType = "storage.call.fatal"
)
