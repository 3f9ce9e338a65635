package local

import "github.com/tailored-agentic-units/storageproxy/observability"

// Local store event types.
const (
	EventSelect observability.EventType = "storage.local.select"
	EventCommit observability.EventType = "storage.local.commit"
)
