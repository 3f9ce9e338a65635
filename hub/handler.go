package hub

import (
	"context"

	"github.com/tailored-agentic-units/storageproxy/messaging"
)

// Handler serves messages addressed to a topic. For a request it returns the
// reply; for a notification the return value is discarded.
type Handler func(ctx context.Context, message *messaging.Message) (*messaging.Message, error)
