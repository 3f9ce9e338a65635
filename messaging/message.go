package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeRequest      MessageType = "request"
	MessageTypeResponse     MessageType = "response"
	MessageTypeNotification MessageType = "notification"
)

type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Type      MessageType       `json:"type"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func (msg *Message) IsRequest() bool {
	return msg.Type == MessageTypeRequest
}

func (msg *Message) IsResponse() bool {
	return msg.Type == MessageTypeResponse
}

// Failed reports whether the message is an error response.
func (msg *Message) Failed() bool {
	return msg.Error != ""
}

// Answers reports whether msg is the reply to request.
func (msg *Message) Answers(request *Message) bool {
	return msg.IsResponse() && msg.ReplyTo == request.ID
}

func (msg *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, Topic: %s, Type: %s, ReplyTo: %s}",
		msg.ID,
		msg.Topic,
		msg.Type,
		msg.ReplyTo,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
