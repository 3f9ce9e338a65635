package messaging

import "time"

type MessageBuilder struct {
	message *Message
}

func NewMessage(topic string, messageType MessageType, payload []byte) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			ID:        generateID(),
			Topic:     topic,
			Type:      messageType,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	}
}

func NewRequest(topic string, payload []byte) *MessageBuilder {
	return NewMessage(topic, MessageTypeRequest, payload)
}

// NewResponse builds the reply to request on the request's topic.
func NewResponse(request *Message, payload []byte) *MessageBuilder {
	return NewMessage(request.Topic, MessageTypeResponse, payload).ReplyTo(request.ID)
}

// NewErrorResponse builds a reply that reports err instead of a payload.
func NewErrorResponse(request *Message, err error) *MessageBuilder {
	mb := NewResponse(request, nil)
	mb.message.Error = err.Error()
	return mb
}

func NewNotification(topic string, payload []byte) *MessageBuilder {
	return NewMessage(topic, MessageTypeNotification, payload)
}

func (mb *MessageBuilder) ReplyTo(replyTo string) *MessageBuilder {
	mb.message.ReplyTo = replyTo
	return mb
}

func (mb *MessageBuilder) Headers(headers map[string]string) *MessageBuilder {
	mb.message.Headers = headers
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}
