package hub

import "sync/atomic"

type MetricsSnapshot struct {
	Responders    int64
	MessagesSent  int64
	MessagesRecv  int64
	HandlerErrors int64
}

type Metrics struct {
	responders    atomic.Int64
	messagesSent  atomic.Int64
	messagesRecv  atomic.Int64
	handlerErrors atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordResponder(delta int) {
	m.responders.Add(int64(delta))
}

func (m *Metrics) RecordMessageSent(delta int) {
	m.messagesSent.Add(int64(delta))
}

func (m *Metrics) RecordMessageRecv(delta int) {
	m.messagesRecv.Add(int64(delta))
}

func (m *Metrics) RecordHandlerError(delta int) {
	m.handlerErrors.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Responders:    m.responders.Load(),
		MessagesSent:  m.messagesSent.Load(),
		MessagesRecv:  m.messagesRecv.Load(),
		HandlerErrors: m.handlerErrors.Load(),
	}
}
