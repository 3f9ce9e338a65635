package hub

import "errors"

var (
	ErrTopicNotFound   = errors.New("no responder for topic")
	ErrTopicExists     = errors.New("topic already has a responder")
	ErrTimeout         = errors.New("request timed out")
	ErrHubClosed       = errors.New("hub closed")
	ErrHandlerFailed   = errors.New("responder failed")
	ErrMismatchedReply = errors.New("reply does not answer request")
)
