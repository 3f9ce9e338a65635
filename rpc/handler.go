package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/storageproxy/hub"
	"github.com/tailored-agentic-units/storageproxy/messaging"
)

// NewHandler exposes responder on ExchangeProcedure. It returns the path to
// mount the handler on.
//
// A responder error is sent back in the reply's error field, not as a Connect
// error, so the caller can tell a reachable but failing responder from a
// broken transport.
func NewHandler(responder hub.Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	return ExchangeProcedure, connect.NewUnaryHandler(
		ExchangeProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			request, seq, err := decodeRequest(req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}

			reply, err := responder(ctx, request)
			if err != nil {
				reply = messaging.NewErrorResponse(request, err).Build()
			}
			if reply == nil {
				reply = messaging.NewErrorResponse(request, errors.New("no reply")).Build()
			}

			body, err := encodeReply(seq, reply)
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(body), nil
		},
		opts...,
	)
}

func decodeRequest(s *structpb.Struct) (*messaging.Message, float64, error) {
	seq, err := numberField(s, fieldSeq)
	if err != nil {
		return nil, 0, err
	}
	id, err := stringField(s, fieldID)
	if err != nil {
		return nil, 0, err
	}
	if id == "" {
		return nil, 0, fmt.Errorf("%w: missing %q", ErrMalformed, fieldID)
	}
	topic, err := stringField(s, fieldTopic)
	if err != nil {
		return nil, 0, err
	}
	data, err := stringField(s, fieldData)
	if err != nil {
		return nil, 0, err
	}

	return &messaging.Message{
		ID:        id,
		Topic:     topic,
		Type:      messaging.MessageTypeRequest,
		Payload:   []byte(data),
		Timestamp: time.Now(),
	}, seq, nil
}

// Relay returns a responder that forwards every request to the hub responder
// registered for the request's topic.
func Relay(h hub.Hub) hub.Handler {
	return func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		return h.Request(ctx, msg)
	}
}
