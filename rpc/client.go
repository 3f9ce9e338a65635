package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/storageproxy/messaging"
)

// Client sends topic requests to a remote responder. It is safe for
// concurrent use.
type Client struct {
	client *connect.Client[structpb.Struct, structpb.Struct]
	seq    atomic.Uint64
}

// NewClient creates a client for the responder served at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		client: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient,
			strings.TrimRight(baseURL, "/")+ExchangeProcedure,
			opts...,
		),
	}
}

// Request sends msg and returns the reply. Any failure to reach the
// responder, a reply for another sequence number, or a responder-side error
// is returned as an error.
func (c *Client) Request(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	seq := c.seq.Add(1)

	body, err := encodeRequest(seq, msg)
	if err != nil {
		return nil, fmt.Errorf("encode exchange request: %w", err)
	}

	res, err := c.client.CallUnary(ctx, connect.NewRequest(body))
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", msg.Topic, err)
	}

	return decodeReply(seq, msg, res.Msg)
}

func decodeReply(seq uint64, request *messaging.Message, reply *structpb.Struct) (*messaging.Message, error) {
	got, err := numberField(reply, fieldSeq)
	if err != nil {
		return nil, err
	}
	if got != float64(seq) {
		return nil, fmt.Errorf("%w: sent %d, got %v", ErrSequenceMismatch, seq, got)
	}

	replyTo, err := stringField(reply, fieldReplyTo)
	if err != nil {
		return nil, err
	}
	data, err := stringField(reply, fieldData)
	if err != nil {
		return nil, err
	}
	failure, err := stringField(reply, fieldError)
	if err != nil {
		return nil, err
	}
	if failure != "" {
		return nil, fmt.Errorf("%w: %s", ErrResponder, failure)
	}

	msg := messaging.NewResponse(request, []byte(data)).ReplyTo(replyTo).Build()
	if !msg.Answers(request) {
		return nil, fmt.Errorf("%w: reply_to %q, request %q", ErrMalformed, replyTo, request.ID)
	}
	return msg, nil
}
