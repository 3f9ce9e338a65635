package rpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/storageproxy/messaging"
)

// ExchangeProcedure is the Connect procedure served by NewHandler.
const ExchangeProcedure = "/storageproxy.v1.ExecutorService/Exchange"

const (
	fieldSeq     = "seq"
	fieldID      = "id"
	fieldReplyTo = "reply_to"
	fieldTopic   = "topic"
	fieldData    = "data"
	fieldError   = "error"
)

func encodeRequest(seq uint64, msg *messaging.Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldSeq:   float64(seq),
		fieldID:    msg.ID,
		fieldTopic: msg.Topic,
		fieldData:  string(msg.Payload),
	})
}

func encodeReply(seq float64, reply *messaging.Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldSeq:     seq,
		fieldReplyTo: reply.ReplyTo,
		fieldTopic:   reply.Topic,
		fieldData:    string(reply.Payload),
		fieldError:   reply.Error,
	})
}

func numberField(s *structpb.Struct, name string) (float64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformed, name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformed, name)
	}
	return n.NumberValue, nil
}

// stringField returns "" for an absent field and fails on a non-string.
func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", nil
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrMalformed, name)
	}
	return str.StringValue, nil
}
