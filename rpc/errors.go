package rpc

import "errors"

var (
	ErrSequenceMismatch = errors.New("reply sequence does not match request")
	ErrMalformed        = errors.New("malformed exchange message")
	ErrResponder        = errors.New("responder failed")
)
