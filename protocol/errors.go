package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against FaultError and ProtocolError.
var (
	ErrRemoteFault = errors.New("remote fault")
	ErrProtocol    = errors.New("protocol error")
)

// FaultError is an explicit rejection by the storage executor: a response
// whose status code is non-zero.
type FaultError struct {
	Op      string
	Code    int
	Message string
}

func (e *FaultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote fault (code %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: remote fault (code %d): %s", e.Op, e.Code, e.Message)
}

func (e *FaultError) Is(target error) bool {
	return target == ErrRemoteFault
}

// ProtocolError reports a message that does not have the shape this codec
// expects. It indicates a protocol mismatch with the executor.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: protocol error: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErrorf(op string, err error, format string, args ...any) *ProtocolError {
	return &ProtocolError{Op: op, Reason: fmt.Sprintf(format, args...), Err: err}
}
