package remote

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/storageproxy/protocol"
)

var (
	// ErrNoTransport is returned by Select and Commit when no transport has
	// been attached. It is a configuration error and never reaches the fatal
	// handler.
	ErrNoTransport = errors.New("no transport configured")

	ErrEmptyTopic      = errors.New("topic must not be empty")
	ErrNegativeRetry   = errors.New("max retry must not be negative")
	ErrNilTransport    = errors.New("transport must not be nil")
	ErrNilFatalHandler = errors.New("fatal handler must not be nil")

	// Transport-level reply failures; both are retried.
	ErrEmptyReply   = errors.New("transport returned no reply")
	ErrForeignReply = errors.New("reply does not answer request")

	// ErrFatal matches every *FatalError.
	ErrFatal = errors.New("storage unavailable")
)

// Class is the outcome category of a failed attempt.
type Class int

const (
	ClassNone Class = iota
	ClassTransport
	ClassRemoteFault
	ClassProtocol
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransport:
		return "transport"
	case ClassRemoteFault:
		return "remote_fault"
	case ClassProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Retryable reports whether another attempt may succeed.
func (c Class) Retryable() bool {
	return c == ClassTransport || c == ClassRemoteFault
}

// Classify maps an attempt error to its class. Protocol errors and executor
// faults are recognized by their sentinels; anything else is treated as a
// transport failure.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, protocol.ErrProtocol):
		return ClassProtocol
	case errors.Is(err, protocol.ErrRemoteFault):
		return ClassRemoteFault
	default:
		return ClassTransport
	}
}

// FatalError is the terminal failure of a storage call. It is handed to the
// fatal handler and then returned to the caller.
type FatalError struct {
	Op       string
	Attempts int
	Class    Class
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("storage %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}
