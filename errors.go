package solstream

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is returned by Subscribe on a stopped session
	ErrStopped = errors.New("session stopped")

	// ErrAlreadySubscribed is returned by Subscribe on a session that has
	// already been started
	ErrAlreadySubscribed = errors.New("session already subscribed")

	// ErrStreamClosed ends a session whose stream the server closed
	ErrStreamClosed = errors.New("stream closed by server")
)

// HandlerPanicError ends a session whose handler panicked
type HandlerPanicError struct {
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error
func (e *HandlerPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// DecoderPanicError ends a session whose protocol decoder panicked
type DecoderPanicError struct {
	Value any
	Stack []byte
}

func (e *DecoderPanicError) Error() string {
	return fmt.Sprintf("decoder panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error
func (e *DecoderPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
