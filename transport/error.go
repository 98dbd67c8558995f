package transport

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Phase is the stage of session setup an error happened in
type Phase string

// Phase values
const (
	PhaseConnect   Phase = "connect"
	PhaseHandshake Phase = "handshake"
)

// ConnectionError is returned when a session cannot be set up
type ConnectionError struct {
	Phase    Phase
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s to %s failed: %v", e.Phase, e.Endpoint, e.Err)
}

// Unwrap returns the cause
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Retriable reports whether a new attempt might succeed.
//
// Connect failures are always worth a retry. Handshake failures are not when
// the server rejected the credentials or the request.
func (e *ConnectionError) Retriable() bool {
	if e.Phase == PhaseConnect {
		return true
	}
	switch status.Code(e.Err) {
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.Unimplemented:
		return false
	default:
		return true
	}
}
