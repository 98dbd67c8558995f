package tnet

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ridge/solstream/retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaybeRetriableError marks err with retry.Retriable when it is a transient
// network or gRPC failure. Other errors, including nil, are returned as is.
func MaybeRetriableError(err error) error {
	if err == nil || retry.IsRetriable(err) {
		return err
	}
	if isTransient(err) {
		return retry.Retriable(err)
	}
	return err
}

func isTransient(err error) bool {
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded:
			return true
		case codes.Internal:
			// HTTP/2 stream resets surface as Internal
			return strings.Contains(s.Message(), "RST_STREAM")
		default:
			return false
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, target := range []error{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.EPIPE, io.ErrUnexpectedEOF} {
		if errors.Is(err, target) {
			return true
		}
	}
	// unexported error of the DNS resolver
	return strings.Contains(err.Error(), "server misbehaving")
}
