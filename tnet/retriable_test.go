package tnet

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/ridge/solstream/retry"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMaybeRetriableError(t *testing.T) {
	require.Nil(t, MaybeRetriableError(nil))

	for _, err := range []error{
		status.Error(codes.Unavailable, "connection refused"),
		status.Error(codes.ResourceExhausted, "too many subscriptions"),
		status.Error(codes.Internal, "stream terminated by RST_STREAM with error code: INTERNAL_ERROR"),
		fmt.Errorf("reading: %w", syscall.ECONNRESET),
		io.ErrUnexpectedEOF,
	} {
		require.True(t, retry.IsRetriable(MaybeRetriableError(err)), err.Error())
	}

	for _, err := range []error{
		status.Error(codes.Unauthenticated, "invalid token"),
		status.Error(codes.Internal, "grpc: failed to unmarshal the received message"),
		errors.New("boom"),
	} {
		require.False(t, retry.IsRetriable(MaybeRetriableError(err)), err.Error())
	}
}

func TestMaybeRetriableErrorKeepsMark(t *testing.T) {
	err := retry.Retriable(errors.New("x"))
	require.Equal(t, err, MaybeRetriableError(err))
}
