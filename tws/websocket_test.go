package tws

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/test"
	"github.com/ridge/solstream/thttp"
	"github.com/ridge/solstream/tnet"
	"github.com/stretchr/testify/require"
)

func testPair(t *testing.T, server, client SessionFn) error {
	return parallel.Run(test.Context(t), func(ctx context.Context, spawn parallel.SpawnFn) error {
		l := tnet.ListenOnRandomPort()
		httpServer := thttp.NewServer(l, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Serve(w, r, DefaultConfig, server)
		}))

		spawn("server", parallel.Fail, httpServer.Run)
		spawn("client", parallel.Exit, func(ctx context.Context) error {
			return Dial(ctx, "ws://"+l.Addr().String(), DefaultConfig, client)
		})
		return nil
	})
}

func waitClosed(ctx context.Context, incoming <-chan Message) error {
	select {
	case <-ctx.Done():
		return errors.New("context closed too early")
	case _, ok := <-incoming:
		if ok {
			return errors.New("unexpected message received")
		}
		return nil
	}
}

func noop(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error {
	return nil
}

func TestClosedByClient(t *testing.T) {
	require.NoError(t, testPair(t, func(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error {
		return waitClosed(ctx, incoming)
	}, noop))
}

func TestClosedByServer(t *testing.T) {
	require.NoError(t, testPair(t, noop, func(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error {
		return waitClosed(ctx, incoming)
	}))
}

func TestExchange(t *testing.T) {
	require.NoError(t, testPair(t, func(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error {
		outgoing <- Message{Data: []byte("a")}
		test.AssertReceived(t, incoming, Message{Data: []byte("b")})
		outgoing <- Message{Binary: true, Data: []byte{1}}
		<-incoming
		return ctx.Err()
	}, func(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error {
		test.AssertReceived(t, incoming, Message{Data: []byte("a")})
		outgoing <- Message{Data: []byte("b")}
		test.AssertReceived(t, incoming, Message{Binary: true, Data: []byte{1}})
		return nil
	}))
}
