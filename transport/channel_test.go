package transport_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/mock"
	"github.com/ridge/solstream/test"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/wire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func startFeed(t *testing.T, opts ...mock.Option) (*mock.Feed, *parallel.Group) {
	group := test.Group(t)
	feed := mock.NewFeed(opts...)
	group.Spawn("feed", parallel.Fail, feed.Run)
	return feed, group
}

func TestSubscribe(t *testing.T) {
	feed, group := startFeed(t, mock.WithToken("secret"))
	ctx := group.Context()

	ch, err := transport.Dial(ctx, feed.Endpoint(), "secret", transport.DefaultConfig())
	require.NoError(t, err)
	defer ch.Close()

	req := &wire.SubscribeRequest{
		BlocksMeta: map[string]*wire.BlocksMetaFilter{"": {}},
		Commitment: wire.Commitment(wire.Confirmed),
	}
	stream, err := ch.Subscribe(ctx, req)
	require.NoError(t, err)
	defer stream.Close()

	session, err := feed.Accept(ctx)
	require.NoError(t, err)
	require.Equal(t, "secret", session.Token)
	require.Equal(t, wire.Confirmed, *session.Request.Commitment)
	require.Contains(t, session.Request.BlocksMeta, "")

	require.NoError(t, session.Send(&wire.SubscribeUpdate{Filters: []string{"slot"}, Slot: &wire.SlotUpdate{Slot: 42}}))
	u, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, uint64(42), u.Slot.Slot)
	require.Equal(t, []string{"slot"}, u.Filters)

	require.NoError(t, stream.Send(&wire.SubscribeRequest{Ping: &wire.Ping{ID: 1}}))
	next, err := session.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), next.Ping.ID)

	session.Close(nil)
	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)

	stream.Close()
	stream.Close()
}

func TestSubscribeRejected(t *testing.T) {
	feed, group := startFeed(t, mock.WithToken("secret"))
	ctx := group.Context()

	ch, err := transport.Dial(ctx, feed.Endpoint(), "wrong", transport.DefaultConfig())
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Subscribe(ctx, &wire.SubscribeRequest{})
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, transport.PhaseHandshake, connErr.Phase)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.False(t, connErr.Retriable())
}

func TestSubscribeTimeout(t *testing.T) {
	feed, group := startFeed(t, mock.WithoutResponse())
	ctx := group.Context()

	config := transport.DefaultConfig()
	config.RequestTimeout = 200 * time.Millisecond
	ch, err := transport.Dial(ctx, feed.Endpoint(), "", config)
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Subscribe(ctx, &wire.SubscribeRequest{})
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, transport.PhaseHandshake, connErr.Phase)
	require.True(t, connErr.Retriable())
}

func TestDialUnreachable(t *testing.T) {
	ctx := test.Context(t)

	config := transport.DefaultConfig()
	config.ConnectTimeout = 300 * time.Millisecond
	// reserved TEST-NET-1 address, nothing answers there
	_, err := transport.Dial(ctx, "http://192.0.2.1:10000", "", config)
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, transport.PhaseConnect, connErr.Phase)
	require.Equal(t, "http://192.0.2.1:10000", connErr.Endpoint)
	require.True(t, connErr.Retriable())
	require.Error(t, errors.Unwrap(err))
}

func TestDialBadEndpoint(t *testing.T) {
	_, err := transport.Dial(test.Context(t), "ftp://example.com", "", transport.DefaultConfig())
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, transport.PhaseConnect, connErr.Phase)
}
