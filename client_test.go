package solstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ridge/parallel"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/filter"
	"github.com/ridge/solstream/metrics"
	"github.com/ridge/solstream/mock"
	"github.com/ridge/solstream/protocol"
	"github.com/ridge/solstream/test"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/wire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type env struct {
	ctx      context.Context
	feed     *mock.Feed
	registry *prometheus.Registry
	events   chan event.DexEvent
	errs     chan error
}

func newEnv(t *testing.T, opts ...mock.Option) *env {
	group := test.Group(t)
	feed := mock.NewFeed(opts...)
	group.Spawn("feed", parallel.Fail, feed.Run)
	return &env{
		ctx:      group.Context(),
		feed:     feed,
		registry: prometheus.NewRegistry(),
		events:   make(chan event.DexEvent, 16),
		errs:     make(chan error, 16),
	}
}

func (e *env) client(t *testing.T, token string) *Client {
	config := DefaultConfig()
	config.EnableMetrics = true
	config.Registerer = e.registry
	c, err := New(e.feed.Endpoint(), token, config)
	require.NoError(t, err)
	return c
}

func (e *env) subscription() Subscription {
	protocols := []event.Protocol{event.PumpFun}
	accounts, transactions := filter.ForPrograms(event.ProgramIDs(protocols))
	return Subscription{
		Protocols:    protocols,
		Accounts:     accounts,
		Transactions: transactions,
		OnError: func(err error) {
			e.errs <- err
		},
	}
}

func (e *env) handle(ev event.DexEvent) {
	e.events <- ev
}

func (e *env) start(t *testing.T) (*Client, *mock.Session) {
	c := e.client(t, "")
	require.NoError(t, c.Subscribe(e.ctx, e.subscription(), e.handle))
	require.Equal(t, Streaming, c.State())
	session, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)
	return c, session
}

func blockMeta(slot uint64) *wire.SubscribeUpdate {
	return &wire.SubscribeUpdate{Filters: []string{""}, BlockMeta: &wire.BlockMetaUpdate{Slot: slot, Blockhash: "hash"}}
}

func waitDone(t *testing.T, c *Client) {
	select {
	case <-c.Done():
	case <-time.After(test.DefaultWait):
		t.Fatal("session did not stop")
	}
}

func receiveEvent(t *testing.T, events <-chan event.DexEvent) event.DexEvent {
	select {
	case ev := <-events:
		return ev
	case <-time.After(test.DefaultWait):
		t.Fatal("no event")
		return nil
	}
}

func TestSubscribeDelivers(t *testing.T) {
	e := newEnv(t, mock.WithToken("secret"))
	c := e.client(t, "secret")
	require.Equal(t, Idle, c.State())
	require.NoError(t, c.Subscribe(e.ctx, e.subscription(), e.handle))

	session, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)
	require.Equal(t, "secret", session.Token)
	require.Len(t, session.Request.Accounts, 1)
	require.Len(t, session.Request.Transactions, 1)
	require.Len(t, session.Request.Blocks, 1)
	require.Len(t, session.Request.BlocksMeta, 1)
	require.Equal(t, wire.Processed, *session.Request.Commitment)

	for slot := uint64(1); slot <= 3; slot++ {
		require.NoError(t, session.Send(blockMeta(slot)))
	}
	for slot := uint64(1); slot <= 3; slot++ {
		ev := receiveEvent(t, e.events)
		require.Equal(t, event.BlockMeta, ev.Metadata().Type)
		require.Equal(t, slot, ev.Metadata().Slot)
	}

	n, err := testutil.GatherAndCount(e.registry, "solstream_events_delivered_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	c.Stop()
	waitDone(t, c)
	require.Equal(t, Stopped, c.State())
	require.NoError(t, c.Err())
	test.AssertNothingReceived[error](t, e.errs, 100*time.Millisecond)
}

func TestStopIdempotent(t *testing.T) {
	e := newEnv(t)
	c, _ := e.start(t)

	c.Stop()
	c.Stop()
	waitDone(t, c)
	require.NoError(t, c.Err())
	require.ErrorIs(t, c.Subscribe(e.ctx, e.subscription(), e.handle), ErrStopped)
}

func TestConcurrentStopFromClones(t *testing.T) {
	e := newEnv(t)
	c, _ := e.start(t)

	var wg sync.WaitGroup
	for range 8 {
		clone := c.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			clone.Stop()
			<-clone.Done()
		}()
	}
	wg.Wait()
	require.Equal(t, Stopped, c.State())
	require.NoError(t, c.Err())
}

func TestStopBeforeSubscribe(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	c.Clone().Stop()
	waitDone(t, c)
	require.Equal(t, Stopped, c.State())
	require.ErrorIs(t, c.Subscribe(e.ctx, e.subscription(), e.handle), ErrStopped)
}

func TestSubscribeTwice(t *testing.T) {
	e := newEnv(t)
	c, _ := e.start(t)
	require.ErrorIs(t, c.Clone().Subscribe(e.ctx, e.subscription(), e.handle), ErrAlreadySubscribed)
	c.Stop()
}

func TestNoDispatchAfterStop(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	require.NoError(t, c.Subscribe(e.ctx, e.subscription(), func(ev event.DexEvent) {
		e.events <- ev
		c.Stop()
	}))
	session, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)

	for slot := uint64(1); slot <= 5; slot++ {
		_ = session.Send(blockMeta(slot))
	}
	waitDone(t, c)
	require.Equal(t, uint64(1), receiveEvent(t, e.events).Metadata().Slot)
	test.AssertNothingReceived[event.DexEvent](t, e.events, 100*time.Millisecond)
}

func TestPingAnswered(t *testing.T) {
	e := newEnv(t)
	c, session := e.start(t)
	defer c.Stop()

	require.NoError(t, session.Send(&wire.SubscribeUpdate{Ping: &wire.PingUpdate{}}))
	req, err := session.Next(e.ctx)
	require.NoError(t, err)
	require.NotNil(t, req.Ping)
	require.Equal(t, int32(1), req.Ping.ID)
	test.AssertNothingReceived[event.DexEvent](t, e.events, 100*time.Millisecond)
}

func TestRemoteClose(t *testing.T) {
	e := newEnv(t)
	c, session := e.start(t)

	session.Close(nil)
	waitDone(t, c)
	require.ErrorIs(t, c.Err(), ErrStreamClosed)
	require.True(t, test.AssertReceived[error](t, e.errs, c.Err()))
	test.AssertNothingReceived[error](t, e.errs, 100*time.Millisecond)
}

func TestTransportError(t *testing.T) {
	e := newEnv(t)
	c, session := e.start(t)

	session.Close(status.Error(codes.Internal, "node is behind"))
	waitDone(t, c)
	require.Equal(t, codes.Internal, status.Code(c.Err()))
	require.True(t, test.AssertReceived[error](t, e.errs, c.Err()))
}

func TestHandlerPanic(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	require.NoError(t, c.Subscribe(e.ctx, e.subscription(), func(ev event.DexEvent) {
		panic(errors.New("oops"))
	}))
	session, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)
	require.NoError(t, session.Send(blockMeta(1)))

	waitDone(t, c)
	var panicErr *HandlerPanicError
	require.ErrorAs(t, c.Err(), &panicErr)
	require.EqualError(t, panicErr, "handler panicked: oops")
	require.EqualError(t, errors.Unwrap(panicErr), "oops")
	require.Equal(t, metrics.ReasonHandlerPanic, terminationReason(c.Err()))
	require.True(t, test.AssertReceived[error](t, e.errs, c.Err()))
}

type panickingDecoder struct{}

func (panickingDecoder) DecodeTransaction(ctx context.Context, tx *protocol.Transaction) []event.DexEvent {
	panic("bad layout")
}

func (panickingDecoder) DecodeAccount(ctx context.Context, acc *protocol.Account) []event.DexEvent {
	return nil
}

func TestDecoderPanic(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	sub := e.subscription()
	sub.Registry = protocol.Registry{event.PumpFun: panickingDecoder{}}
	require.NoError(t, c.Subscribe(e.ctx, sub, e.handle))
	session, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)

	program := event.PumpFun.ProgramID()
	require.NoError(t, session.Send(&wire.SubscribeUpdate{Transaction: &wire.TransactionUpdate{
		Slot:        1,
		Transaction: wire.TransactionInfo{Message: wire.Message{AccountKeys: [][]byte{program[:]}}},
	}}))

	waitDone(t, c)
	var decoderErr *DecoderPanicError
	require.ErrorAs(t, c.Err(), &decoderErr)
	var handlerErr *HandlerPanicError
	require.False(t, errors.As(c.Err(), &handlerErr))
	require.EqualError(t, decoderErr, "decoder panicked: bad layout")
	require.Equal(t, metrics.ReasonDecoderPanic, terminationReason(c.Err()))
	require.True(t, test.AssertReceived[error](t, e.errs, c.Err()))
}

func TestSetupError(t *testing.T) {
	e := newEnv(t, mock.WithToken("secret"))
	c := e.client(t, "wrong")

	err := c.Subscribe(e.ctx, e.subscription(), e.handle)
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, transport.PhaseHandshake, connErr.Phase)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.False(t, connErr.Retriable())
	require.Equal(t, Stopped, c.State())
	require.Equal(t, err, c.Err())
	test.AssertNothingReceived[error](t, e.errs, 100*time.Millisecond)
}

func TestUnknownProtocol(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	custom := event.Protocol("Custom")
	sub := e.subscription()
	sub.Protocols = []event.Protocol{custom}
	sub.Registry = protocol.Registry{custom: protocol.NewAccountDecoder(custom)}
	require.ErrorContains(t, c.Subscribe(e.ctx, sub, e.handle), "unknown program")
	require.Equal(t, Stopped, c.State())
}

func TestMissingDecoder(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	sub := e.subscription()
	sub.Registry = protocol.Registry{}
	require.Error(t, c.Subscribe(e.ctx, sub, e.handle))
	require.Equal(t, Stopped, c.State())
}

func TestContextClosed(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "")
	ctx, cancel := context.WithCancel(e.ctx)
	require.NoError(t, c.Subscribe(ctx, e.subscription(), e.handle))
	_, err := e.feed.Accept(e.ctx)
	require.NoError(t, err)

	cancel()
	waitDone(t, c)
	require.NoError(t, c.Err())
}

func TestNewInvalidEndpoint(t *testing.T) {
	_, err := New("grpc.example.com:443", "", DefaultConfig())
	require.Error(t, err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "streaming", Streaming.String())
	require.Equal(t, "stopped", Stopped.String())
}
