package solstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/dispatch"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/filter"
	"github.com/ridge/solstream/metrics"
	"github.com/ridge/solstream/protocol"
	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/wire"
	"go.uber.org/zap"
)

// Handler receives decoded events, one at a time
type Handler = dispatch.Handler

// Subscription describes what a session subscribes to
type Subscription struct {
	// Protocols whose decoders receive matching updates, in this order
	Protocols []event.Protocol

	Transactions []filter.TransactionFilter
	Accounts     []filter.AccountFilter

	// EventTypes restricts the subscribed sections and the delivered events.
	// nil means no restriction.
	EventTypes *filter.EventTypeFilter

	// Commitment defaults to processed
	Commitment *wire.CommitmentLevel

	// Registry supplies the decoders. nil means protocol.DefaultRegistry().
	Registry protocol.Registry

	// OnError is called once with the error that ended a streaming session.
	// It is not called when the session is stopped or fails to start.
	OnError func(err error)
}

// pingRequest answers server keep-alive pings
var pingRequest = &wire.SubscribeRequest{Ping: &wire.Ping{ID: 1}}

// session is the state shared by a Client and its clones
type session struct {
	stopped atomic.Bool

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc // set once Subscribe has started
	done   chan struct{}
}

func (s *session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Stopped {
		s.state = state
	}
}

// finish moves the session to Stopped with the given terminal error. Returns
// false if the session was already stopped.
func (s *session) finish(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked(err)
}

func (s *session) finishLocked(err error) bool {
	if s.state == Stopped {
		return false
	}
	s.state = Stopped
	s.err = err
	s.stopped.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	return true
}

// Client is a handle to a subscription session
type Client struct {
	endpoint string
	token    string
	config   Config
	metrics  *metrics.Metrics

	s *session
}

// New creates a Client in the Idle state. Nothing is connected until
// Subscribe.
func New(endpoint, token string, config Config) (*Client, error) {
	if _, err := transport.ParseEndpoint(endpoint); err != nil {
		return nil, err
	}
	config.Connection = config.Connection.WithDefaults()

	c := &Client{
		endpoint: endpoint,
		token:    token,
		config:   config,
		s:        &session{done: make(chan struct{})},
	}
	if config.EnableMetrics {
		m, err := metrics.New(config.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		c.metrics = m
	}
	return c, nil
}

// Clone returns a handle to the same session
func (c *Client) Clone() *Client {
	clone := *c
	return &clone
}

// State returns the current state of the session
func (c *Client) State() State {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state
}

// Done is closed when the session is stopped
func (c *Client) Done() <-chan struct{} {
	return c.s.done
}

// Err returns the error that ended the session: nil while it runs and after a
// stop.
func (c *Client) Err() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.err
}

// Stop asks the session to stop. It returns without waiting for the read loop;
// wait on Done for that.
//
// An event being handled when Stop is called is not interrupted, but no
// update received afterwards is dispatched. Stopping an Idle session makes it
// Stopped immediately.
func (c *Client) Stop() {
	s := c.s
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		s.finishLocked(nil)
		return
	}
	s.cancel()
}

// Subscribe starts the session: it compiles the subscription into a request,
// connects, opens the stream and starts the read loop. Returns once the session
// is Streaming.
//
// The session runs until Stop is called, ctx is closed or the stream fails. A
// setup error is returned here and also leaves the session Stopped with that
// error.
func (c *Client) Subscribe(ctx context.Context, sub Subscription, handler Handler) error {
	s := c.s
	s.mu.Lock()
	switch {
	case s.state == Stopped || s.stopped.Load():
		s.mu.Unlock()
		return ErrStopped
	case s.cancel != nil:
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	ctx = tlog.With(ctx, zap.String("endpoint", c.endpoint))
	logger := tlog.Get(ctx)

	ch, stream, d, err := c.setup(ctx, sub, handler)
	if err != nil {
		if s.stopped.Load() {
			logger.Debug("Stopped during setup", zap.Error(err))
			s.finish(nil)
			return ErrStopped
		}
		logger.Warn("Subscription failed", zap.Error(err))
		c.metrics.SetupFailed()
		s.finish(err)
		return err
	}

	s.setState(Streaming)
	c.metrics.SessionStarted()
	logger.Info("Streaming", zap.Strings("protocols", protocolNames(sub.Protocols)))

	group := parallel.NewGroup(ctx)
	group.Spawn("updates", parallel.Exit, func(ctx context.Context) error {
		defer ch.Close()
		defer stream.Close()
		return c.read(ctx, stream, d)
	})
	go c.wait(ctx, group, sub.OnError)
	return nil
}

func (c *Client) setup(ctx context.Context, sub Subscription, handler Handler) (*transport.Channel, *transport.Stream, *dispatch.Dispatcher, error) {
	registry := sub.Registry
	if registry == nil {
		registry = protocol.DefaultRegistry()
	}
	d, err := dispatch.New(sub.Protocols, registry, sub.EventTypes, c.countEvents(guard(handler)))
	if err != nil {
		return nil, nil, nil, err
	}

	req := filter.Compile(sub.Accounts, sub.Transactions, sub.EventTypes, sub.Commitment)
	tlog.Get(ctx).Debug("Compiled request", zap.Object("request", req))

	ch, err := transport.Dial(ctx, c.endpoint, c.token, c.config.Connection, c.config.DialOptions...)
	if err != nil {
		return nil, nil, nil, err
	}
	c.s.setState(Connected)

	stream, err := ch.Subscribe(ctx, req)
	if err != nil {
		_ = ch.Close()
		return nil, nil, nil, err
	}
	c.s.setState(Subscribed)
	return ch, stream, d, nil
}

func (c *Client) countEvents(handler Handler) Handler {
	if c.metrics == nil {
		return handler
	}
	return func(ev event.DexEvent) {
		c.metrics.EventDelivered(ev.Metadata().Type)
		handler(ev)
	}
}

// guard turns a handler panic into a *HandlerPanicError panic, telling it
// apart from decoder panics in dispatchUpdate
func guard(handler Handler) Handler {
	return func(ev event.DexEvent) {
		defer func() {
			if p := recover(); p != nil {
				panic(&HandlerPanicError{Value: p, Stack: debug.Stack()})
			}
		}()
		handler(ev)
	}
}

// read is the read loop. The stream is used by no one else.
func (c *Client) read(ctx context.Context, stream *transport.Stream, d *dispatch.Dispatcher) error {
	logger := tlog.Get(ctx)
	for {
		if c.s.stopped.Load() {
			return nil
		}
		u, err := stream.Recv()
		if c.s.stopped.Load() {
			return nil
		}
		switch {
		case errors.Is(err, io.EOF):
			return ErrStreamClosed
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("failed to receive update: %w", err)
		}

		kind := u.Kind()
		c.metrics.UpdateReceived(kind)
		if kind == wire.KindPing {
			logger.Debug("Answering ping")
			// io.EOF means the stream is over, the next Recv reports why
			if err := stream.Send(pingRequest); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to answer ping: %w", err)
			}
			continue
		}

		started := time.Now()
		n, err := dispatchUpdate(ctx, d, u)
		if err != nil {
			return err
		}
		c.metrics.UpdateDispatched(kind, n, time.Since(started))
	}
}

func dispatchUpdate(ctx context.Context, d *dispatch.Dispatcher, u *wire.SubscribeUpdate) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			if handlerErr, ok := p.(*HandlerPanicError); ok {
				err = handlerErr
				return
			}
			err = &DecoderPanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return d.Dispatch(ctx, u), nil
}

func (c *Client) wait(ctx context.Context, group *parallel.Group, onError func(error)) {
	err := group.Wait()
	if c.s.stopped.Load() || errors.Is(err, context.Canceled) {
		err = nil
	}

	logger := tlog.Get(ctx)
	if !c.s.finish(err) {
		return
	}
	c.metrics.SessionEnded(terminationReason(err))
	if err == nil {
		logger.Info("Stopped")
		return
	}
	logger.Warn("Session ended", zap.Error(err))
	if onError != nil {
		onError(err)
	}
}

func terminationReason(err error) string {
	var panicErr *HandlerPanicError
	var decoderErr *DecoderPanicError
	switch {
	case err == nil:
		return metrics.ReasonStopped
	case errors.Is(err, ErrStreamClosed):
		return metrics.ReasonStreamClosed
	case errors.As(err, &panicErr):
		return metrics.ReasonHandlerPanic
	case errors.As(err, &decoderErr):
		return metrics.ReasonDecoderPanic
	default:
		return metrics.ReasonTransport
	}
}

func protocolNames(protocols []event.Protocol) []string {
	res := make([]string, 0, len(protocols))
	for _, p := range protocols {
		res = append(res, string(p))
	}
	return res
}
