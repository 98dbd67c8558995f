// Package mock provides an in-process update feed for tests
package mock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/tnet"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type subscribeHandler interface {
	handleSubscribe(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "geyser.Geyser",
	HandlerType: (*subscribeHandler)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Subscribe",
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(subscribeHandler).handleSubscribe(stream)
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "geyser.proto",
}

// Option configures a Feed
type Option func(f *Feed)

// WithToken makes the feed reject streams without the given access token
func WithToken(token string) Option {
	return func(f *Feed) {
		f.token = token
	}
}

// WithoutResponse makes the feed accept streams but never answer them
func WithoutResponse() Option {
	return func(f *Feed) {
		f.silent = true
	}
}

// Feed is a plaintext gRPC server speaking the Subscribe protocol on a random
// local port. Each accepted stream is handed to the test as a Session.
type Feed struct {
	listener net.Listener
	server   *grpc.Server
	token    string
	silent   bool

	sessions chan *Session
}

// NewFeed creates a feed listening on a random port. Call Run to serve.
func NewFeed(opts ...Option) *Feed {
	f := &Feed{
		listener: tnet.ListenOnRandomPort(),
		server:   grpc.NewServer(grpc.ForceServerCodec(wire.Codec{})),
		sessions: make(chan *Session),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.server.RegisterService(&serviceDesc, f)
	return f
}

// Endpoint returns the URL clients should connect to
func (f *Feed) Endpoint() string {
	return "http://" + f.listener.Addr().String()
}

// Run serves streams until the context is closed
func (f *Feed) Run(ctx context.Context) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			err := f.server.Serve(f.listener)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil {
				err = errors.New("feed stopped unexpectedly")
			}
			return err
		})
		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			f.server.Stop()
			return ctx.Err()
		})
		return nil
	})
}

// Accept waits for the next client stream
func (f *Feed) Accept(ctx context.Context) (*Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case s := <-f.sessions:
		return s, nil
	}
}

func (f *Feed) handleSubscribe(stream grpc.ServerStream) error {
	ctx := stream.Context()

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(transport.TokenHeader); len(values) > 0 {
			token = values[0]
		}
	}
	if f.token != "" && token != f.token {
		return status.Error(codes.Unauthenticated, "invalid access token")
	}

	req := &wire.SubscribeRequest{}
	if err := stream.RecvMsg(req); err != nil {
		return err
	}

	if f.silent {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := stream.SendHeader(nil); err != nil {
		return err
	}

	s := &Session{
		Request:  req,
		Token:    token,
		stream:   stream,
		requests: make(chan *wire.SubscribeRequest, 16),
		finish:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	defer close(s.done)

	go s.readRequests(ctx)

	select {
	case f.sessions <- s:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-s.finish:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session is the server side of one Subscribe stream
type Session struct {
	// Request is the request that opened the stream
	Request *wire.SubscribeRequest

	// Token is the access token the client sent
	Token string

	stream   grpc.ServerStream
	requests chan *wire.SubscribeRequest
	finish   chan error
	done     chan struct{}

	finishOnce sync.Once
}

func (s *Session) readRequests(ctx context.Context) {
	defer close(s.requests)
	for {
		req := &wire.SubscribeRequest{}
		if err := s.stream.RecvMsg(req); err != nil {
			return
		}
		select {
		case s.requests <- req:
		case <-ctx.Done():
			return
		}
	}
}

// Send sends an update to the client
func (s *Session) Send(u *wire.SubscribeUpdate) error {
	select {
	case <-s.done:
		return errors.New("session closed")
	default:
	}
	if err := s.stream.SendMsg(u); err != nil {
		return fmt.Errorf("sending update: %w", err)
	}
	return nil
}

// Next waits for the next request the client sends after the initial one.
// Returns an error if the client has closed its side of the stream.
func (s *Session) Next(ctx context.Context) (*wire.SubscribeRequest, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case req, ok := <-s.requests:
		if !ok {
			return nil, errors.New("client closed the stream")
		}
		return req, nil
	}
}

// Close ends the stream with the given gRPC status error, or cleanly for nil
func (s *Session) Close(err error) {
	s.finishOnce.Do(func() {
		s.finish <- err
	})
	<-s.done
}

// Done is closed when the stream is over, whichever side ended it
func (s *Session) Done() <-chan struct{} {
	return s.done
}
