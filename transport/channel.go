// Package transport opens authenticated gRPC channels to the update feed
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// SubscribeMethod is the full name of the streaming method
const SubscribeMethod = "/geyser.Geyser/Subscribe"

var subscribeDesc = grpc.StreamDesc{
	StreamName:    "Subscribe",
	ServerStreams: true,
	ClientStreams: true,
}

// TokenHeader is the metadata key carrying the access token
const TokenHeader = "x-token"

type tokenCredentials struct {
	token  string
	secure bool
}

func (c tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{TokenHeader: c.token}, nil
}

func (c tokenCredentials) RequireTransportSecurity() bool {
	return c.secure
}

// Channel is a ready connection to the feed
type Channel struct {
	endpoint string
	config   Config
	conn     *grpc.ClientConn
}

// Dial connects to the feed at endpoint and waits until the connection is
// ready.
//
// Each call opens a new connection. A non-empty token is sent with every call.
// Extra options are applied after the defaults.
func Dial(ctx context.Context, endpoint, token string, config Config, opts ...grpc.DialOption) (*Channel, error) {
	config = config.WithDefaults()
	e, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseConnect, Endpoint: endpoint, Err: err}
	}

	creds := insecure.NewCredentials()
	if e.Secure {
		// nil RootCAs means the system trust store
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxDecodingMessageSize),
			grpc.ForceCodec(wire.Codec{}),
		),
	}
	if token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(tokenCredentials{token: token, secure: e.Secure}))
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(e.Target, dialOpts...)
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseConnect, Endpoint: endpoint, Err: err}
	}

	logger := tlog.Get(ctx).With(zap.String("endpoint", endpoint))
	logger.Debug("Connecting", zap.String("target", e.Target), zap.Bool("tls", e.Secure))

	if err := waitReady(ctx, conn, config.ConnectTimeout); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Phase: PhaseConnect, Endpoint: endpoint, Err: err}
	}
	logger.Debug("Connected")

	return &Channel{endpoint: endpoint, config: config, conn: conn}, nil
}

func waitReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	var failed bool
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("connection shut down")
		case connectivity.TransientFailure:
			failed = true
		}
		if !conn.WaitForStateChange(ctx, state) {
			if failed {
				return fmt.Errorf("connection failing, gave up after %s: %w", timeout, ctx.Err())
			}
			return fmt.Errorf("not ready after %s: %w", timeout, ctx.Err())
		}
	}
}

// Subscribe opens the Subscribe stream and sends req on it.
//
// Returns once the server has answered with response headers. The whole
// exchange is bounded by the request timeout; the returned stream is not.
func (c *Channel) Subscribe(ctx context.Context, req *wire.SubscribeRequest) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(c.config.RequestTimeout, cancel)

	s, err := c.conn.NewStream(ctx, &subscribeDesc, SubscribeMethod)
	if err == nil {
		err = s.SendMsg(req)
		if errors.Is(err, io.EOF) {
			// the server ended the stream, Header reports the status
			err = nil
		}
	}
	if err == nil {
		var md metadata.MD
		md, err = s.Header()
		if err == nil && md == nil {
			// trailers-only response: the stream is over and RecvMsg returns its status
			if err = s.RecvMsg(&wire.SubscribeUpdate{}); err == nil {
				err = io.EOF
			}
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("stream ended before response headers")
		}
	}

	if !timer.Stop() {
		cancel()
		return nil, &ConnectionError{
			Phase:    PhaseHandshake,
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("no response after %s: %w", c.config.RequestTimeout, context.DeadlineExceeded),
		}
	}
	if err != nil {
		cancel()
		return nil, &ConnectionError{Phase: PhaseHandshake, Endpoint: c.endpoint, Err: err}
	}
	return &Stream{stream: s, cancel: cancel}, nil
}

// Close closes the connection
func (c *Channel) Close() error {
	return c.conn.Close()
}

// Stream is an open Subscribe stream.
//
// Send and Recv may be called concurrently with each other but not with
// themselves.
type Stream struct {
	stream grpc.ClientStream
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Send sends a request on the stream, replacing the subscription or answering
// a ping
func (s *Stream) Send(req *wire.SubscribeRequest) error {
	return s.stream.SendMsg(req)
}

// Recv waits for the next update. Returns io.EOF when the server closes the
// stream.
func (s *Stream) Recv() (*wire.SubscribeUpdate, error) {
	u := &wire.SubscribeUpdate{}
	if err := s.stream.RecvMsg(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Close closes the stream. It is safe to call Close more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		_ = s.stream.CloseSend()
		s.cancel()
	})
}
