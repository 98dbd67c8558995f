// Package tws runs WebSocket sessions under a context
package tws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ridge/parallel"
	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

// Config is the WebSocket configuration
type Config struct {
	// HandshakeTimeout bounds the protocol upgrade
	HandshakeTimeout time.Duration

	// TCPTimeout drops the connection when sent data stays unacknowledged
	// this long. 0 keeps the kernel default.
	TCPTimeout time.Duration

	// PingInterval is how often pings are sent. 0 disables pings.
	PingInterval time.Duration

	// RequirePong drops the connection when a pong does not arrive before the
	// next ping
	RequirePong bool

	// CheckOrigin accepts or rejects the Origin of an upgrade request. nil
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig suits event streams: peers are not required to answer pings
var DefaultConfig = Config{
	HandshakeTimeout: 5 * time.Second,
	TCPTimeout:       30 * time.Second,
	PingInterval:     30 * time.Second,
}

// Message is one WebSocket message
type Message struct {
	Binary bool
	Data   []byte
}

// SessionFn implements one WebSocket conversation.
//
// Incoming messages arrive on incoming, which is closed together with the
// context when the connection closes. The connection is closed when the
// function returns.
type SessionFn func(ctx context.Context, incoming <-chan Message, outgoing chan<- Message) error

// Serve upgrades the request to WebSocket and runs sessionFn on it. The
// session context is derived from the request context.
func Serve(w http.ResponseWriter, r *http.Request, config Config, sessionFn SessionFn) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout: config.HandshakeTimeout,
		CheckOrigin:      config.CheckOrigin,
	}
	logger := tlog.Get(r.Context())

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	if err := tuneTCP(ws.UnderlyingConn(), config); err != nil {
		_ = ws.Close()
		logger.Error("WebSocket setup failed", zap.Error(err))
		return
	}

	err = run(r.Context(), ws, config, sessionFn)
	logger.Debug("WebSocket disconnected", zap.Error(err))
}

// Dial connects to a WebSocket server and runs sessionFn on the connection
func Dial(ctx context.Context, url string, config Config, sessionFn SessionFn) error {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := tuneTCP(conn, config); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		},
		HandshakeTimeout: config.HandshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return fmt.Errorf("failed to connect to %s (%s): %w", url, resp.Status, err)
		}
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return run(tlog.With(ctx, zap.String("url", url)), ws, config, sessionFn)
}

func run(ctx context.Context, ws *websocket.Conn, config Config, sessionFn SessionFn) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		var unanswered atomic.Int64 // pings sent minus pongs received
		incoming := make(chan Message)
		outgoing := make(chan Message)

		if config.RequirePong {
			ws.SetPongHandler(func(string) error {
				unanswered.Add(-1)
				return nil
			})
		}

		spawn("session", parallel.Continue, func(ctx context.Context) error {
			defer close(outgoing)
			return sessionFn(ctx, incoming, outgoing)
		})

		spawn("receiver", parallel.Continue, func(ctx context.Context) error {
			defer close(incoming)
			for {
				mt, data, err := ws.ReadMessage()
				if err != nil {
					var closeErr *websocket.CloseError
					switch {
					case ctx.Err() != nil:
						return ctx.Err()
					case errors.As(err, &closeErr):
						return nil
					default:
						return err
					}
				}
				if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
					return fmt.Errorf("unexpected WebSocket message type %d", mt)
				}
				select {
				case incoming <- Message{Binary: mt == websocket.BinaryMessage, Data: data}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})

		// the only writer: gorilla/websocket does not allow concurrent writes
		spawn("sender", parallel.Exit, func(ctx context.Context) error {
			var ticks <-chan time.Time
			if config.PingInterval != 0 {
				ticker := time.NewTicker(config.PingInterval)
				defer ticker.Stop()
				ticks = ticker.C
			}
			for {
				select {
				case msg, ok := <-outgoing:
					if !ok {
						return nil
					}
					mt := websocket.TextMessage
					if msg.Binary {
						mt = websocket.BinaryMessage
					}
					if err := ws.WriteMessage(mt, msg.Data); err != nil {
						return err
					}
				case <-ticks:
					if config.RequirePong && unanswered.Add(1) > 1 {
						return errors.New("WebSocket ping timeout")
					}
					if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
						return err
					}
				}
			}
		})

		spawn("closer", parallel.Exit, func(ctx context.Context) error {
			<-ctx.Done()
			// TLS connections closed by the peer may fail to send the alert
			if err := ws.Close(); err != nil && !strings.Contains(err.Error(), "failed to send closeNotify alert") {
				return err
			}
			return ctx.Err()
		})

		return nil
	})
}
