package thttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/tnet"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

// Server is an HTTP server controlled by a context
type Server struct {
	listener net.Listener
	handler  http.Handler
	inFlight sync.WaitGroup
}

// NewServer creates a Server. The server takes ownership of the listener.
func NewServer(listener net.Listener, handler http.Handler) *Server {
	return &Server{
		listener: listener,
		handler:  handler,
	}
}

type panicKeyType int

const panicKey panicKeyType = iota

// Run serves requests until the context is closed, then waits up to
// gracefulShutdownTimeout for running requests
func (s *Server) Run(ctx context.Context) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		panics := make(chan error, 1)
		ctx = context.WithValue(ctx, panicKey, panics)
		ctx = tlog.With(ctx, zap.Stringer("httpServer", s.listener.Addr()))
		logger := tlog.Get(ctx)

		// request contexts outlive ctx by the shutdown period
		reqCtx, reqCancel := context.WithCancel(context.WithoutCancel(ctx))

		server := http.Server{
			Handler:           s.track(s.handler),
			ErrorLog:          must.OK1(zap.NewStdLogAt(logger, zap.WarnLevel)),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return reqCtx },
			ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
				return tlog.With(ctx, zap.Stringer("remoteAddr", conn.RemoteAddr()))
			},
		}

		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			logger.Info("Serving HTTP")
			err := server.Serve(s.listener)
			if ctx.Err() != nil && (errors.Is(err, http.ErrServerClosed) || tnet.IsClosedConnectionError(err)) {
				return ctx.Err()
			}
			return err
		})

		spawn("panics", parallel.Fail, func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-panics:
				return err
			}
		})

		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			logger.Debug("Shutting down HTTP")

			shutdownCtx, cancel := context.WithTimeout(reqCtx, gracefulShutdownTimeout)
			defer cancel()
			defer reqCancel()
			defer server.Close()

			// errors other than the timeout come from closing the listener
			if err := server.Shutdown(shutdownCtx); err != nil && shutdownCtx.Err() != nil {
				logger.Warn("HTTP shutdown timed out", zap.Error(err))
				return err
			}
			reqCancel()
			s.inFlight.Wait()
			return ctx.Err()
		})

		return nil
	})
}

// ListenAddr returns the address the server listens on
func (s *Server) ListenAddr() net.Addr {
	return s.listener.Addr()
}

// track keeps shutdown waiting for handlers of hijacked connections
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.inFlight.Add(1)
		defer s.inFlight.Done()
		next.ServeHTTP(w, r)
	})
}

// Wrap applies middleware to a handler. The first middleware listed sees the
// request first.
func Wrap(handler http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// StandardMiddleware logs every request and recovers from handler panics
func StandardMiddleware(next http.Handler) http.Handler {
	return Log(Recover(next))
}
