// Command solstream logs DEX events from a Yellowstone feed and optionally
// forwards them to Kafka, Redis and WebSocket clients
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ridge/parallel"
	"github.com/ridge/solstream"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/retry"
	"github.com/ridge/solstream/run"
	"github.com/ridge/solstream/sink"
	"github.com/ridge/solstream/thttp"
	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/tnet"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/tws"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// a session that streamed this long starts the backoff over
const steadySession = time.Minute

func main() {
	pflag.CommandLine.AddFlagSet(buildFlagSet())
	pflag.Parse()

	run.Server(func(ctx context.Context) error {
		v, err := newViper(pflag.CommandLine)
		if err != nil {
			return err
		}
		c, err := parseConfig(v)
		if err != nil {
			return err
		}
		return runService(ctx, c)
	})
}

func runService(ctx context.Context, c config) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		var current atomic.Pointer[solstream.Client]

		sinks, err := openSinks(c)
		if err != nil {
			return err
		}

		if c.httpAddr != "" {
			listener, err := tnet.Listen(c.httpAddr)
			if err != nil {
				return fmt.Errorf("failed to serve HTTP: %w", err)
			}
			router := mux.NewRouter()
			router.HandleFunc("/healthz", healthHandler(&current)).Methods(http.MethodGet)
			if c.client.EnableMetrics {
				router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
			}
			if c.eventsWS {
				broadcast := sink.NewBroadcast(c.queueSize)
				sinks = append(sinks, broadcast)
				router.Handle("/events", broadcast.Handler(tws.DefaultConfig))
			}
			server := thttp.NewServer(listener, thttp.Wrap(router, thttp.StandardMiddleware))
			spawn("http", parallel.Fail, server.Run)
		}

		handler := logEvent(tlog.Get(ctx))
		if len(sinks) > 0 {
			queue := sink.NewQueue(c.queueSize, c.queuePolicy, sinks)
			spawn("sinks", parallel.Fail, func(ctx context.Context) error {
				defer sinks.Close()
				return queue.Run(ctx)
			})
			handler = tee(handler, queue.Handle)
		}

		spawn("subscription", parallel.Fail, func(ctx context.Context) error {
			return subscribe(ctx, c, handler, &current)
		})
		return nil
	})
}

func openSinks(c config) (sink.Multi, error) {
	var sinks sink.Multi
	if len(c.kafkaBrokers) > 0 {
		sinks = append(sinks, sink.NewKafka(c.kafkaBrokers, c.kafkaTopic))
	}
	if c.redisURL != "" {
		r, err := sink.NewRedis(c.redisURL, c.redisChannel)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, r)
	}
	return sinks, nil
}

func logEvent(logger *zap.Logger) solstream.Handler {
	return func(ev event.DexEvent) {
		logger.Info("Event", zap.Object("event", ev.Metadata()))
	}
}

func tee(handlers ...solstream.Handler) solstream.Handler {
	return func(ev event.DexEvent) {
		for _, h := range handlers {
			h(ev)
		}
	}
}

// subscribe runs sessions one after another until the context is closed or
// the feed rejects the subscription
func subscribe(ctx context.Context, c config, handler solstream.Handler, current *atomic.Pointer[solstream.Client]) error {
	logger := tlog.Get(ctx)
	backoff := retry.NewExpBackoff(retry.DefaultExpConfig)
	for {
		started := time.Now()
		err := session(ctx, c, handler, current)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var connErr *transport.ConnectionError
		if errors.As(err, &connErr) && !connErr.Retriable() {
			return err
		}

		if time.Since(started) > steadySession {
			backoff.Reset()
		}
		delay := backoff.Backoff()
		logger.Warn("Session ended, reconnecting", zap.Error(err), zap.Duration("delay", delay))
		if err := retry.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func session(ctx context.Context, c config, handler solstream.Handler, current *atomic.Pointer[solstream.Client]) error {
	client, err := solstream.New(c.endpoint, c.token, c.client)
	if err != nil {
		return err
	}
	current.Store(client)
	if err := client.Subscribe(ctx, c.subscription, handler); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		client.Stop()
		<-client.Done()
		return ctx.Err()
	case <-client.Done():
		if err := client.Err(); err != nil {
			return err
		}
		return solstream.ErrStopped
	}
}

func healthHandler(current *atomic.Pointer[solstream.Client]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := solstream.Idle
		if client := current.Load(); client != nil {
			state = client.State()
		}
		if state != solstream.Streaming {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = fmt.Fprintln(w, state)
	}
}
