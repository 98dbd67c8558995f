package sink

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/tws"
	"go.uber.org/zap"
)

// Broadcast sends event envelopes to every connected WebSocket client.
//
// Each client has a buffer of the given size. Events that do not fit into the
// buffer of a slow client are dropped for that client only.
type Broadcast struct {
	buffer  int
	dropped atomic.Uint64

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewBroadcast creates a Broadcast with no clients
func NewBroadcast(buffer int) *Broadcast {
	return &Broadcast{buffer: buffer, clients: map[chan []byte]struct{}{}}
}

// Write implements Sink
func (b *Broadcast) Write(ctx context.Context, ev event.DexEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		select {
		case client <- data:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Close implements Sink. Connected clients stay connected until their
// requests end.
func (b *Broadcast) Close() error {
	return nil
}

// Dropped returns the number of client deliveries skipped so far
func (b *Broadcast) Dropped() uint64 {
	return b.dropped.Load()
}

// Clients returns the number of connected clients
func (b *Broadcast) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcast) subscribe() chan []byte {
	ch := make(chan []byte, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[ch] = struct{}{}
	return ch
}

func (b *Broadcast) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, ch)
}

// Handler serves the event stream over WebSocket. Messages from clients are
// ignored.
func (b *Broadcast) Handler(config tws.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tws.Serve(w, r, config, func(ctx context.Context, incoming <-chan tws.Message, outgoing chan<- tws.Message) error {
			events := b.subscribe()
			defer b.unsubscribe(events)
			tlog.Get(ctx).Debug("Event stream client connected", zap.Int("clients", b.Clients()))

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case _, ok := <-incoming:
					if !ok {
						return nil
					}
				case data := <-events:
					select {
					case outgoing <- tws.Message{Data: data}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		})
	})
}
