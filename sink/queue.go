package sink

import (
	"context"
	"sync/atomic"

	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

// Policy decides what Queue.Handle does when the queue is full
type Policy int

// Policy values
const (
	// Block waits for space, holding up the session read loop
	Block Policy = iota

	// DropOldest discards the oldest queued event to make space
	DropOldest
)

func (p Policy) String() string {
	switch p {
	case Block:
		return "block"
	case DropOldest:
		return "drop-oldest"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a policy name into a Policy
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "block":
		return Block, true
	case "drop-oldest":
		return DropOldest, true
	default:
		return 0, false
	}
}

// Queue is a bounded queue between a session handler and a sink. Handle is
// the producer side, Run the consumer.
type Queue struct {
	policy  Policy
	events  chan event.DexEvent
	sink    Sink
	closed  chan struct{}
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to size events
func NewQueue(size int, policy Policy, sink Sink) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		policy: policy,
		events: make(chan event.DexEvent, size),
		sink:   sink,
		closed: make(chan struct{}),
	}
}

// Handle queues an event. It can be used as the session handler.
//
// Once Run has returned, events are dropped.
func (q *Queue) Handle(ev event.DexEvent) {
	select {
	case <-q.closed:
		q.dropped.Add(1)
		return
	default:
	}

	if q.policy == Block {
		select {
		case q.events <- ev:
		case <-q.closed:
			q.dropped.Add(1)
		}
		return
	}

	for {
		select {
		case q.events <- ev:
			return
		case <-q.closed:
			q.dropped.Add(1)
			return
		default:
		}
		select {
		case <-q.events:
			q.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns the number of events discarded so far
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Run writes queued events to the sink until the context is closed or the
// sink fails
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.closed)
	logger := tlog.Get(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-q.events:
			if err := q.sink.Write(ctx, ev); err != nil {
				logger.Error("Sink failed", zap.Object("event", ev.Metadata()), zap.Error(err))
				return err
			}
		}
	}
}
