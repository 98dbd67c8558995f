package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/test"
	"github.com/stretchr/testify/require"
)

// channelSink forwards slots of written events into a channel
type channelSink chan uint64

func (c channelSink) Write(ctx context.Context, ev event.DexEvent) error {
	c <- ev.Metadata().Slot
	return nil
}

func (c channelSink) Close() error {
	return nil
}

func TestQueueDropOldest(t *testing.T) {
	slots := make(channelSink, 10)
	q := NewQueue(2, DropOldest, slots)
	for slot := uint64(1); slot <= 5; slot++ {
		q.Handle(blockEvent(slot))
	}
	require.Equal(t, uint64(3), q.Dropped())

	group := test.Group(t)
	group.Spawn("queue", parallel.Fail, q.Run)
	test.AssertReceived[uint64](t, slots, 4, 5)
}

func TestQueueBlock(t *testing.T) {
	slots := make(channelSink, 10)
	q := NewQueue(1, Block, slots)
	q.Handle(blockEvent(1))

	handled := make(chan struct{})
	go func() {
		q.Handle(blockEvent(2))
		close(handled)
	}()
	test.AssertNothingReceived[struct{}](t, handled, 100*time.Millisecond)

	group := test.Group(t)
	group.Spawn("queue", parallel.Fail, q.Run)
	test.AssertReceived[uint64](t, slots, 1, 2)
	test.AssertClosed[struct{}](t, handled)
	require.Zero(t, q.Dropped())
}

func TestQueueAfterRun(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	q := NewQueue(1, Block, &memory{})
	cancel()
	require.ErrorIs(t, q.Run(ctx), context.Canceled)

	q.Handle(blockEvent(1))
	q.Handle(blockEvent(2))
	require.Equal(t, uint64(2), q.Dropped())
}

func TestQueueSinkFailure(t *testing.T) {
	q := NewQueue(1, Block, &memory{err: errors.New("down")})
	q.Handle(blockEvent(1))
	require.EqualError(t, q.Run(test.Context(t)), "down")
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{Block, DropOldest} {
		parsed, ok := ParsePolicy(p.String())
		require.True(t, ok)
		require.Equal(t, p, parsed)
	}
	_, ok := ParsePolicy("drop-newest")
	require.False(t, ok)
}
