package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testExpConfig = ExpConfig{
	Min:   time.Second,
	Max:   10 * time.Second,
	Scale: 2,
}

func TestBackoff(t *testing.T) {
	b := NewExpBackoff(testExpConfig)
	for _, expected := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second} {
		require.Equal(t, expected, b.Backoff())
	}
	b.Reset()
	require.Equal(t, time.Second, b.Backoff())
}

func TestBackoffJitter(t *testing.T) {
	config := testExpConfig
	config.Jitter = 0.5
	b := NewExpBackoff(config)
	for range 100 {
		b.Reset()
		d := b.Backoff()
		require.GreaterOrEqual(t, d, 500*time.Millisecond)
		require.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestExpDelays(t *testing.T) {
	delays := testExpConfig.Delays()
	d, ok := delays()
	require.True(t, ok)
	require.Zero(t, d)
	d, _ = delays()
	require.Equal(t, time.Second, d)

	config := testExpConfig
	config.Instant = true
	d, _ = config.Delays()()
	require.Equal(t, time.Second, d)
}
