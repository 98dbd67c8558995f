package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/wire"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateReceived(wire.KindTransaction)
	m.UpdateReceived(wire.KindTransaction)
	m.UpdateReceived(wire.KindPing)
	require.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("transaction")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("ping")))

	m.EventDelivered(event.PumpFunTrade)
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(string(event.PumpFunTrade))))

	m.UpdateDispatched(wire.KindTransaction, 0, time.Millisecond)
	m.UpdateDispatched(wire.KindTransaction, 2, time.Millisecond)
	m.UpdateDispatched(wire.KindSlot, 0, time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	require.Equal(t, 1, testutil.CollectAndCount(m.latency))

	m.SessionStarted()
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
	m.SessionEnded(ReasonStopped)
	m.SetupFailed()
	require.Zero(t, testutil.ToFloat64(m.sessions))
	require.Equal(t, 1.0, testutil.ToFloat64(m.terminations.WithLabelValues(ReasonStopped)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.terminations.WithLabelValues(ReasonSetup)))
}

func TestReregistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m1, err := New(registry)
	require.NoError(t, err)
	m2, err := New(registry)
	require.NoError(t, err)

	m1.SessionStarted()
	m2.SessionStarted()
	require.Equal(t, 2.0, testutil.ToFloat64(m1.sessions))
	require.Same(t, m1.updates, m2.updates)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.UpdateReceived(wire.KindAccount)
	m.EventDelivered(event.BlockMeta)
	m.UpdateDispatched(wire.KindAccount, 0, time.Second)
	m.SessionStarted()
	m.SessionEnded(ReasonTransport)
	m.SetupFailed()
}
