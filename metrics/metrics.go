// Package metrics exports Prometheus collectors describing subscription
// sessions
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/wire"
)

const namespace = "solstream"

// Termination reasons
const (
	ReasonStopped      = "stopped"
	ReasonStreamClosed = "stream_closed"
	ReasonTransport    = "transport"
	ReasonHandlerPanic = "handler_panic"
	ReasonDecoderPanic = "decoder_panic"
	ReasonSetup        = "setup"
)

// Metrics is the set of session collectors.
//
// All methods are safe on a nil *Metrics and do nothing, which is how
// disabled metrics are represented.
type Metrics struct {
	updates      *prometheus.CounterVec
	events       *prometheus.CounterVec
	dropped      prometheus.Counter
	latency      prometheus.Histogram
	sessions     prometheus.Gauge
	terminations *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer, or with the
// default registry if registerer is nil.
//
// Collectors already registered by an earlier call are reused, so that any
// number of clients can share one registry.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_received_total",
			Help:      "Updates received from the feed, by kind",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events handed to the subscriber, by type",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_dropped_total",
			Help:      "Account and transaction updates no active protocol produced events for",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent decoding one update and running the handler on its events",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently streaming",
		}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_terminations_total",
			Help:      "Ended sessions, by reason",
		}, []string{"reason"}),
	}

	var err error
	if m.updates, err = register(registerer, m.updates); err != nil {
		return nil, err
	}
	if m.events, err = register(registerer, m.events); err != nil {
		return nil, err
	}
	if m.dropped, err = register(registerer, m.dropped); err != nil {
		return nil, err
	}
	if m.latency, err = register(registerer, m.latency); err != nil {
		return nil, err
	}
	if m.sessions, err = register(registerer, m.sessions); err != nil {
		return nil, err
	}
	if m.terminations, err = register(registerer, m.terminations); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	err := registerer.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// UpdateReceived counts an update read from the stream
func (m *Metrics) UpdateReceived(kind wire.UpdateKind) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind.String()).Inc()
}

// EventDelivered counts an event passed to the handler
func (m *Metrics) EventDelivered(t event.Type) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(t)).Inc()
}

// UpdateDispatched records the outcome of dispatching one update
func (m *Metrics) UpdateDispatched(kind wire.UpdateKind, delivered int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(elapsed.Seconds())
	if delivered == 0 && (kind == wire.KindAccount || kind == wire.KindTransaction) {
		m.dropped.Inc()
	}
}

// SessionStarted counts a session that reached streaming
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionEnded counts a streaming session that ended for reason
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessions.Dec()
	m.terminations.WithLabelValues(reason).Inc()
}

// SetupFailed counts a session that failed before streaming
func (m *Metrics) SetupFailed() {
	if m == nil {
		return
	}
	m.terminations.WithLabelValues(ReasonSetup).Inc()
}
