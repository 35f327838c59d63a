package netconn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by relays.
// A nil *Metrics records nothing.
type Metrics struct {
	sent         prometheus.Counter
	delivered    prometheus.Counter
	failures     *prometheus.CounterVec
	tickActivity prometheus.Counter
	running      prometheus.Gauge
	pollSleep    prometheus.Histogram
}

// NewMetrics creates the relay collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holonet_messages_sent_total",
			Help: "Messages accepted by relay Send.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holonet_messages_delivered_total",
			Help: "Messages handed to a worker's Receive without error.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holonet_delivery_errors_total",
			Help: "Worker hook failures by hook.",
		}, []string{"op"}),
		tickActivity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holonet_tick_activity_total",
			Help: "Worker ticks that reported activity.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holonet_relays_running",
			Help: "Threaded relays whose poll loop is alive.",
		}),
		pollSleep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "holonet_poll_sleep_seconds",
			Help:    "Sleep chosen by the adaptive poll backoff.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 8),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.sent, m.delivered, m.failures, m.tickActivity, m.running, m.pollSleep} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) messageSent() {
	if m != nil {
		m.sent.Inc()
	}
}

func (m *Metrics) messageDelivered() {
	if m != nil {
		m.delivered.Inc()
	}
}

func (m *Metrics) deliveryFailed(op string) {
	if m != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) tickActive() {
	if m != nil {
		m.tickActivity.Inc()
	}
}

func (m *Metrics) relayStarted() {
	if m != nil {
		m.running.Inc()
	}
}

func (m *Metrics) relayStopped() {
	if m != nil {
		m.running.Dec()
	}
}

func (m *Metrics) slept(d time.Duration) {
	if m != nil {
		m.pollSleep.Observe(d.Seconds())
	}
}
