package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	fanout       *prometheus.HistogramVec
	feedState    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerdeck_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerdeck_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickerdeck_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickerdeck_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		fanout: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickerdeck_feed_fanout_listeners",
				Help:    "Listener count per delivered tick",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
			[]string{"symbol"},
		),
		feedState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickerdeck_feed_state",
				Help: "Connection state per upstream feed (1 = current state)",
			},
			[]string{"feed", "state"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFanout records how many listeners one tick reached.
func (r *Recorder) RecordFanout(symbol string, listeners int) {
	r.fanout.WithLabelValues(symbol).Observe(float64(listeners))
}

// RecordFeedState marks the feed's current connection state.
func (r *Recorder) RecordFeedState(feed, state string) {
	for _, s := range []string{"idle", "connecting", "authenticating", "ready", "reconnecting", "closed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		r.feedState.WithLabelValues(feed, s).Set(v)
	}
}
