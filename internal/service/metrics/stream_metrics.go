package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tickerdeck",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Currently connected WebSocket clients",
		},
	)

	StreamFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickerdeck",
			Subsystem: "stream",
			Name:      "frames_total",
			Help:      "Client control frames by type",
		},
		[]string{"type"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StreamClients, StreamFrames)
	})
}
