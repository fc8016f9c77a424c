package webhook

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal    *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	deadTotal       *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	pending         prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "enqueue_total",
			Help:      "Total number of webhook deliveries enqueued.",
		}, []string{"event", "status"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "dispatch_total",
			Help:      "Total number of webhook delivery attempts.",
		}, []string{"event", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "dead_total",
			Help:      "Total number of deliveries that exhausted their attempts.",
		}, []string{"event"}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webhook",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency distribution for webhook delivery attempts.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"event", "result"}),
		pending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "webhook",
			Name:      "pending",
			Help:      "Current number of pending deliveries.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
