package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks transaction engine outcomes behind a private registry.
type Collector struct {
	registry     *prometheus.Registry
	transactions *prometheus.CounterVec
	duration     prometheus.Histogram
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		transactions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ompay_transactions_total",
			Help: "Transactions processed by the engine, by kind and result",
		}, []string{"kind", "result"}),
		duration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ompay_transaction_duration_seconds",
			Help:    "Time spent inside the engine's unit of work",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) ObserveTransaction(kind string, success bool, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.transactions.WithLabelValues(kind, result).Inc()
	c.duration.Observe(elapsed.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
