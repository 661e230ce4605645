package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradebook"

// Metrics groups the engine's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	trades         prometheus.Counter
	tradedQuantity prometheus.Counter
	submitSeconds  prometheus.Histogram
	published      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Order submissions by result (accepted, rejected).",
		}, []string{"result"}),
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed trades.",
		}),
		tradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Sum of executed trade quantities.",
		}),
		submitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_seconds",
			Help:      "Time spent in insert and match, lock wait included.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_trades_total",
			Help:      "Journal records handed to the broker, by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.submissions, m.trades, m.tradedQuantity, m.submitSeconds, m.published)
	return m
}

func (m *Metrics) ObserveSubmit(elapsed time.Duration, trades int, quantity int64, err error) {
	if err != nil {
		m.submissions.WithLabelValues("rejected").Inc()
		return
	}
	m.submissions.WithLabelValues("accepted").Inc()
	m.submitSeconds.Observe(elapsed.Seconds())
	m.trades.Add(float64(trades))
	m.tradedQuantity.Add(float64(quantity))
}

func (m *Metrics) ObservePublish(err error) {
	if err != nil {
		m.published.WithLabelValues("failed").Inc()
		return
	}
	m.published.WithLabelValues("acked").Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
