package pubsub

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "pubsub"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of records published.
	Published metrics.Counter
	// Number of records delivered to subscribers.
	Delivered metrics.Counter
	// Number of records a query could not be evaluated against.
	MatchErrors metrics.Counter
	// Number of subscriptions terminated because they fell behind.
	Terminated metrics.Counter
	// Number of active subscriptions.
	Subscriptions metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Published: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "published_total",
			Help:      "Number of records published.",
		}, labels).With(labelsAndValues...),
		Delivered: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "delivered_total",
			Help:      "Number of records delivered to subscribers.",
		}, labels).With(labelsAndValues...),
		MatchErrors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "match_errors_total",
			Help:      "Number of records a subscription query failed to evaluate.",
		}, labels).With(labelsAndValues...),
		Terminated: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "terminated_total",
			Help:      "Number of subscriptions terminated for falling behind.",
		}, labels).With(labelsAndValues...),
		Subscriptions: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "subscriptions",
			Help:      "Number of active subscriptions.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Published:     discard.NewCounter(),
		Delivered:     discard.NewCounter(),
		MatchErrors:   discard.NewCounter(),
		Terminated:    discard.NewCounter(),
		Subscriptions: discard.NewGauge(),
	}
}
