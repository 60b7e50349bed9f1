// Package metrics holds the Prometheus metrics of one populator execution. They are registered on a registry of
// their own, which is pushed to a Pushgateway when the execution ends.
package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const MetricPrefix = "popcon_lhcinfoperls_"

type Metrics struct {
	registry *prometheus.Registry

	fillsProcessed       prometheus.Counter
	lumisectionsBuffered prometheus.Counter
	opticsEnrichments    *prometheus.CounterVec
	iovsAdded            prometheus.Counter
	emptyPayloads        prometheus.Counter
	queryFailures        *prometheus.CounterVec
	iovsWritten          prometheus.Counter
	executions           *prometheus.CounterVec
	lastExecution        prometheus.Gauge
	executionDuration    prometheus.Gauge
}

// New creates the metrics of a populator; handler is attached to every metric as a constant label.
func New(handler string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"handler": handler}

	return &Metrics{
		registry: registry,
		fillsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "fills_processed_total",
			Help:        "Number of fills processed",
			ConstLabels: labels,
		}),
		lumisectionsBuffered: factory.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "lumisections_buffered_total",
			Help:        "Number of lumisections sampled into payloads",
			ConstLabels: labels,
		}),
		opticsEnrichments: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricPrefix + "optics_enrichments_total",
			Help:        "Number of windows enriched with optics parameters, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		iovsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "iovs_added_total",
			Help:        "Number of payloads committed to the timeline, empty payloads included",
			ConstLabels: labels,
		}),
		emptyPayloads: factory.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "empty_payloads_total",
			Help:        "Number of empty payloads added at fill boundaries",
			ConstLabels: labels,
		}),
		queryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricPrefix + "query_failures_total",
			Help:        "Number of failed upstream queries",
			ConstLabels: labels,
		}, []string{"service", "resource"}),
		iovsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "iovs_written_total",
			Help:        "Number of IOVs written to the conditions database",
			ConstLabels: labels,
		}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricPrefix + "executions_total",
			Help:        "Number of executions, by status",
			ConstLabels: labels,
		}, []string{"status"}),
		lastExecution: factory.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "last_execution_timestamp_seconds",
			Help:        "Time the last execution ended",
			ConstLabels: labels,
		}),
		executionDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "last_execution_duration_seconds",
			Help:        "Duration of the last execution",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) RecordFill() {
	m.fillsProcessed.Inc()
}

func (m *Metrics) RecordLumisections(n int) {
	m.lumisectionsBuffered.Add(float64(n))
}

func (m *Metrics) RecordEnrichment(applied bool, err error) {
	outcome := "applied"
	switch {
	case err != nil:
		outcome = "failed"
	case !applied:
		outcome = "no_data"
	}
	m.opticsEnrichments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordIovsAdded(n int) {
	m.iovsAdded.Add(float64(n))
}

func (m *Metrics) RecordEmptyPayload() {
	m.iovsAdded.Inc()
	m.emptyPayloads.Inc()
}

func (m *Metrics) RecordQueryFailure(service, resource string) {
	m.queryFailures.WithLabelValues(service, resource).Inc()
}

// RecordExecution records the outcome of an execution that ran from start to end.
func (m *Metrics) RecordExecution(status string, written int, start, end time.Time) {
	m.iovsWritten.Add(float64(written))
	m.executions.WithLabelValues(status).Inc()
	m.lastExecution.Set(float64(end.Unix()))
	m.executionDuration.Set(end.Sub(start).Seconds())
}

// Gatherer exposes the registry, e.g. to serve or inspect the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Push sends the metrics to a Prometheus Pushgateway, replacing those previously pushed for job.
func (m *Metrics) Push(ctx context.Context, url string, job string) error {
	err := push.New(url, job).Gatherer(m.registry).PushContext(ctx)
	return errors.Wrapf(err, "error pushing metrics to %s", url)
}
