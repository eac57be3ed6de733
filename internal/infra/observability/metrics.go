package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the invoicer.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	authAttempts      *prometheus.CounterVec
	documentUpdates   *prometheus.CounterVec
	ingestedBytes     prometheus.Counter
	ingestFailures    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invoicer_operation_duration_seconds",
				Help:    "Duration of core operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicer_auth_attempts_total",
				Help: "Login and registration attempts by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		documentUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicer_document_updates_total",
				Help: "Invoice document snapshots produced, by updated field.",
			},
			[]string{"field"},
		),
		ingestedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "invoicer_ingested_image_bytes_total",
				Help: "Bytes of uploaded images turned into data URLs.",
			},
		),
		ingestFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "invoicer_ingest_failures_total",
				Help: "Uploads that could not be read.",
			},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrAuth counts an auth attempt. outcome is "success" or an error kind.
func (m *Metrics) IncrAuth(operation, outcome string) {
	m.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// IncrDocumentUpdate counts a new document snapshot.
func (m *Metrics) IncrDocumentUpdate(field string) {
	m.documentUpdates.WithLabelValues(field).Inc()
}

// AddIngestedBytes records a successful upload of n bytes.
func (m *Metrics) AddIngestedBytes(n int) {
	m.ingestedBytes.Add(float64(n))
}

// IncrIngestFailure counts an unreadable upload.
func (m *Metrics) IncrIngestFailure() {
	m.ingestFailures.Inc()
}

// AuthCount returns the current value of the auth attempts counter.
func (m *Metrics) AuthCount(operation, outcome string) float64 {
	return getCounterValue(m.authAttempts, operation, outcome)
}

// DocumentUpdateCount returns how many snapshots were produced for field.
func (m *Metrics) DocumentUpdateCount(field string) float64 {
	return getCounterValue(m.documentUpdates, field)
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
