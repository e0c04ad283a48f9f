package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the chat hub.
type Metrics struct {
	ObjectsIngested  prometheus.Counter
	ObjectsSkipped   prometheus.Counter
	RisksClassified  prometheus.Counter
	RecordsPersisted prometheus.Counter
	AlertsPublished  prometheus.Counter

	// Feed metrics.
	FeedRequests    *prometheus.CounterVec // labels: endpoint={range,date}, outcome={success,error}
	FeedAPIDuration *prometheus.HistogramVec

	// Batch classification metrics.
	ClassifyBatchSize     prometheus.Histogram
	ClassifyBatchDuration prometheus.Histogram

	// Chat metrics.
	ChatMembers           prometheus.Gauge
	ChatMessagesReceived  prometheus.Counter
	ChatDeliveriesDropped prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ObjectsIngested,
		m.ObjectsSkipped,
		m.RisksClassified,
		m.RecordsPersisted,
		m.AlertsPublished,
		m.FeedRequests,
		m.FeedAPIDuration,
		m.ClassifyBatchSize,
		m.ClassifyBatchDuration,
		m.ChatMembers,
		m.ChatMessagesReceived,
		m.ChatDeliveriesDropped,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObjectsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "objects_ingested_total",
			Help:      "Total observations saved to the object store.",
		}),
		ObjectsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "objects_skipped_total",
			Help:      "Total observations skipped as duplicates during ingestion.",
		}),
		RisksClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "risks_classified_total",
			Help:      "Total risk classifications computed, batch and on-the-fly.",
		}),
		RecordsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "risk_records_persisted_total",
			Help:      "Total risk records written to risk storage.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "alerts_published_total",
			Help:      "Total HIGH/CRITICAL records published to the alerts topic.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "feed_requests_total",
			Help:      "NeoWs feed requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		FeedAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neo_watch",
			Name:      "feed_api_duration_seconds",
			Help:      "NeoWs API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		ClassifyBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_watch",
			Name:      "classify_batch_size",
			Help:      "Number of stored objects per batch classification run.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ClassifyBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_watch",
			Name:      "classify_batch_duration_seconds",
			Help:      "Duration of a complete classify-and-persist run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		ChatMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_watch",
			Name:      "chat_members",
			Help:      "Currently connected chat members.",
		}),
		ChatMessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "chat_messages_received_total",
			Help:      "Total chat messages accepted and logged.",
		}),
		ChatDeliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_watch",
			Name:      "chat_deliveries_dropped_total",
			Help:      "Broadcast deliveries dropped because a member was unreachable.",
		}),
	}
}
