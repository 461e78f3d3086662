package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	JobsEnqueued  prometheus.Counter
	DedupeSkips   prometheus.Counter
	SendSuccesses prometheus.Counter
	SendRequeues  prometheus.Counter
	SendFailures  prometheus.Counter
	BatchDuration prometheus.Histogram
	QueueLength   prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		JobsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_mailer_jobs_enqueued_total",
			Help: "Total number of email jobs admitted to the queue",
		}),
		DedupeSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_mailer_dedupe_skips_total",
			Help: "Total number of email jobs rejected as duplicates at admission",
		}),
		SendSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_mailer_send_successes_total",
			Help: "Total number of successfully delivered emails",
		}),
		SendRequeues: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_mailer_send_requeues_total",
			Help: "Total number of delivery attempts requeued for retry",
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_mailer_send_failures_total",
			Help: "Total number of permanently failed email jobs",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_mailer_batch_duration_seconds",
			Help:    "Time spent processing one worker batch",
			Buckets: prometheus.DefBuckets,
		}),
		QueueLength: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "order_mailer_queue_length",
			Help: "Number of email jobs waiting in the queue after the last batch",
		}),
	}
}
