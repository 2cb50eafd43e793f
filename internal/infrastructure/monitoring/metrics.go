package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var HTTP = HTTPMetrics{
	RequestsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dormancy_monitor_http_requests_total",
			Help: "Total number of HTTP requests received.",
		},
		[]string{"method", "path", "code"},
	),
	RequestDuration: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dormancy_monitor_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	),
}

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

type ScanMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	AccountsScanned    prometheus.Gauge
	FlaggedAccounts    *prometheus.GaugeVec
	EnrichmentFailures prometheus.Counter
}

var Scan = ScanMetrics{
	RunsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dormancy_monitor_runs_total",
			Help: "Total number of dormancy analysis runs by outcome.",
		},
		[]string{"outcome"},
	),
	RunDuration: promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dormancy_monitor_run_duration_seconds",
			Help:    "Histogram of dormancy analysis run durations.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	),
	AccountsScanned: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dormancy_monitor_accounts_scanned",
			Help: "Number of accounts fetched in the most recent run.",
		},
	),
	FlaggedAccounts: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dormancy_monitor_flagged_accounts",
			Help: "Number of accounts flagged per alert tier in the most recent run.",
		},
		[]string{"tier"},
	),
	EnrichmentFailures: promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dormancy_monitor_enrichment_failures_total",
			Help: "Total number of identity enrichment lookup failures.",
		},
	),
}

func RecordRun(outcome string, duration time.Duration) {
	Scan.RunsTotal.WithLabelValues(outcome).Inc()
	Scan.RunDuration.Observe(duration.Seconds())
}

func RecordScanResult(scanned, communicationNeeded, closureNeeded int) {
	Scan.AccountsScanned.Set(float64(scanned))
	Scan.FlaggedAccounts.WithLabelValues("communication_needed").Set(float64(communicationNeeded))
	Scan.FlaggedAccounts.WithLabelValues("closure_needed").Set(float64(closureNeeded))
}

func RecordEnrichmentFailure() {
	Scan.EnrichmentFailures.Inc()
}
