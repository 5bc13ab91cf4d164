package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of catalog products created",
	})

	ProductsIgnoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_ignored_total",
		Help: "Total number of product creations ignored because the barcode already existed",
	})

	ProductsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "Total number of catalog products edited",
	})

	ProductLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_lookups_total",
		Help: "Total number of barcode lookups",
	}, []string{"result"})

	ImportRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_records_total",
		Help: "Total number of ledger mutations",
	}, []string{"op"})

	LedgerEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_consumed_total",
		Help: "Total number of ledger events received from the catalog topic",
	}, []string{"event_type"})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected inputs by field class",
	}, []string{"field"})

	WipeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipe_attempts_total",
		Help: "Total number of wipe attempts",
	}, []string{"result"})

	ScanSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_sessions_total",
		Help: "Total number of finished scan sessions by outcome",
	}, []string{"outcome"})

	ScanDecodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_decode_latency_seconds",
		Help:    "Latency of a single frame decode attempt",
		Buckets: prometheus.DefBuckets,
	})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_total",
		Help: "Total number of ledger exports",
	}, []string{"format", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
