// Package metrics exposes Prometheus instrumentation for the connector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novapay_webhooks_received_total",
		Help: "Webhooks received, by event type",
	}, []string{"event_type"})

	WebhooksRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novapay_webhooks_rejected_total",
		Help: "Webhooks rejected before processing, by reason",
	}, []string{"reason"})

	WebhooksIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novapay_webhooks_ignored_total",
		Help: "Webhooks acknowledged without processing, by reason",
	}, []string{"reason"})

	ReconcileConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novapay_reconcile_version_conflicts_total",
		Help: "Versioned payment updates rejected by optimistic concurrency",
	})

	PlatformRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopstack_request_duration_seconds",
		Help:    "Latency of ShopStack API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "novapay_request_duration_seconds",
		Help:    "Latency of NovaPay API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
