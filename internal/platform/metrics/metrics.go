// Package metrics holds the Prometheus instruments for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	IdentitiesCreated prometheus.Counter
	SessionsCreated   prometheus.Counter
	SessionsConsumed  prometheus.Counter
	PointsCredited    prometheus.Counter
	PointsDebited     prometheus.Counter
	TransfersExecuted prometheus.Counter
	TransfersFailed   prometheus.Counter
	NotifyDropped     prometheus.Counter
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		IdentitiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_identities_created_total",
			Help: "Total number of identities created.",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_sessions_created_total",
			Help: "Total number of authentication sessions created.",
		}),
		SessionsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_sessions_consumed_total",
			Help: "Total number of authentication sessions consumed.",
		}),
		PointsCredited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_points_credited_total",
			Help: "Total points credited across all ledgers.",
		}),
		PointsDebited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_points_debited_total",
			Help: "Total points debited across all ledgers.",
		}),
		TransfersExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_transfers_executed_total",
			Help: "Total number of authorized transfers executed.",
		}),
		TransfersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_transfers_failed_total",
			Help: "Total number of transfer attempts that failed.",
		}),
		NotifyDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aliaspay_notifications_dropped_total",
			Help: "Notifications dropped because the sink was unavailable or full.",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aliaspay_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
