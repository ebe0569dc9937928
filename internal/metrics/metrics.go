// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DepositsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deposits_completed_total",
		Help: "Deposits credited to a user balance",
	})

	Activations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Number purchases and their outcome",
		},
		[]string{"result"},
	)

	CommissionJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_jobs_total",
			Help: "Commission outbox job outcomes",
		},
		[]string{"result"},
	)

	PriceRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_refresh_total",
			Help: "Price table refresh attempts",
		},
		[]string{"result"},
	)
)
