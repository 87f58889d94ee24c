package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricctl_requests_total",
		Help: "Fabric API requests by method and response status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fabricctl_request_duration_seconds",
		Help:    "Latency of Fabric API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricctl_lro_polls_total",
		Help: "Status polls issued while waiting for operations, jobs and publishes",
	}, []string{"kind"})
)
