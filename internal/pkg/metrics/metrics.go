package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentgate_dispatches_total",
		Help: "The total number of tool dispatches processed",
	}, []string{"tool", "status"})

	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentgate_dispatch_latency_seconds",
		Help:    "Tool dispatch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentgate_rate_limit_denials_total",
		Help: "Total rate limiter denials per category",
	}, []string{"category"})

	SafetyRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentgate_safety_rejects_total",
		Help: "Total safety validator rejections",
	}, []string{"reason"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentgate_upstream_requests_total",
		Help: "Upstream REST requests by API family and outcome",
	}, []string{"family", "outcome"})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentgate_stream_reconnects_total",
		Help: "Total market stream reconnect attempts",
	})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentgate_http_latency_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
