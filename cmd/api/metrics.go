package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ragRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medisense_rag_requests_total",
		Help: "RAG requests by outcome.",
	}, []string{"outcome"})

	ragDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medisense_rag_request_duration_seconds",
		Help:    "End-to-end RAG request latency.",
		Buckets: prometheus.DefBuckets,
	})
)
