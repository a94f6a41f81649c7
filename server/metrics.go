package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ptouchd_jobs_total",
		Help: "Print jobs handled, by outcome",
	}, []string{"outcome"}) // outcome=ok|media_mismatch|device_fault|transport_error|timeout|cancelled|bad_request

	rasterLinesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ptouchd_raster_lines_sent_total",
		Help: "Raster lines streamed to the printer in completed jobs",
	})

	bytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ptouchd_job_bytes_received_total",
		Help: "Raster payload bytes received from clients",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ptouchd_job_duration_seconds",
		Help:    "Wall time from session start to terminal job state",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
