// Package metrics declares the Prometheus collectors shared by the binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceWrites counts upserted attendance rows by session and type.
	AttendanceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "attendance_writes_total",
		Help:      "Attendance rows upserted, by session and type.",
	}, []string{"session", "type"})

	// Detections counts per-face outcomes of the live check-in loop.
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "detections_total",
		Help:      "Faces evaluated by the check-in loop, by outcome.",
	}, []string{"outcome"})

	// FrameErrors counts frames the check-in loop failed to read or evaluate.
	FrameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "detection_frame_errors_total",
		Help:      "Frames skipped because of a detection error.",
	})

	// Enrollments counts face enrollment jobs by result.
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "enrollments_total",
		Help:      "Face enrollment jobs processed by the worker, by result.",
	}, []string{"result"})

	// RequestDuration observes API latency per route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "API request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
