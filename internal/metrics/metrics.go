// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsWrittenTotal counts records accepted by a sink transport
	EventsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evelog_events_written_total",
			Help: "Total number of events written to the sink",
		},
		[]string{"sink"},
	)

	// EventsDroppedTotal counts records lost to transport write failures
	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evelog_events_dropped_total",
			Help: "Total number of events dropped due to sink write failures",
		},
		[]string{"sink"},
	)

	// EventBytes tracks the framed record size handed to the sink
	EventBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evelog_event_bytes",
			Help:    "Size of framed event records in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12), // 64B to 128KiB
		},
		[]string{"sink"},
	)

	// ReplayPacketsTotal counts packets read during offline replay
	ReplayPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evelog_replay_packets_total",
			Help: "Total number of packets read from capture files",
		},
		[]string{"result"},
	)

	// ReplayFlows tracks flows currently held in the replay flow table
	ReplayFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evelog_replay_flows",
			Help: "Current number of flows tracked during replay",
		},
	)
)

// Replay packet results.
const (
	ResultLogged  = "logged"
	ResultSkipped = "skipped"
	ResultError   = "error"
)
