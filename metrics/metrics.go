// Package metrics exposes counters tracking frame processing, shot
// delivery, and reconnects via prometheus/client_golang (SPEC_FULL.md §3).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_frames_processed_total",
		Help: "Reassembled application frames classified by the session layer.",
	})

	ShotsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_shots_emitted_total",
		Help: "Normalized shots forwarded to downstream sinks.",
	})

	ShotsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_shots_duplicate_total",
		Help: "Shot deliveries dropped as duplicates of an already-seen shot id.",
	})

	RequestTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_request_timeouts_total",
		Help: "Request/response exchanges that timed out and advanced the counter unconditionally.",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_reconnects_total",
		Help: "Times the reconnect loop waited out its reconnect delay before another connect attempt.",
	})

	ChecksumErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "r10_checksum_errors_total",
		Help: "Frames dropped for a CRC16 mismatch.",
	})
)
