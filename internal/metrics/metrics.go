// Package metrics defines the Prometheus instruments for scan ingestion.
// A nil *Scan or *Camera is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan instruments the coordinator.
type Scan struct {
	outcomes   *prometheus.CounterVec
	suppressed *prometheus.CounterVec
}

// NewScan registers the coordinator counters on reg.
func NewScan(reg prometheus.Registerer) *Scan {
	f := promauto.With(reg)
	return &Scan{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_outcomes_total",
			Help: "Terminal scan outcomes by kind and source.",
		}, []string{"kind", "source"}),
		suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_gate_suppressed_total",
			Help: "Scans dropped by the debounce gate.",
		}, []string{"source"}),
	}
}

// Outcome counts one terminal outcome.
func (m *Scan) Outcome(kind, source string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, source).Inc()
}

// Suppressed counts one debounced scan.
func (m *Scan) Suppressed(source string) {
	if m == nil {
		return
	}
	m.suppressed.WithLabelValues(source).Inc()
}

// Camera instruments the frame producer.
type Camera struct {
	frames       prometheus.Counter
	decodeSkips  prometheus.Counter
	decodes      *prometheus.CounterVec
	decodePanics prometheus.Counter
}

// NewCamera registers the frame producer counters on reg.
func NewCamera(reg prometheus.Registerer) *Camera {
	f := promauto.With(reg)
	return &Camera{
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "camera_frames_total",
			Help: "Frames pulled from the camera and shown.",
		}),
		decodeSkips: f.NewCounter(prometheus.CounterOpts{
			Name: "camera_decode_skipped_total",
			Help: "Frames not decoded because a decode was already in flight.",
		}),
		decodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_decodes_total",
			Help: "Decode attempts by result (found, empty).",
		}, []string{"result"}),
		decodePanics: f.NewCounter(prometheus.CounterOpts{
			Name: "camera_decode_panics_total",
			Help: "Decode cycles that panicked and were recovered.",
		}),
	}
}

// Frame counts one displayed frame.
func (m *Camera) Frame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

// DecodeSkipped counts a frame that skipped decoding.
func (m *Camera) DecodeSkipped() {
	if m == nil {
		return
	}
	m.decodeSkips.Inc()
}

// Decoded counts a decode attempt.
func (m *Camera) Decoded(found bool) {
	if m == nil {
		return
	}
	result := "empty"
	if found {
		result = "found"
	}
	m.decodes.WithLabelValues(result).Inc()
}

// DecodePanicked counts a recovered decode panic.
func (m *Camera) DecodePanicked() {
	if m == nil {
		return
	}
	m.decodePanics.Inc()
}
