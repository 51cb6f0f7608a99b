// Package logic contains the pure detection lifecycle of the security sensor.
// This package has NO external dependencies (no camera, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Phase names a lifecycle state variant.
type Phase string

const (
	PhaseScanning    Phase = "SCANNING"
	PhaseDetected    Phase = "DETECTED"
	PhaseStreaming   Phase = "STREAMING"
	PhaseStreamEnded Phase = "STREAM_ENDED"
	PhaseCoolingDown Phase = "COOLING_DOWN"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhaseScanning, PhaseDetected, PhaseStreaming, PhaseStreamEnded, PhaseCoolingDown}

// State is one of Scanning, Detected, Streaming, StreamEnded or CoolingDown.
// The set is closed: only this package can implement it.
type State interface {
	Phase() Phase
	isState()
}

// Scanning is the default state: frames are being classified.
type Scanning struct{}

// Detected means the last classification was positive and the debounce
// counter has not yet crossed the threshold.
type Detected struct {
	At time.Time
}

// Streaming means the debounce threshold was crossed; encoded frames are emitted.
type Streaming struct {
	Since time.Time
}

// StreamEnded marks an elapsed streaming window. The next tick enters CoolingDown.
type StreamEnded struct{}

// CoolingDown suppresses scanning and streaming until the cooldown window
// elapses or an acknowledgment restarts it.
type CoolingDown struct {
	Since time.Time
}

func (Scanning) Phase() Phase    { return PhaseScanning }
func (Detected) Phase() Phase    { return PhaseDetected }
func (Streaming) Phase() Phase   { return PhaseStreaming }
func (StreamEnded) Phase() Phase { return PhaseStreamEnded }
func (CoolingDown) Phase() Phase { return PhaseCoolingDown }

func (Scanning) isState()    {}
func (Detected) isState()    {}
func (Streaming) isState()   {}
func (StreamEnded) isState() {}
func (CoolingDown) isState() {}

// Suppressed reports whether the caller must skip classification in state s.
func Suppressed(s State) bool {
	switch s.(type) {
	case Streaming, StreamEnded, CoolingDown:
		return true
	}
	return false
}

// Since returns the timestamp carried by s, or the zero time for
// variants without one.
func Since(s State) time.Time {
	switch v := s.(type) {
	case Detected:
		return v.At
	case Streaming:
		return v.Since
	case CoolingDown:
		return v.Since
	}
	return time.Time{}
}

// Config holds the immutable lifecycle configuration.
type Config struct {
	// Threshold is the number of consecutive positives tolerated before
	// streaming; the threshold+1'th positive starts a stream.
	Threshold      int
	StreamWindow   time.Duration
	CooldownWindow time.Duration
}

// Counts tracks lifecycle activity since startup.
type Counts struct {
	Positives       int
	Alerts          int
	StreamsEnded    int
	Acknowledgments int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
