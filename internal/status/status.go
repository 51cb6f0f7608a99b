// Package status provides a thread-safe status tracker for the security-sensor daemon.
// It is read by the HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/security-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	FrameIntervalMs int64
	StreamMs        int64
	CooldownMs      int64
	HeartbeatMs     int64
	Threshold       int
	Score           float64
	Classes         string
	ModelKind       string
	DisplayWidth    int
	DisplayHeight   int
	Broker          string
	TopicPrefix     string
	HTTPAddr        string
}

// Frame is the most recently published display bitmap.
type Frame struct {
	Data []byte
	At   time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Phase         logic.Phase
	Since         time.Time // zero for phases without a timestamp
	Consecutive   int
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	LastFrameAt   time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	clock clock.Clock

	mu    sync.RWMutex
	snap  Snapshot
	frame Frame
}

// NewTracker creates a Tracker starting now on clk with the given config.
func NewTracker(clk clock.Clock, cfg Config) *Tracker {
	return &Tracker{
		clock: clk,
		snap: Snapshot{
			Phase:     logic.PhaseScanning,
			StartTime: clk.Now(),
			Config:    cfg,
		},
	}
}

// Update records the lifecycle state, debounce counter and counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.State, consecutive int, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Phase = state.Phase()
	t.snap.Since = logic.Since(state)
	t.snap.Consecutive = consecutive
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetFrame stores a copy of the last published bitmap.
func (t *Tracker) SetFrame(data []byte, at time.Time) {
	cp := append([]byte(nil), data...)
	t.mu.Lock()
	t.frame = Frame{Data: cp, At: at}
	t.snap.LastFrameAt = at
	t.mu.Unlock()
}

// Frame returns the last published bitmap. ok is false before the first one.
func (t *Tracker) Frame() (f Frame, ok bool) {
	t.mu.RLock()
	f = t.frame
	t.mu.RUnlock()
	return f, f.Data != nil
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the clock's time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.clock.Now()
	return s
}
