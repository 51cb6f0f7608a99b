package logic

import (
	"fmt"
	"time"
)

// Lifecycle is the detection state machine. It is not safe for concurrent
// use; see Shared.
type Lifecycle struct {
	cfg         Config
	state       State
	consecutive int
	counts      Counts
}

// NewLifecycle creates a Lifecycle in the Scanning state.
func NewLifecycle(cfg Config) (*Lifecycle, error) {
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("detection threshold must be >= 0, got %d", cfg.Threshold)
	}
	if cfg.StreamWindow < 0 {
		return nil, fmt.Errorf("stream window must be >= 0, got %v", cfg.StreamWindow)
	}
	if cfg.CooldownWindow < 0 {
		return nil, fmt.Errorf("cooldown window must be >= 0, got %v", cfg.CooldownWindow)
	}
	return &Lifecycle{cfg: cfg, state: Scanning{}}, nil
}

// Advance feeds one cycle into the state machine and returns the new state.
// classified is ignored while the state is Streaming, StreamEnded or CoolingDown.
// now must come from a monotonic source (time.Now or a clock derived from it).
func (l *Lifecycle) Advance(now time.Time, classified bool) State {
	switch s := l.state.(type) {
	case Scanning, Detected:
		if !classified {
			l.consecutive = 0
			l.state = Scanning{}
			break
		}
		l.counts.Positives++
		l.consecutive++
		if l.consecutive > l.cfg.Threshold {
			l.consecutive = 0
			l.counts.Alerts++
			l.state = Streaming{Since: now}
			break
		}
		l.state = Detected{At: now}

	case Streaming:
		if now.Sub(s.Since) > l.cfg.StreamWindow {
			l.counts.StreamsEnded++
			l.state = StreamEnded{}
		}

	case StreamEnded:
		l.state = CoolingDown{Since: now}

	case CoolingDown:
		if now.Sub(s.Since) > l.cfg.CooldownWindow {
			l.consecutive = 0
			l.state = Scanning{}
		}
	}
	return l.state
}

// Acknowledge forces CoolingDown(now) and clears the debounce counter,
// pre-empting any stream in progress.
func (l *Lifecycle) Acknowledge(now time.Time) State {
	l.consecutive = 0
	l.counts.Acknowledgments++
	l.state = CoolingDown{Since: now}
	return l.state
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Consecutive returns the current debounce counter.
func (l *Lifecycle) Consecutive() int {
	return l.consecutive
}

// Counts returns a copy of the activity counters.
func (l *Lifecycle) Counts() Counts {
	return l.counts
}

// Config returns the lifecycle configuration.
func (l *Lifecycle) Config() Config {
	return l.cfg
}
