package mqtt

import "sync"

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use; read recorded fields through the
// accessor methods while a worker may still be publishing.
type FakePublisher struct {
	mu sync.Mutex

	// Alerts contains all alerts that were published.
	Alerts []Alert

	// AlertPayloads contains the JSON payloads of published alerts.
	AlertPayloads [][]byte

	// Frames contains the published bitmaps.
	Frames [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// Gate, if non-nil, is received from before each publish.
	Gate chan struct{}

	// Attempts counts publish calls, failed ones included.
	Attempts int

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) wait() {
	f.mu.Lock()
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// PublishAlert records the alert.
func (f *FakePublisher) PublishAlert(alert Alert) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Attempts++
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatAlertPayload(alert)
	if err != nil {
		return err
	}
	f.Alerts = append(f.Alerts, alert)
	f.AlertPayloads = append(f.AlertPayloads, payload)
	return nil
}

// PublishFrame records a copy of the bitmap.
func (f *FakePublisher) PublishFrame(frame []byte) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Attempts++
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Frames = append(f.Frames, append([]byte(nil), frame...))
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Attempts++
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetError sets the error returned by subsequent publishes.
func (f *FakePublisher) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishError = err
}

// AlertEvents returns the event names of the recorded alerts in order.
func (f *FakePublisher) AlertEvents() []AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]AlertEvent, len(f.Alerts))
	for i, a := range f.Alerts {
		events[i] = a.Event
	}
	return events
}

// FrameCount returns the number of recorded bitmaps.
func (f *FakePublisher) FrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Frames)
}

// SystemEventNames returns the names of the recorded system events in order.
func (f *FakePublisher) SystemEventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// AttemptCount returns the number of publish calls so far.
func (f *FakePublisher) AttemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Attempts
}

// IsClosed reports whether Close was called.
func (f *FakePublisher) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Alerts = nil
	f.AlertPayloads = nil
	f.Frames = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Attempts = 0
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
