package gpio

import "sync"

// FakeButton is a test double whose presses are triggered by the test.
type FakeButton struct {
	mu      sync.Mutex
	onPress PressHandler
	presses int
	closed  bool
}

// NewFakeButton creates a FakeButton delivering to onPress.
func NewFakeButton(onPress PressHandler) *FakeButton {
	return &FakeButton{onPress: onPress}
}

// Press simulates one debounced press. Presses after Close are ignored,
// as with the real line.
func (f *FakeButton) Press() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.presses++
	handler := f.onPress
	f.mu.Unlock()

	if handler != nil {
		handler()
	}
}

// Presses returns the number of delivered presses.
func (f *FakeButton) Presses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presses
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (f *FakeButton) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
