// Package gpio provides the acknowledgment push-button with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Chip is the GPIO character device holding the button line.
const Chip = "gpiochip0"

// PressHandler is called once per debounced button press.
type PressHandler func()

// Button delivers presses to the PressHandler it was created with.
type Button interface {
	// Close releases GPIO resources. No presses are delivered afterwards.
	Close() error
}
