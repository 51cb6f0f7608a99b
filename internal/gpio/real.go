//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealButton watches a push-button wired between a GPIO pin and ground.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton requests pin (BCM numbering) as a pulled-up input and calls
// onPress on every falling edge. The kernel debounces the line.
func NewRealButton(pin int, debounce time.Duration, onPress PressHandler) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventFallingEdge {
				onPress()
			}
		}),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealButton{chip: chip, line: line}, nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing to leave a clean state for shutdown/reboot.
func (b *RealButton) Close() error {
	var err error
	if b.line != nil {
		if rerr := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure button pin: %w", rerr))
		}
		if cerr := b.line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close button pin: %w", cerr))
		}
	}
	if b.chip != nil {
		if cerr := b.chip.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", cerr))
		}
	}
	return err
}
