// Package button samples the boot button that selects config mode.
package button

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Defaults for boot arbitration.
const (
	DefaultHold     = time.Second
	DefaultInterval = 50 * time.Millisecond
)

// Input reports whether the button is currently pressed.
type Input interface {
	Pressed() (bool, error)
}

// HeldFor reports whether in is pressed continuously for hold, sampling every
// interval. A button that is up at the first sample returns immediately.
func HeldFor(ctx context.Context, in Input, hold, interval time.Duration) (bool, error) {
	pressed, err := in.Pressed()
	if err != nil || !pressed {
		return false, err
	}

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
		pressed, err := in.Pressed()
		if err != nil || !pressed {
			return false, err
		}
		if time.Since(start) >= hold {
			return true, nil
		}
	}
}

// GPIO is an active-low button with the internal pull-up enabled.
// host.Init must have run before OpenGPIO.
type GPIO struct {
	pin gpio.PinIO
}

func OpenGPIO(name string) (*GPIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button: gpio %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s: %w", name, err)
	}
	return &GPIO{pin: pin}, nil
}

func (g *GPIO) Pressed() (bool, error) { return g.pin.Read() == gpio.Low, nil }

// FlagFile is pressed while a file exists. It stands in for the button when
// running without hardware.
type FlagFile string

func (f FlagFile) Pressed() (bool, error) {
	if f == "" {
		return false, nil
	}
	_, err := os.Stat(string(f))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
