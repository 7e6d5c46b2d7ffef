package battery

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

var channels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// ADS1115 reads the cell through a resistor divider on an ADS1115 channel.
// host.Init must have run before OpenADS1115.
type ADS1115 struct {
	bus     i2c.BusCloser
	pin     ads1x15.PinADC
	divider float64
}

// OpenADS1115 opens the I²C bus and configures a single-ended channel.
func OpenADS1115(busName string, channel int, divider float64) (*ADS1115, error) {
	if channel < 0 || channel >= len(channels) {
		return nil, fmt.Errorf("ads1115: invalid channel %d", channel)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("ads1115: open i2c bus %q: %w", busName, err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ads1115: %w", err)
	}
	pin, err := dev.PinForChannel(channels[channel], 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ads1115: configure channel %d: %w", channel, err)
	}
	return &ADS1115{bus: bus, pin: pin, divider: divider}, nil
}

func (a *ADS1115) Volts() (float64, error) {
	sample, err := a.pin.Read()
	if err != nil {
		return 0, err
	}
	return float64(sample.V) / float64(physic.Volt) * a.divider, nil
}

func (a *ADS1115) Close() error {
	_ = a.pin.Halt()
	return a.bus.Close()
}
