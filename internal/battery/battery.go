// Package battery reads the supply voltage. A reading is best effort: any
// failure or implausible value becomes the "not measured" sentinel.
package battery

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Plausible voltage range for the cell.
const (
	MinPlausibleVolts = 0.5
	MaxPlausibleVolts = 5.0
)

// Reading is a voltage or the not-measured sentinel.
type Reading struct {
	Volts    float64
	Measured bool
}

// NotMeasured is the sentinel reading.
func NotMeasured() Reading { return Reading{} }

// FromVolts accepts v only inside the plausible range.
func FromVolts(v float64) Reading {
	if v < MinPlausibleVolts || v > MaxPlausibleVolts {
		return NotMeasured()
	}
	return Reading{Volts: v, Measured: true}
}

func (r Reading) String() string {
	if !r.Measured {
		return "not measured"
	}
	return fmt.Sprintf("%.2fV", r.Volts)
}

// Sensor returns the raw battery voltage.
type Sensor interface {
	Volts() (float64, error)
}

// Static is a sensor with a fixed voltage, used when no ADC is fitted in
// simulation mode.
type Static float64

func (s Static) Volts() (float64, error) { return float64(s), nil }

// Measure reads s once and never fails. A nil sensor is "not measured".
func Measure(s Sensor, logger *slog.Logger) Reading {
	if s == nil {
		return NotMeasured()
	}
	v, err := s.Volts()
	if err != nil {
		logger.Warn("Battery read failed", logfields.Error(err))
		return NotMeasured()
	}
	r := FromVolts(v)
	if !r.Measured {
		logger.Warn("Battery voltage implausible", slog.Float64("raw_volts", v))
	}
	return r
}
