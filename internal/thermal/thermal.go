// Package thermal estimates core body temperature from an IR skin
// thermometer with bounded retries.
package thermal

import (
	"context"
	"math"
	"time"

	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/timeutil"
)

// Range is a closed interval in degrees Celsius.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether c lies in [Min, Max].
func (r Range) Contains(c float64) bool { return c >= r.Min && c <= r.Max }

// Reader converts skin readings into a core temperature estimate.
type Reader struct {
	Sensor     sensor.Thermometer
	Clock      timeutil.Clock
	Attempts   int
	RetryDelay time.Duration
	// Plausible is the skin temperature range accepted as a real reading.
	Plausible Range
	// Offset is added to the skin temperature to estimate core temperature.
	Offset float64
	// Usual is the core range outside which a warning is logged.
	Usual Range
}

// NewReader returns a Reader with the device defaults: 3 attempts 500 ms
// apart, skin plausible in [25, 40] C, core = skin + 4 C.
func NewReader(s sensor.Thermometer, clock timeutil.Clock) *Reader {
	return &Reader{
		Sensor:     s,
		Clock:      clock,
		Attempts:   3,
		RetryDelay: 500 * time.Millisecond,
		Plausible:  Range{Min: 25, Max: 40},
		Offset:     4,
		Usual:      Range{Min: 30, Max: 42},
	}
}

// ReadCoreTemperature returns the core estimate rounded to 2 decimals, or
// ok == false when no sensor is configured, every attempt failed or was
// implausible, or ctx was cancelled between attempts.
func (r *Reader) ReadCoreTemperature(ctx context.Context) (float64, bool) {
	if r == nil || r.Sensor == nil {
		return 0, false
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	attempts := max(r.Attempts, 1)

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if ctx.Err() != nil {
				return 0, false
			}
			clock.Sleep(r.RetryDelay)
		}

		skin, err := r.Sensor.ReadObjectTemperature()
		if err != nil {
			monitoring.Logf("temperature read %d/%d: %v", i+1, attempts, err)
			continue
		}
		if !r.Plausible.Contains(skin) {
			monitoring.Logf("temperature read %d/%d: skin %.2f C outside [%g, %g]", i+1, attempts, skin, r.Plausible.Min, r.Plausible.Max)
			continue
		}

		core := math.Round((skin+r.Offset)*100) / 100
		if !r.Usual.Contains(core) {
			monitoring.Warnf("unusual body temperature reading: %.2f C", core)
		}
		return core, true
	}

	monitoring.Warnf("body temperature reading failed or out of range after %d attempts", attempts)
	return 0, false
}
