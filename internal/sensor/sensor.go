// Package sensor defines the read primitives of the ECG front end, the PPG
// oximeter and the IR thermometer, with a serial-bridge backend and a
// deterministic simulator.
package sensor

import "errors"

var (
	// ErrNoSample is returned when a channel has not produced a value yet.
	ErrNoSample = errors.New("sensor: no sample available")
	// ErrStale is returned when the latest value is older than the freshness
	// window of the backend.
	ErrStale = errors.New("sensor: sample is stale")
)

// PPGSample is one red/IR intensity pair from the oximeter FIFO.
type PPGSample struct {
	Red float64
	IR  float64
}

// ECGReader returns one ECG voltage sample.
type ECGReader interface {
	ReadVoltage() (float64, error)
}

// PPGReader returns one red/IR pair. An error means no pair was available.
type PPGReader interface {
	ReadFIFO() (PPGSample, error)
}

// Thermometer returns the skin (object) temperature in degrees Celsius.
type Thermometer interface {
	ReadObjectTemperature() (float64, error)
}
