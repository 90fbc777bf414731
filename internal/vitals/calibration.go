// Package vitals derives heart rate, respiration rate, SpO2, pulse transit
// time and blood pressure from a filtered ECG/PPG capture.
package vitals

import (
	"math"

	"github.com/banshee-data/vitals.report/internal/dsp"
)

// Linear is a calibration pair. Its meaning depends on the estimator: SpO2
// uses A - B*R, blood pressure uses A/PTT + B.
type Linear struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// PTTWindow bounds an accepted ECG-to-PPG delay in seconds, inclusive.
type PTTWindow struct {
	Min float64 `json:"min_seconds"`
	Max float64 `json:"max_seconds"`
}

// Contains reports whether d lies inside the window.
func (w PTTWindow) Contains(d float64) bool {
	return d >= w.Min && d <= w.Max
}

// Calibration gathers every empirical constant used by the estimators.
type Calibration struct {
	ECGBand          dsp.Band     `json:"ecg_band"`
	PPGBand          dsp.Band     `json:"ppg_band"`
	RespirationBand  dsp.Band     `json:"respiration_band"`
	Peaks            dsp.Detector `json:"peaks"`
	RespirationPeaks dsp.Detector `json:"respiration_peaks"`
	SpO2             Linear       `json:"spo2"`
	Systolic         Linear       `json:"systolic"`
	Diastolic        Linear       `json:"diastolic"`
	PTT              PTTWindow    `json:"ptt"`
}

// DefaultCalibration returns the constants the device ships with. The blood
// pressure pairs were fitted against a single subject (105/71 mmHg at a PTT
// of 0.356 s).
func DefaultCalibration() Calibration {
	return Calibration{
		ECGBand:          dsp.Band{Low: 0.5, High: 40, Order: 2},
		PPGBand:          dsp.Band{Low: 0.5, High: 5, Order: 2},
		RespirationBand:  dsp.Band{Low: 0.1, High: 0.4, Order: 4},
		Peaks:            dsp.DefaultDetector,
		RespirationPeaks: dsp.Detector{ThresholdK: -1, MinSpacingSeconds: 1.5},
		SpO2:             Linear{A: 110, B: 12},
		Systolic:         Linear{A: 30.26, B: 20},
		Diastolic:        Linear{A: 14.596, B: 30},
		PTT:              PTTWindow{Min: 0.1, Max: 0.6},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
