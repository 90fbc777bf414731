package vitals

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// HeartRate converts R-peak indices to beats per minute from the mean R-R
// interval. Fewer than two peaks yields ok == false.
func HeartRate(peaks []int, sampleRateHz float64) (float64, bool) {
	if len(peaks) < 2 || sampleRateHz <= 0 {
		return 0, false
	}
	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / sampleRateHz
	}
	mean := stat.Mean(rr, nil)
	if mean <= 0 {
		return 0, false
	}
	return 60 / mean, true
}

// RespirationRate counts breathing peaks in the IR channel and scales the
// count to breaths per minute over the whole capture. It is always defined:
// zero peaks give 0, and so does a flat window, whose filtered output is
// only round-off. A filter error is returned for the caller to log; the
// rate is then reported as 0.
func RespirationRate(ir []float64, sampleRateHz float64, cal Calibration) (float64, error) {
	if len(ir) == 0 || sampleRateHz <= 0 {
		return 0, nil
	}
	filtered, err := cal.RespirationBand.Apply(ir, sampleRateHz)
	if err != nil {
		return 0, fmt.Errorf("respiration filter: %w", err)
	}
	if flat(ir) {
		return 0, nil
	}
	peaks := cal.RespirationPeaks.Detect(filtered, sampleRateHz)
	seconds := float64(len(ir)) / sampleRateHz
	return round2(float64(len(peaks)) * 60 / seconds), nil
}

// SpO2 estimates oxygen saturation from the ratio of ratios of the raw red
// and IR channels. AC is the RMS of the mean-removed signal, DC its mean.
// The result is clamped to [0, 100] and rounded to 2 decimals. A zero IR AC,
// IR DC or red DC yields ok == false.
func SpO2(red, ir []float64, cal Calibration) (float64, bool) {
	if len(red) == 0 || len(ir) == 0 {
		return 0, false
	}
	redDC, redAC := stat.PopMeanStdDev(red, nil)
	irDC, irAC := stat.PopMeanStdDev(ir, nil)
	if irAC == 0 || irDC == 0 || redDC == 0 {
		return 0, false
	}
	ratio := (redAC / redDC) / (irAC / irDC)
	spo2 := cal.SpO2.A - cal.SpO2.B*ratio
	return round2(clamp(spo2, 0, 100)), true
}

// flatTolerance is the standard deviation, relative to the signal level,
// below which a window carries no breathing modulation.
const flatTolerance = 1e-9

func flat(x []float64) bool {
	mean, std := stat.PopMeanStdDev(x, nil)
	return std <= flatTolerance*math.Max(1, math.Abs(mean))
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
