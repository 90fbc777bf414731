package dsp

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PeakOptions constrains FindPeaks. A zero MinDistance (or 1) disables the
// spacing rule; HasHeight enables the absolute height floor.
type PeakOptions struct {
	Height      float64
	HasHeight   bool
	MinDistance int
}

// Detector holds the per-channel tuning of the adaptive peak detector.
type Detector struct {
	// ThresholdK scales the standard deviation added to the mean to form the
	// height threshold. Negative disables the threshold.
	ThresholdK float64 `json:"threshold_k"`
	// MinSpacingSeconds is the minimum time between accepted peaks.
	MinSpacingSeconds float64 `json:"min_spacing_seconds"`
}

// DefaultDetector is the R-peak / pulse-peak tuning: mean + 0.3 sigma and at
// most one peak per half second (about 120 bpm).
var DefaultDetector = Detector{ThresholdK: 0.3, MinSpacingSeconds: 0.5}

// DetectPeaks finds peaks in a filtered signal with DefaultDetector.
func DetectPeaks(filtered []float64, sampleRateHz float64) []int {
	return DefaultDetector.Detect(filtered, sampleRateHz)
}

// Detect returns ascending peak indices of x that clear the adaptive height
// threshold and are at least MinSpacingSeconds apart.
func (d Detector) Detect(x []float64, sampleRateHz float64) []int {
	if len(x) < 3 {
		return nil
	}
	opts := PeakOptions{MinDistance: int(d.MinSpacingSeconds * sampleRateHz)}
	if d.ThresholdK >= 0 {
		opts.Height = d.Threshold(x)
		opts.HasHeight = true
	}
	return FindPeaks(x, opts)
}

// Threshold is the adaptive height used by Detect: mean + K * sigma, with
// the population standard deviation of x.
func (d Detector) Threshold(x []float64) float64 {
	mean, std := stat.PopMeanStdDev(x, nil)
	return mean + d.ThresholdK*std
}

// FindPeaks returns the indices of the local maxima of x in ascending order.
// Flat peaks resolve to the middle sample (rounded down). When a minimum
// distance is set, taller peaks are kept first and any smaller peak closer
// than the distance to a kept one is discarded.
func FindPeaks(x []float64, opts PeakOptions) []int {
	peaks := localMaxima(x)
	if opts.HasHeight {
		kept := peaks[:0]
		for _, p := range peaks {
			if x[p] >= opts.Height {
				kept = append(kept, p)
			}
		}
		peaks = kept
	}
	if opts.MinDistance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(x, peaks, opts.MinDistance)
	}
	return peaks
}

func localMaxima(x []float64) []int {
	var peaks []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				left := i
				right := ahead - 1
				peaks = append(peaks, (left+right)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

func selectByDistance(x []float64, peaks []int, distance int) []int {
	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	// Lowest priority first; ties keep index order so the later of two equal
	// peaks is considered first.
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}
