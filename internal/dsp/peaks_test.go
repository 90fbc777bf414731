package dsp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPeaks(t *testing.T) {
	for _, tc := range []struct {
		name string
		x    []float64
		opts PeakOptions
		want []int
	}{
		{"simple", []float64{0, 1, 0, 2, 0, 3, 0}, PeakOptions{}, []int{1, 3, 5}},
		{"edges are not peaks", []float64{3, 2, 1, 2, 3}, PeakOptions{}, nil},
		{"plateau odd", []float64{0, 1, 1, 1, 0}, PeakOptions{}, []int{2}},
		{"plateau even rounds down", []float64{0, 1, 1, 0}, PeakOptions{}, []int{1}},
		{"plateau into edge", []float64{0, 1, 1, 1}, PeakOptions{}, nil},
		{"height", []float64{0, 1, 0, 2, 0, 3, 0}, PeakOptions{Height: 1.5, HasHeight: true}, []int{3, 5}},
		{"height inclusive", []float64{0, 1, 0, 2, 0}, PeakOptions{Height: 2, HasHeight: true}, []int{3}},
		{"distance keeps taller", []float64{0, 1, 0, 2, 0, 3, 0}, PeakOptions{MinDistance: 3}, []int{1, 5}},
		{"distance one is a no-op", []float64{0, 1, 0, 2, 0}, PeakOptions{MinDistance: 1}, []int{1, 3}},
		{"equal heights keep later", []float64{0, 2, 0, 2, 0}, PeakOptions{MinDistance: 3}, []int{3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := FindPeaks(tc.x, tc.opts)
			if diff := cmp.Diff(tc.want, got, cmpEmpty); diff != "" {
				t.Errorf("FindPeaks() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var cmpEmpty = cmp.FilterValues(func(a, b []int) bool {
	return len(a) == 0 && len(b) == 0
}, cmp.Ignore())

// syntheticECG is a train of narrow Gaussian R waves on a slow baseline.
func syntheticECG(bpm, fs, seconds float64) []float64 {
	n := int(fs * seconds)
	period := 60 / bpm
	x := make([]float64, n)
	for i := range x {
		ts := float64(i) / fs
		phase := math.Mod(ts, period) - period/2
		x[i] = math.Exp(-phase*phase/(2*0.012*0.012)) + 0.2*math.Sin(2*math.Pi*0.2*ts)
	}
	return x
}

func TestDetectPeaks_SpacingAndThreshold(t *testing.T) {
	const fs = 250.0
	raw := syntheticECG(75, fs, 30)
	filtered, err := BandPass(raw, 0.5, 40, fs, 2)
	require.NoError(t, err)

	peaks := DetectPeaks(filtered, fs)
	require.NotEmpty(t, peaks)

	threshold := DefaultDetector.Threshold(filtered)
	for i, p := range peaks {
		assert.GreaterOrEqual(t, filtered[p], threshold, "peak %d below threshold", i)
		if i > 0 {
			assert.GreaterOrEqual(t, p-peaks[i-1], int(0.5*fs), "peaks %d and %d too close", i-1, i)
		}
	}
}

func TestDetectPeaks_RecoversRate(t *testing.T) {
	const fs = 250.0
	filtered, err := BandPass(syntheticECG(75, fs, 30), 0.5, 40, fs, 2)
	require.NoError(t, err)

	peaks := DetectPeaks(filtered, fs)
	require.GreaterOrEqual(t, len(peaks), 30)

	mean := float64(peaks[len(peaks)-1]-peaks[0]) / float64(len(peaks)-1) / fs
	assert.InDelta(t, 75, 60/mean, 2)
}

func TestDetector_NoThreshold(t *testing.T) {
	d := Detector{ThresholdK: -1, MinSpacingSeconds: 1.5}
	x := []float64{0, -5, -4, -5, 0, 1, 0}
	// Without a height floor the low local maximum still counts.
	assert.Equal(t, []int{2, 5}, d.Detect(x, 1))
}

func TestDetector_ShortInput(t *testing.T) {
	assert.Nil(t, DetectPeaks([]float64{1, 2}, 250))
	assert.Nil(t, DetectPeaks(nil, 250))
}
