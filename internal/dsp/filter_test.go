package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// response evaluates |H(e^jw)| at f Hz.
func response(f *Filter, hz, fs float64) float64 {
	z := cmplx.Exp(complex(0, 2*math.Pi*hz/fs))
	eval := func(c []float64) complex128 {
		var acc complex128
		for i, v := range c {
			acc += complex(v, 0) * cmplx.Pow(z, complex(float64(-i), 0))
		}
		return acc
	}
	return cmplx.Abs(eval(f.B) / eval(f.A))
}

func TestButterworth_Shape(t *testing.T) {
	for _, tc := range []struct {
		name      string
		order     int
		low, high float64
		fs        float64
		edgeTol   float64
	}{
		{"ecg", 2, 0.5, 40, 250, 1e-4},
		// Order-8 coefficients at a low normalised cutoff lose some precision
		// at the lower edge.
		{"respiration", 4, 0.1, 0.4, 25, 5e-4},
		{"ppg", 2, 0.5, 5, 25, 1e-4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Butterworth(tc.order, tc.low, tc.high, tc.fs)
			require.NoError(t, err)

			assert.Len(t, f.B, 2*tc.order+1)
			assert.Len(t, f.A, 2*tc.order+1)
			assert.InDelta(t, 1.0, f.A[0], 1e-12)

			// Zeros at z=1 and z=-1 kill DC and Nyquist.
			assert.InDelta(t, 0, response(f, 0, tc.fs), 1e-9)
			assert.InDelta(t, 0, response(f, tc.fs/2, tc.fs), 1e-9)

			// Unity gain at the warped centre, -3 dB at both edges.
			tl := math.Tan(math.Pi * tc.low / tc.fs)
			th := math.Tan(math.Pi * tc.high / tc.fs)
			centre := math.Atan(math.Sqrt(tl*th)) * tc.fs / math.Pi
			assert.InDelta(t, 1.0, response(f, centre, tc.fs), 1e-4)
			assert.InDelta(t, math.Sqrt2/2, response(f, tc.low, tc.fs), tc.edgeTol)
			assert.InDelta(t, math.Sqrt2/2, response(f, tc.high, tc.fs), tc.edgeTol)
		})
	}
}

func TestButterworth_InvalidCutoff(t *testing.T) {
	for _, tc := range []struct {
		name      string
		low, high float64
	}{
		{"zero low", 0, 10},
		{"negative low", -1, 10},
		{"inverted", 10, 5},
		{"equal", 5, 5},
		{"at nyquist", 1, 125},
		{"above nyquist", 1, 200},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Butterworth(2, tc.low, tc.high, 250)
			assert.ErrorIs(t, err, ErrInvalidCutoff)
		})
	}

	_, err := Butterworth(0, 1, 10, 250)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestMustButterworth_Panics(t *testing.T) {
	assert.Panics(t, func() { MustButterworth(2, 10, 1, 250) })
}

func TestApply_PreservesLength(t *testing.T) {
	f := MustButterworth(2, 0.5, 40, 250)
	for _, n := range []int{f.MinLength(), 100, 7500} {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Sin(2 * math.Pi * 7 * float64(i) / 250)
		}
		y, err := f.Apply(x)
		require.NoError(t, err)
		assert.Len(t, y, n)
	}
}

func TestApply_SignalTooShort(t *testing.T) {
	f := MustButterworth(2, 0.5, 40, 250)
	assert.Equal(t, 15, f.PadLen())

	_, err := f.Apply(make([]float64, f.PadLen()))
	assert.ErrorIs(t, err, ErrSignalTooShort)

	_, err = BandPass(nil, 0.5, 40, 250, 2)
	assert.ErrorIs(t, err, ErrSignalTooShort)
}

func TestApply_RemovesDC(t *testing.T) {
	x := make([]float64, 750)
	for i := range x {
		x[i] = 3.3
	}
	y, err := Band{Low: 0.5, High: 5, Order: 2}.Apply(x, 25)
	require.NoError(t, err)
	for i, v := range y {
		assert.InDelta(t, 0, v, 1e-6, "sample %d", i)
	}
}

func TestApply_PassbandIsZeroPhase(t *testing.T) {
	const fs = 250.0
	x := make([]float64, 7500)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 10 * float64(i) / fs)
	}
	y, err := BandPass(x, 0.5, 40, fs, 2)
	require.NoError(t, err)

	// Away from the edges the output tracks the input sample for sample.
	for i := 1000; i < 6500; i++ {
		assert.InDelta(t, x[i], y[i], 0.05, "sample %d", i)
	}
}

func TestApply_AttenuatesStopband(t *testing.T) {
	const fs = 25.0
	x := make([]float64, 750)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 11 * float64(i) / fs)
	}
	y, err := BandPass(x, 0.5, 5, fs, 2)
	require.NoError(t, err)

	var peak float64
	for _, v := range y[100:650] {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.Less(t, peak, 0.1)
}

func TestOddExtend(t *testing.T) {
	got := oddExtend([]float64{1, 2, 4, 7}, 2)
	assert.Equal(t, []float64{-2, 0, 1, 2, 4, 7, 10, 12}, got)
}
