// Package dsp implements the signal conditioning used before vitals are
// derived: a zero-phase Butterworth band-pass and an adaptive peak detector.
//
// The filter design and the forward/backward application follow the
// conventions of scipy.signal (butter, lfilter_zi, filtfilt) so that peak
// indices line up with the raw sample index of the capture.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

var (
	// ErrInvalidCutoff is returned when band edges are not 0 < low < high < Nyquist.
	ErrInvalidCutoff = errors.New("dsp: invalid cutoff frequencies")
	// ErrInvalidOrder is returned for a filter order below 1.
	ErrInvalidOrder = errors.New("dsp: filter order must be >= 1")
	// ErrSignalTooShort is returned when the input is not longer than the
	// edge padding required by the forward/backward pass.
	ErrSignalTooShort = errors.New("dsp: signal too short for filter")
)

// Band describes a band-pass filter in physical units.
type Band struct {
	Low   float64 `json:"low_hz"`
	High  float64 `json:"high_hz"`
	Order int     `json:"order"`
}

// Filter is a digital IIR filter in transfer function form, normalised so
// that A[0] == 1.
type Filter struct {
	B []float64
	A []float64
}

// Butterworth designs a digital band-pass Butterworth filter of the given
// prototype order. The resulting transfer function has order 2*order.
func Butterworth(order int, lowHz, highHz, sampleRateHz float64) (*Filter, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	nyq := 0.5 * sampleRateHz
	if sampleRateHz <= 0 || lowHz <= 0 || highHz <= lowHz || highHz >= nyq {
		return nil, fmt.Errorf("%w: low=%g high=%g fs=%g", ErrInvalidCutoff, lowHz, highHz, sampleRateHz)
	}

	// Normalised edges in half-cycles/sample, pre-warped for the bilinear
	// transform with fs=2.
	const fs = 2.0
	w1 := 2 * fs * math.Tan(math.Pi*(lowHz/nyq)/fs)
	w2 := 2 * fs * math.Tan(math.Pi*(highHz/nyq)/fs)
	bw := w2 - w1
	wo := math.Sqrt(w1 * w2)

	// Analog low-pass prototype: unit gain, poles on the left half circle.
	proto := make([]complex128, order)
	for i := range proto {
		m := float64(-order + 1 + 2*i)
		proto[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// Low-pass to band-pass: each prototype pole splits into two, and
	// `order` zeros land at the origin.
	poles := make([]complex128, 0, 2*order)
	for _, p := range proto {
		pl := p * complex(bw/2, 0)
		root := cmplx.Sqrt(pl*pl - complex(wo*wo, 0))
		poles = append(poles, pl+root)
	}
	for _, p := range proto {
		pl := p * complex(bw/2, 0)
		root := cmplx.Sqrt(pl*pl - complex(wo*wo, 0))
		poles = append(poles, pl-root)
	}
	gain := math.Pow(bw, float64(order))

	// Bilinear transform. Zeros at the analog origin map to z=1; the extra
	// zeros at analog infinity map to z=-1.
	const fs2 = 2 * fs
	zpoles := make([]complex128, len(poles))
	num := complex(1, 0)
	den := complex(1, 0)
	for i, p := range poles {
		zpoles[i] = (complex(fs2, 0) + p) / (complex(fs2, 0) - p)
		den *= complex(fs2, 0) - p
	}
	for i := 0; i < order; i++ {
		num *= complex(fs2, 0)
	}
	zzeros := make([]complex128, 0, 2*order)
	for i := 0; i < order; i++ {
		zzeros = append(zzeros, 1)
	}
	for i := 0; i < order; i++ {
		zzeros = append(zzeros, -1)
	}
	gain *= real(num / den)

	b := realPoly(zzeros)
	for i := range b {
		b[i] *= gain
	}
	a := realPoly(zpoles)
	return &Filter{B: b, A: a}, nil
}

// MustButterworth is Butterworth for package-level filter tables and tests.
func MustButterworth(order int, lowHz, highHz, sampleRateHz float64) *Filter {
	f, err := Butterworth(order, lowHz, highHz, sampleRateHz)
	if err != nil {
		panic(err)
	}
	return f
}

// PadLen is the number of samples reflected at each edge before filtering.
func (f *Filter) PadLen() int {
	n := len(f.A)
	if len(f.B) > n {
		n = len(f.B)
	}
	return 3 * n
}

// MinLength is the shortest signal Apply accepts.
func (f *Filter) MinLength() int {
	return f.PadLen() + 1
}

// realPoly expands prod(x - r) for the given roots and returns the real
// coefficients, highest power first.
func realPoly(roots []complex128) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}
