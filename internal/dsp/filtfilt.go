package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Apply runs the filter forward and backward over x and returns a signal of
// identical length with no phase shift. The edges are extended by odd
// reflection and the filter state is initialised to its step-response steady
// state scaled by the first sample of each pass.
func (f *Filter) Apply(x []float64) ([]float64, error) {
	padlen := f.PadLen()
	if len(x) <= padlen {
		return nil, fmt.Errorf("%w: got %d samples, need more than %d", ErrSignalTooShort, len(x), padlen)
	}

	zi, err := f.steadyState()
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, padlen)

	state := scaled(zi, ext[0])
	y := f.lfilter(ext, state)

	reverse(y)
	state = scaled(zi, y[0])
	y = f.lfilter(y, state)
	reverse(y)

	out := make([]float64, len(x))
	copy(out, y[padlen:padlen+len(x)])
	return out, nil
}

// BandPass designs a Butterworth band-pass and applies it with zero phase.
func BandPass(x []float64, lowHz, highHz, sampleRateHz float64, order int) ([]float64, error) {
	f, err := Butterworth(order, lowHz, highHz, sampleRateHz)
	if err != nil {
		return nil, err
	}
	return f.Apply(x)
}

// Apply filters x through the band described by b.
func (b Band) Apply(x []float64, sampleRateHz float64) ([]float64, error) {
	return BandPass(x, b.Low, b.High, sampleRateHz, b.Order)
}

// lfilter is a direct form II transposed IIR pass. zi is consumed.
func (f *Filter) lfilter(x, zi []float64) []float64 {
	n := len(f.A)
	if len(f.B) > n {
		n = len(f.B)
	}
	b := padTo(f.B, n)
	a := padTo(f.A, n)

	y := make([]float64, len(x))
	z := zi
	for i, xi := range x {
		yi := b[0]*xi + z[0]
		for k := 0; k < n-2; k++ {
			z[k] = b[k+1]*xi + z[k+1] - a[k+1]*yi
		}
		z[n-2] = b[n-1]*xi - a[n-1]*yi
		y[i] = yi
	}
	return y
}

// steadyState solves (I - A) zi = B for the delay-line state of a unit step
// input, where A is the transposed companion matrix of the denominator.
func (f *Filter) steadyState() ([]float64, error) {
	n := len(f.A)
	if len(f.B) > n {
		n = len(f.B)
	}
	b := padTo(f.B, n)
	a := padTo(f.A, n)
	if a[0] != 1 {
		a0 := a[0]
		for i := range a {
			a[i] /= a0
		}
		for i := range b {
			b[i] /= a0
		}
	}

	m := n - 1
	iMinusA := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		iMinusA.Set(i, 0, a[i+1])
		if i > 0 {
			iMinusA.Set(i-1, i, -1)
		}
	}
	for i := 0; i < m; i++ {
		iMinusA.Set(i, i, iMinusA.At(i, i)+1)
	}

	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(iMinusA, rhs); err != nil {
		return nil, fmt.Errorf("dsp: steady-state initial conditions: %w", err)
	}
	out := make([]float64, m)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// oddExtend reflects n samples about each endpoint: 2*x[0]-x[n..1] on the
// left and 2*x[last]-x[last-1..last-n] on the right.
func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	ext := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= n; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}
	return ext
}

func padTo(c []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, c)
	return out
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
