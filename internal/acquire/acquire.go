// Package acquire captures synchronised ECG and PPG windows from the sensor
// readers, one goroutine per channel.
package acquire

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/timeutil"
)

// Plan is the sampling schedule of one capture window.
type Plan struct {
	ECGRate  float64       `json:"ecg_rate_hz"`
	PPGRate  float64       `json:"ppg_rate_hz"`
	Duration time.Duration `json:"duration"`
}

// DefaultPlan is 30 s at 250 Hz ECG and 25 Hz PPG.
var DefaultPlan = Plan{ECGRate: 250, PPGRate: 25, Duration: 30 * time.Second}

// ECGSamples is the number of ECG reads in the window.
func (p Plan) ECGSamples() int { return samples(p.ECGRate, p.Duration) }

// PPGSamples is the number of PPG reads in the window.
func (p Plan) PPGSamples() int { return samples(p.PPGRate, p.Duration) }

func samples(rate float64, d time.Duration) int {
	if rate <= 0 || d <= 0 {
		return 0
	}
	return int(rate * d.Seconds())
}

// ECGBuffer holds ECG voltages in read order.
type ECGBuffer []float64

// PPGBuffer holds the red and IR channels, always of equal length.
type PPGBuffer struct {
	Red []float64
	IR  []float64
}

// Len is the number of PPG pairs.
func (b PPGBuffer) Len() int { return len(b.IR) }

// Capture is the outcome of one window. Buffers have exactly the planned
// lengths; failed reads hold the sentinel 0.
type Capture struct {
	ECG                ECGBuffer
	PPG                PPGBuffer
	ContactLost        bool
	DegenerateFraction float64
	ECGReadErrors      int
	PPGReadErrors      int
}

// ContactPolicy decides when the PPG window indicates no finger contact. A
// sample is degenerate when both red and IR are below Floor; contact is lost
// when the degenerate fraction exceeds MaxFraction.
type ContactPolicy struct {
	Floor       float64 `json:"floor"`
	MaxFraction float64 `json:"max_fraction"`
}

var (
	// DefaultContactPolicy flags windows where both channels read zero on more
	// than 20% of samples.
	DefaultContactPolicy = ContactPolicy{Floor: 1, MaxFraction: 0.2}
	// StrictContactPolicy flags any sample under the intensity floor of a
	// covered sensor.
	StrictContactPolicy = ContactPolicy{Floor: 5000, MaxFraction: 0}
)

// Evaluate returns the degenerate fraction of buf and whether it exceeds the
// policy. An empty buffer counts as lost contact.
func (p ContactPolicy) Evaluate(buf PPGBuffer) (float64, bool) {
	n := buf.Len()
	if n == 0 {
		return 1, true
	}
	bad := 0
	for i := 0; i < n; i++ {
		if buf.Red[i] < p.Floor && buf.IR[i] < p.Floor {
			bad++
		}
	}
	frac := float64(bad) / float64(n)
	return frac, frac > p.MaxFraction
}

// Acquirer reads both channels concurrently at their planned rates.
type Acquirer struct {
	ECG     sensor.ECGReader
	PPG     sensor.PPGReader
	Clock   timeutil.Clock
	Contact ContactPolicy
}

// Capture runs one window. Each channel reads, substitutes 0 on a failed
// read, then sleeps one sample interval. Cancelling ctx aborts the window and
// returns ctx.Err().
func (a *Acquirer) Capture(ctx context.Context, plan Plan) (Capture, error) {
	if a.ECG == nil || a.PPG == nil {
		return Capture{}, errors.New("acquire: ECG and PPG readers are required")
	}
	clock := a.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var (
		out    Capture
		ecg    = make(ECGBuffer, plan.ECGSamples())
		ppg    = PPGBuffer{Red: make([]float64, plan.PPGSamples()), IR: make([]float64, plan.PPGSamples())}
		ecgErr int
		ppgErr int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pause := timeutil.Interval(plan.ECGRate)
		for i := range ecg {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := a.ECG.ReadVoltage()
			if err != nil {
				ecgErr++
				v = 0
			}
			ecg[i] = v
			clock.Sleep(pause)
		}
		return nil
	})
	g.Go(func() error {
		pause := timeutil.Interval(plan.PPGRate)
		for i := range ppg.IR {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := a.PPG.ReadFIFO()
			if err != nil {
				ppgErr++
				s = sensor.PPGSample{}
			}
			ppg.Red[i] = s.Red
			ppg.IR[i] = s.IR
			clock.Sleep(pause)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Capture{}, err
	}

	out.ECG = ecg
	out.PPG = ppg
	out.ECGReadErrors = ecgErr
	out.PPGReadErrors = ppgErr
	out.DegenerateFraction, out.ContactLost = a.Contact.Evaluate(ppg)

	if ecgErr > 0 || ppgErr > 0 {
		monitoring.Logf("capture: %d/%d ECG and %d/%d PPG reads failed", ecgErr, len(ecg), ppgErr, ppg.Len())
	}
	if out.ContactLost {
		monitoring.Warnf("possible finger contact loss: %.0f%% of PPG samples degenerate", 100*out.DegenerateFraction)
	}
	return out, nil
}
