// Package cycle runs the measurement loop: capture, derive, read the
// temperature, classify and report.
package cycle

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/classify"
	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/thermal"
	"github.com/banshee-data/vitals.report/internal/timeutil"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

// Sink receives every finished report. Implementations must not block the
// controller for longer than their own timeout.
type Sink interface {
	Send(ctx context.Context, rep report.Report)
}

// Plotter renders the signals of a cycle for offline inspection.
type Plotter interface {
	Plot(rep report.Report, d vitals.Derivation, plan acquire.Plan) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rep report.Report)

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, rep report.Report) { f(ctx, rep) }

// Controller owns one measurement pipeline.
type Controller struct {
	Acquirer   *acquire.Acquirer
	Calculator *vitals.Calculator
	Thermal    *thermal.Reader
	Classifier *classify.Classifier
	Sink       Sink
	Plan       acquire.Plan
	Clock      timeutil.Clock
	// Plotter is optional.
	Plotter Plotter
}

// RunOnce performs a single cycle. Only cancellation of ctx is returned as
// an error; every signal or sensor problem degrades the affected metric.
func (c *Controller) RunOnce(ctx context.Context) (report.Report, error) {
	clock := c.clock()
	start := clock.Now()

	capture, err := c.Acquirer.Capture(ctx, c.Plan)
	if err != nil {
		return report.Report{}, err
	}

	calc := c.Calculator
	if calc == nil {
		calc = vitals.NewCalculator()
	}
	d := calc.Derive(capture, c.Plan)
	if d.HeartRateOK {
		monitoring.Logf("heart rate: %.2f bpm", d.HeartRate)
	} else {
		monitoring.Logf("heart rate: not enough R peaks")
	}
	if d.PTTOK {
		monitoring.Logf("PTT: %.3f s, BP: %.1f/%.1f mmHg", d.PTT, d.Systolic, d.Diastolic)
	} else {
		monitoring.Logf("PTT: no matched ECG/PPG peaks")
	}

	temp, tempOK := c.Thermal.ReadCoreTemperature(ctx)
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}

	rep := report.Report{
		ID:              uuid.New(),
		StartedAt:       start,
		RespirationRate: d.RespirationRate,
		Systolic:        d.Systolic,
		Diastolic:       d.Diastolic,
		ContactLost:     capture.ContactLost,
	}
	if d.HeartRateOK {
		rep.HeartRate = ptr(round2(d.HeartRate))
	}
	if d.SpO2OK {
		rep.SpO2 = ptr(d.SpO2)
	}
	if d.PTTOK {
		rep.PTT = ptr(d.PTT)
	}
	if tempOK {
		rep.Temperature = ptr(temp)
	}

	classifier := c.Classifier
	if classifier == nil {
		classifier = classify.New()
	}
	rep.Label = classifier.Classify(classify.Inputs{
		HeartRate:       rep.HeartRate,
		RespirationRate: rep.RespirationRate,
		Systolic:        rep.Systolic,
		Diastolic:       rep.Diastolic,
		Temperature:     rep.Temperature,
	})
	rep.Duration = clock.Since(start)

	monitoring.Logf("%s", rep.Summary())

	if c.Plotter != nil {
		if err := c.Plotter.Plot(rep, d, c.Plan); err != nil {
			monitoring.Logf("debug plot: %v", err)
		}
	}
	if c.Sink != nil {
		c.Sink.Send(ctx, rep)
	}
	return rep, nil
}

// Run repeats RunOnce until ctx is cancelled or, when maxCycles > 0, that
// many cycles have completed. Cancellation is a clean stop and returns nil.
func (c *Controller) Run(ctx context.Context, maxCycles int) error {
	for n := 0; maxCycles <= 0 || n < maxCycles; n++ {
		if ctx.Err() != nil {
			return nil
		}
		monitoring.Logf("cycle %d: capturing %s", n+1, c.Plan.Duration)
		if _, err := c.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *Controller) clock() timeutil.Clock {
	if c.Clock == nil {
		return timeutil.RealClock{}
	}
	return c.Clock
}

func ptr(v float64) *float64 { return &v }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
