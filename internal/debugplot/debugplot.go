// Package debugplot writes PNG plots of the filtered signals of a cycle with
// their detected peaks, for offline inspection of the peak detector.
package debugplot

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/security"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

var (
	signalColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Plotter saves one ECG and one PPG image per cycle under Dir.
type Plotter struct {
	Dir string
	// Prefix, typically the plate, starts every file name.
	Prefix string
}

// New returns a Plotter writing to dir, creating it if needed.
func New(dir, prefix string) (*Plotter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Plotter{Dir: dir, Prefix: prefix}, nil
}

func (p *Plotter) path(stamp, channel string) (string, error) {
	name := stamp + "_" + channel + ".png"
	if p.Prefix != "" {
		name = p.Prefix + "_" + name
	}
	return security.JoinWithin(p.Dir, name)
}

// Plot renders the filtered channels of d. Channels that could not be
// filtered are skipped.
func (p *Plotter) Plot(rep report.Report, d vitals.Derivation, plan acquire.Plan) error {
	stamp := rep.StartedAt.UTC().Format("20060102_150405")
	if len(d.ECGFiltered) > 0 {
		title := fmt.Sprintf("ECG %s - %d R peaks", stamp, len(d.ECGPeaks))
		file, err := p.path(stamp, "ecg")
		if err != nil {
			return err
		}
		if err := savePeakPlot(title, "Voltage (filtered)", d.ECGFiltered, d.ECGPeaks, plan.ECGRate, file); err != nil {
			return err
		}
	}
	if len(d.IRFiltered) > 0 {
		title := fmt.Sprintf("PPG IR %s - %d pulse peaks", stamp, len(d.PPGPeaks))
		file, err := p.path(stamp, "ppg")
		if err != nil {
			return err
		}
		if err := savePeakPlot(title, "IR intensity (filtered)", d.IRFiltered, d.PPGPeaks, plan.PPGRate, file); err != nil {
			return err
		}
	}
	return nil
}

func savePeakPlot(title, yLabel string, x []float64, peaks []int, rate float64, file string) error {
	pl := plot.New()
	pl.Title.Text = title
	pl.X.Label.Text = "Time (s)"
	pl.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(x))
	for i, v := range x {
		pts[i] = plotter.XY{X: float64(i) / rate, Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = signalColor
	line.Width = vg.Points(0.5)
	pl.Add(line)
	pl.Legend.Add("signal", line)

	if len(peaks) > 0 {
		peakPts := make(plotter.XYs, 0, len(peaks))
		for _, idx := range peaks {
			if idx < 0 || idx >= len(x) {
				continue
			}
			peakPts = append(peakPts, plotter.XY{X: float64(idx) / rate, Y: x[idx]})
		}
		sc, err := plotter.NewScatter(peakPts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = peakColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		pl.Add(sc)
		pl.Legend.Add("peaks", sc)
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	if err := pl.Save(14*vg.Inch, 4*vg.Inch, file); err != nil {
		return fmt.Errorf("failed to save %s: %w", file, err)
	}
	return nil
}
