package debugplot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

func sine(n int, rate, hz float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * hz * float64(i) / rate)
	}
	return out
}

func TestPlotWritesBothChannels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	p, err := New(dir, "ABC 1234")
	require.NoError(t, err)

	plan := acquire.Plan{ECGRate: 250, PPGRate: 25, Duration: 4 * time.Second}
	d := vitals.Derivation{
		ECGFiltered: sine(1000, 250, 1.2),
		ECGPeaks:    []int{52, 260, 468, 677, 885},
		IRFiltered:  sine(100, 25, 1.2),
		PPGPeaks:    []int{5, 26, 47, 68, 89},
	}
	rep := report.Report{StartedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)}

	require.NoError(t, p.Plot(rep, d, plan))

	for _, name := range []string{"ABC_1234_20260301_123000_ecg.png", "ABC_1234_20260301_123000_ppg.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestPlotSkipsMissingChannel(t *testing.T) {
	dir := t.TempDir()
	p := &Plotter{Dir: dir}

	plan := acquire.DefaultPlan
	d := vitals.Derivation{ECGFiltered: sine(500, 250, 1), ECGPeaks: []int{62, 312, 9999}}
	rep := report.Report{StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, p.Plot(rep, d, plan))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "20260301_000000_ecg.png", entries[0].Name())
}
