package fleet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/vitals.report/internal/httputil"
	"github.com/banshee-data/vitals.report/internal/report"
)

// handleChart renders the vitals history of a plate as an HTML line chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("plate")
	entries, ok, err := s.Store.History(r.Context(), plate)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if !ok {
		httputil.NotFound(w, "No history available")
		return
	}

	line := vitalsChart(plate, entries)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func vitalsChart(plate string, entries []HistoryEntry) *charts.Line {
	var (
		xs          []string
		heartRate   []opts.LineData
		oxygen      []opts.LineData
		respiration []opts.LineData
		temperature []opts.LineData
		systolic    []opts.LineData
		diastolic   []opts.LineData
		skipped     int
	)
	for _, e := range entries {
		var bio report.Bio
		if err := json.Unmarshal(e.Bio, &bio); err != nil {
			skipped++
			continue
		}
		xs = append(xs, e.Timestamp)
		heartRate = append(heartRate, opts.LineData{Value: bio.HeartRate})
		oxygen = append(oxygen, opts.LineData{Value: bio.Oxygen})
		respiration = append(respiration, opts.LineData{Value: bio.RespirationRate})
		temperature = append(temperature, opts.LineData{Value: bio.Temperature})
		systolic = append(systolic, opts.LineData{Value: bio.BloodPressure.Systolic})
		diastolic = append(diastolic, opts.LineData{Value: bio.BloodPressure.Diastolic})
	}

	subtitle := fmt.Sprintf("entries=%d", len(xs))
	if skipped > 0 {
		subtitle += fmt.Sprintf(" skipped=%d", skipped)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vitals " + plate, Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vitals history " + plate, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(xs).
		AddSeries("heart rate (bpm)", heartRate).
		AddSeries("SpO2 (%)", oxygen).
		AddSeries("respiration (/min)", respiration).
		AddSeries("temperature (C)", temperature).
		AddSeries("systolic (mmHg)", systolic).
		AddSeries("diastolic (mmHg)", diastolic)
	return line
}
