package vitals

import (
	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/monitoring"
)

// Derivation holds everything computed from one capture. Optional metrics
// carry an OK flag; respiration is always defined.
type Derivation struct {
	ECGFiltered []float64
	IRFiltered  []float64
	ECGPeaks    []int
	PPGPeaks    []int
	Pairs       []MatchedPair

	HeartRate   float64
	HeartRateOK bool
	PTT         float64
	PTTOK       bool
	Systolic    float64
	Diastolic   float64
	SpO2        float64
	SpO2OK      bool

	RespirationRate float64
}

// Calculator derives vitals with a fixed calibration.
type Calculator struct {
	Calibration Calibration
}

// NewCalculator returns a Calculator using DefaultCalibration.
func NewCalculator() *Calculator {
	return &Calculator{Calibration: DefaultCalibration()}
}

// Derive filters both channels, detects peaks, and computes every metric.
// Signal problems make the affected metric unavailable; Derive never fails.
func (c *Calculator) Derive(capture acquire.Capture, plan acquire.Plan) Derivation {
	cal := c.Calibration
	var d Derivation

	ecgFiltered, err := cal.ECGBand.Apply(capture.ECG, plan.ECGRate)
	if err != nil {
		monitoring.Logf("ECG filter: %v", err)
	} else {
		d.ECGFiltered = ecgFiltered
		d.ECGPeaks = cal.Peaks.Detect(ecgFiltered, plan.ECGRate)
		d.HeartRate, d.HeartRateOK = HeartRate(d.ECGPeaks, plan.ECGRate)
	}

	irFiltered, err := cal.PPGBand.Apply(capture.PPG.IR, plan.PPGRate)
	if err != nil {
		monitoring.Logf("PPG filter: %v", err)
	} else {
		d.IRFiltered = irFiltered
		d.PPGPeaks = cal.Peaks.Detect(irFiltered, plan.PPGRate)
	}

	d.Pairs = MatchPeaks(PeakTimes(d.ECGPeaks, plan.ECGRate), PeakTimes(d.PPGPeaks, plan.PPGRate), cal.PTT)
	d.PTT, d.PTTOK = PulseTransitTime(d.Pairs)
	if d.PTTOK {
		d.Systolic, d.Diastolic = BloodPressure(d.PTT, cal)
	}

	d.SpO2, d.SpO2OK = SpO2(capture.PPG.Red, capture.PPG.IR, cal)

	d.RespirationRate, err = RespirationRate(capture.PPG.IR, plan.PPGRate, cal)
	if err != nil {
		monitoring.Logf("respiration: %v", err)
		d.RespirationRate = 0
	}
	return d
}
