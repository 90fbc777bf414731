package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/dsp"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/thermal"
	"github.com/banshee-data/vitals.report/internal/timeutil"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the sampling, signal-processing and calibration
// parameters of the monitor. Every field is optional; the Get* methods fall
// back to the shipped defaults so partial files are safe.
type TuningConfig struct {
	// Sampling plan
	ECGRateHz       *float64 `json:"ecg_rate_hz,omitempty"`
	PPGRateHz       *float64 `json:"ppg_rate_hz,omitempty"`
	CaptureDuration *string  `json:"capture_duration,omitempty"` // duration string like "30s"

	// Band-pass filters
	ECGBandLowHz          *float64 `json:"ecg_band_low_hz,omitempty"`
	ECGBandHighHz         *float64 `json:"ecg_band_high_hz,omitempty"`
	ECGBandOrder          *int     `json:"ecg_band_order,omitempty"`
	PPGBandLowHz          *float64 `json:"ppg_band_low_hz,omitempty"`
	PPGBandHighHz         *float64 `json:"ppg_band_high_hz,omitempty"`
	PPGBandOrder          *int     `json:"ppg_band_order,omitempty"`
	RespirationBandLowHz  *float64 `json:"respiration_band_low_hz,omitempty"`
	RespirationBandHighHz *float64 `json:"respiration_band_high_hz,omitempty"`
	RespirationBandOrder  *int     `json:"respiration_band_order,omitempty"`

	// Peak detection
	PeakThresholdK               *float64 `json:"peak_threshold_k,omitempty"`
	PeakMinSpacingSeconds        *float64 `json:"peak_min_spacing_seconds,omitempty"`
	RespirationMinSpacingSeconds *float64 `json:"respiration_min_spacing_seconds,omitempty"`

	// Calibration
	SpO2Intercept *float64 `json:"spo2_intercept,omitempty"`
	SpO2Slope     *float64 `json:"spo2_slope,omitempty"`
	SystolicA     *float64 `json:"systolic_a,omitempty"`
	SystolicB     *float64 `json:"systolic_b,omitempty"`
	DiastolicA    *float64 `json:"diastolic_a,omitempty"`
	DiastolicB    *float64 `json:"diastolic_b,omitempty"`
	PTTMinSeconds *float64 `json:"ptt_min_seconds,omitempty"`
	PTTMaxSeconds *float64 `json:"ptt_max_seconds,omitempty"`

	// Finger contact. Unset floor and fraction follow the policy selected by
	// contact_strict.
	ContactFloor       *float64 `json:"contact_floor,omitempty"`
	ContactMaxFraction *float64 `json:"contact_max_fraction,omitempty"`
	ContactStrict      *bool    `json:"contact_strict,omitempty"`

	// Temperature reader
	TempOffset     *float64 `json:"temp_offset,omitempty"`
	TempAttempts   *int     `json:"temp_attempts,omitempty"`
	TempRetryDelay *string  `json:"temp_retry_delay,omitempty"`
	TempSkinMin    *float64 `json:"temp_skin_min,omitempty"`
	TempSkinMax    *float64 `json:"temp_skin_max,omitempty"`
	TempUsualMin   *float64 `json:"temp_usual_min,omitempty"`
	TempUsualMax   *float64 `json:"temp_usual_max,omitempty"`

	// Reporter
	ReportTimeout *string `json:"report_timeout,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,    // from cmd/vitals/
		"../../" + DefaultConfigPath, // from internal/config/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for name, s := range map[string]*string{
		"capture_duration": c.CaptureDuration,
		"temp_retry_delay": c.TempRetryDelay,
		"report_timeout":   c.ReportTimeout,
	} {
		if s == nil || *s == "" {
			continue
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *s)
		}
	}

	if c.GetECGRateHz() <= 0 || c.GetPPGRateHz() <= 0 {
		return fmt.Errorf("sampling rates must be positive, got ecg=%g ppg=%g", c.GetECGRateHz(), c.GetPPGRateHz())
	}

	for name, b := range map[string]struct {
		band dsp.Band
		fs   float64
	}{
		"ecg_band":         {c.ECGBand(), c.GetECGRateHz()},
		"ppg_band":         {c.PPGBand(), c.GetPPGRateHz()},
		"respiration_band": {c.RespirationBand(), c.GetPPGRateHz()},
	} {
		if _, err := dsp.Butterworth(b.band.Order, b.band.Low, b.band.High, b.fs); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.GetPTTMinSeconds() < 0 || c.GetPTTMinSeconds() >= c.GetPTTMaxSeconds() {
		return fmt.Errorf("ptt window must satisfy 0 <= min < max, got [%g, %g]", c.GetPTTMinSeconds(), c.GetPTTMaxSeconds())
	}

	if f := c.GetContactMaxFraction(); f < 0 || f > 1 {
		return fmt.Errorf("contact_max_fraction must be between 0 and 1, got %f", f)
	}

	if c.TempAttempts != nil && *c.TempAttempts < 1 {
		return fmt.Errorf("temp_attempts must be at least 1, got %d", *c.TempAttempts)
	}

	if c.GetTempSkinMin() > c.GetTempSkinMax() {
		return fmt.Errorf("temp_skin_min %g exceeds temp_skin_max %g", c.GetTempSkinMin(), c.GetTempSkinMax())
	}

	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetECGRateHz returns the ECG sampling rate or the default (250 Hz).
func (c *TuningConfig) GetECGRateHz() float64 { return getFloat(c.ECGRateHz, 250) }

// GetPPGRateHz returns the PPG sampling rate or the default (25 Hz).
func (c *TuningConfig) GetPPGRateHz() float64 { return getFloat(c.PPGRateHz, 25) }

// GetCaptureDuration parses and returns the capture window (default 30s).
func (c *TuningConfig) GetCaptureDuration() time.Duration {
	return getDuration(c.CaptureDuration, 30*time.Second)
}

// ECGBand returns the ECG band-pass (default 0.5-40 Hz, order 2).
func (c *TuningConfig) ECGBand() dsp.Band {
	return dsp.Band{
		Low:   getFloat(c.ECGBandLowHz, 0.5),
		High:  getFloat(c.ECGBandHighHz, 40),
		Order: getInt(c.ECGBandOrder, 2),
	}
}

// PPGBand returns the PPG band-pass (default 0.5-5 Hz, order 2).
func (c *TuningConfig) PPGBand() dsp.Band {
	return dsp.Band{
		Low:   getFloat(c.PPGBandLowHz, 0.5),
		High:  getFloat(c.PPGBandHighHz, 5),
		Order: getInt(c.PPGBandOrder, 2),
	}
}

// RespirationBand returns the breathing band-pass (default 0.1-0.4 Hz, order 4).
func (c *TuningConfig) RespirationBand() dsp.Band {
	return dsp.Band{
		Low:   getFloat(c.RespirationBandLowHz, 0.1),
		High:  getFloat(c.RespirationBandHighHz, 0.4),
		Order: getInt(c.RespirationBandOrder, 4),
	}
}

// GetPeakThresholdK returns the sigma multiplier of the peak threshold (default 0.3).
func (c *TuningConfig) GetPeakThresholdK() float64 { return getFloat(c.PeakThresholdK, 0.3) }

// GetPeakMinSpacingSeconds returns the minimum R-R spacing (default 0.5 s).
func (c *TuningConfig) GetPeakMinSpacingSeconds() float64 {
	return getFloat(c.PeakMinSpacingSeconds, 0.5)
}

// GetRespirationMinSpacingSeconds returns the minimum breath spacing (default 1.5 s).
func (c *TuningConfig) GetRespirationMinSpacingSeconds() float64 {
	return getFloat(c.RespirationMinSpacingSeconds, 1.5)
}

// GetPTTMinSeconds returns the lower PTT bound (default 0.1 s).
func (c *TuningConfig) GetPTTMinSeconds() float64 { return getFloat(c.PTTMinSeconds, 0.1) }

// GetPTTMaxSeconds returns the upper PTT bound (default 0.6 s).
func (c *TuningConfig) GetPTTMaxSeconds() float64 { return getFloat(c.PTTMaxSeconds, 0.6) }

// GetContactMaxFraction returns the tolerated degenerate PPG fraction.
// The strict policy tolerates none.
func (c *TuningConfig) GetContactMaxFraction() float64 {
	if c.GetContactStrict() {
		return getFloat(c.ContactMaxFraction, acquire.StrictContactPolicy.MaxFraction)
	}
	return getFloat(c.ContactMaxFraction, acquire.DefaultContactPolicy.MaxFraction)
}

// GetContactStrict reports whether the intensity-floor contact policy is used.
func (c *TuningConfig) GetContactStrict() bool {
	if c.ContactStrict == nil {
		return false
	}
	return *c.ContactStrict
}

// GetTempAttempts returns the number of temperature reads (default 3).
func (c *TuningConfig) GetTempAttempts() int { return getInt(c.TempAttempts, 3) }

// GetTempRetryDelay returns the pause between temperature reads (default 500ms).
func (c *TuningConfig) GetTempRetryDelay() time.Duration {
	return getDuration(c.TempRetryDelay, 500*time.Millisecond)
}

// GetTempSkinMin returns the lowest plausible skin temperature (default 25 C).
func (c *TuningConfig) GetTempSkinMin() float64 { return getFloat(c.TempSkinMin, 25) }

// GetTempSkinMax returns the highest plausible skin temperature (default 40 C).
func (c *TuningConfig) GetTempSkinMax() float64 { return getFloat(c.TempSkinMax, 40) }

// GetReportTimeout returns the submission timeout (default 3s).
func (c *TuningConfig) GetReportTimeout() time.Duration {
	return getDuration(c.ReportTimeout, 3*time.Second)
}

// Plan returns the acquisition plan.
func (c *TuningConfig) Plan() acquire.Plan {
	return acquire.Plan{
		ECGRate:  c.GetECGRateHz(),
		PPGRate:  c.GetPPGRateHz(),
		Duration: c.GetCaptureDuration(),
	}
}

// ContactPolicy returns the finger contact policy.
func (c *TuningConfig) ContactPolicy() acquire.ContactPolicy {
	base := acquire.DefaultContactPolicy
	if c.GetContactStrict() {
		base = acquire.StrictContactPolicy
	}
	return acquire.ContactPolicy{
		Floor:       getFloat(c.ContactFloor, base.Floor),
		MaxFraction: c.GetContactMaxFraction(),
	}
}

// Calibration returns the estimator constants.
func (c *TuningConfig) Calibration() vitals.Calibration {
	def := vitals.DefaultCalibration()
	return vitals.Calibration{
		ECGBand:         c.ECGBand(),
		PPGBand:         c.PPGBand(),
		RespirationBand: c.RespirationBand(),
		Peaks: dsp.Detector{
			ThresholdK:        c.GetPeakThresholdK(),
			MinSpacingSeconds: c.GetPeakMinSpacingSeconds(),
		},
		RespirationPeaks: dsp.Detector{
			ThresholdK:        def.RespirationPeaks.ThresholdK,
			MinSpacingSeconds: c.GetRespirationMinSpacingSeconds(),
		},
		SpO2: vitals.Linear{
			A: getFloat(c.SpO2Intercept, def.SpO2.A),
			B: getFloat(c.SpO2Slope, def.SpO2.B),
		},
		Systolic: vitals.Linear{
			A: getFloat(c.SystolicA, def.Systolic.A),
			B: getFloat(c.SystolicB, def.Systolic.B),
		},
		Diastolic: vitals.Linear{
			A: getFloat(c.DiastolicA, def.Diastolic.A),
			B: getFloat(c.DiastolicB, def.Diastolic.B),
		},
		PTT: vitals.PTTWindow{Min: c.GetPTTMinSeconds(), Max: c.GetPTTMaxSeconds()},
	}
}

// ThermalReader returns a temperature reader for s configured from c.
func (c *TuningConfig) ThermalReader(s sensor.Thermometer, clock timeutil.Clock) *thermal.Reader {
	r := thermal.NewReader(s, clock)
	r.Attempts = c.GetTempAttempts()
	r.RetryDelay = c.GetTempRetryDelay()
	r.Offset = getFloat(c.TempOffset, r.Offset)
	r.Plausible = thermal.Range{Min: c.GetTempSkinMin(), Max: c.GetTempSkinMax()}
	r.Usual = thermal.Range{
		Min: getFloat(c.TempUsualMin, r.Usual.Min),
		Max: getFloat(c.TempUsualMax, r.Usual.Max),
	}
	return r
}
