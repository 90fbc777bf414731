package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/thermal"
	"github.com/banshee-data/vitals.report/internal/timeutil"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

func TestEmptyTuningConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetECGRateHz() != 250 {
		t.Errorf("GetECGRateHz() = %g, want 250", cfg.GetECGRateHz())
	}
	if cfg.GetPPGRateHz() != 25 {
		t.Errorf("GetPPGRateHz() = %g, want 25", cfg.GetPPGRateHz())
	}
	if cfg.GetCaptureDuration() != 30*time.Second {
		t.Errorf("GetCaptureDuration() = %v, want 30s", cfg.GetCaptureDuration())
	}
	if cfg.GetTempRetryDelay() != 500*time.Millisecond {
		t.Errorf("GetTempRetryDelay() = %v, want 500ms", cfg.GetTempRetryDelay())
	}
	if cfg.GetReportTimeout() != 3*time.Second {
		t.Errorf("GetReportTimeout() = %v, want 3s", cfg.GetReportTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on empty config: %v", err)
	}
}

func TestEmptyTuningConfigMatchesPackageDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if diff := cmp.Diff(vitals.DefaultCalibration(), cfg.Calibration()); diff != "" {
		t.Errorf("Calibration() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(acquire.DefaultPlan, cfg.Plan()); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(acquire.DefaultContactPolicy, cfg.ContactPolicy()); diff != "" {
		t.Errorf("ContactPolicy() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if diff := cmp.Diff(vitals.DefaultCalibration(), cfg.Calibration()); diff != "" {
		t.Errorf("defaults file drifted from DefaultCalibration (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(acquire.DefaultPlan, cfg.Plan()); diff != "" {
		t.Errorf("defaults file drifted from DefaultPlan (-want +got):\n%s", diff)
	}

	want := thermal.NewReader(nil, nil)
	got := cfg.ThermalReader(nil, nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults file drifted from thermal.NewReader (-want +got):\n%s", diff)
	}
}

func TestDefaultConfigFileStrictContact(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if got := cfg.ContactPolicy(); got != acquire.DefaultContactPolicy {
		t.Errorf("ContactPolicy() = %+v, want %+v", got, acquire.DefaultContactPolicy)
	}

	// Flipping only contact_strict in a copy of the defaults selects the
	// strict floor and fraction.
	cfg.ContactStrict = ptrBool(true)
	if got := cfg.ContactPolicy(); got != acquire.StrictContactPolicy {
		t.Errorf("ContactPolicy() = %+v, want strict %+v", got, acquire.StrictContactPolicy)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "ecg_rate_hz": 500,
  "capture_duration": "10s",
  "peak_threshold_k": 0.5,
  "systolic_a": 31,
  "temp_attempts": 5,
  "contact_strict": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ECGRateHz == nil || *cfg.ECGRateHz != 500 {
		t.Errorf("Expected ECGRateHz 500, got %v", cfg.ECGRateHz)
	}
	plan := cfg.Plan()
	if plan.ECGRate != 500 || plan.PPGRate != 25 || plan.Duration != 10*time.Second {
		t.Errorf("Plan() = %+v", plan)
	}
	cal := cfg.Calibration()
	if cal.Peaks.ThresholdK != 0.5 {
		t.Errorf("Peaks.ThresholdK = %g, want 0.5", cal.Peaks.ThresholdK)
	}
	if cal.Systolic.A != 31 || cal.Systolic.B != 20 {
		t.Errorf("Systolic = %+v, want {31 20}", cal.Systolic)
	}
	if got := cfg.ContactPolicy(); got != acquire.StrictContactPolicy {
		t.Errorf("ContactPolicy() = %+v, want strict %+v", got, acquire.StrictContactPolicy)
	}
	if r := cfg.ThermalReader(nil, nil); r.Attempts != 5 {
		t.Errorf("ThermalReader().Attempts = %d, want 5", r.Attempts)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/config.json")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/tmp/config.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json extension") {
		t.Errorf("Expected extension error, got %v", err)
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	data := make([]byte, 1024*1024+1)
	for i := range data {
		data[i] = ' '
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write large config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr string
	}{
		{name: "empty", cfg: &TuningConfig{}},
		{
			name:    "bad duration",
			cfg:     &TuningConfig{CaptureDuration: ptrString("soon")},
			wantErr: "capture_duration",
		},
		{
			name:    "negative retry delay",
			cfg:     &TuningConfig{TempRetryDelay: ptrString("-1s")},
			wantErr: "temp_retry_delay",
		},
		{
			name:    "zero rate",
			cfg:     &TuningConfig{PPGRateHz: ptrFloat64(0)},
			wantErr: "sampling rates",
		},
		{
			name:    "ecg band above nyquist",
			cfg:     &TuningConfig{ECGBandHighHz: ptrFloat64(200)},
			wantErr: "ecg_band",
		},
		{
			name:    "zero order",
			cfg:     &TuningConfig{RespirationBandOrder: ptrInt(0)},
			wantErr: "respiration_band",
		},
		{
			name:    "inverted ptt window",
			cfg:     &TuningConfig{PTTMinSeconds: ptrFloat64(0.7)},
			wantErr: "ptt window",
		},
		{
			name:    "fraction above one",
			cfg:     &TuningConfig{ContactMaxFraction: ptrFloat64(1.5)},
			wantErr: "contact_max_fraction",
		},
		{
			name:    "no attempts",
			cfg:     &TuningConfig{TempAttempts: ptrInt(0)},
			wantErr: "temp_attempts",
		},
		{
			name:    "inverted skin range",
			cfg:     &TuningConfig{TempSkinMin: ptrFloat64(41)},
			wantErr: "temp_skin_min",
		},
		{
			name: "strict contact",
			cfg:  &TuningConfig{ContactStrict: ptrBool(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetDurationFallsBackOnParseError(t *testing.T) {
	cfg := &TuningConfig{ReportTimeout: ptrString("invalid")}
	if got := cfg.GetReportTimeout(); got != 3*time.Second {
		t.Errorf("GetReportTimeout() = %v, want 3s fallback", got)
	}
	cfg.ReportTimeout = ptrString("")
	if got := cfg.GetReportTimeout(); got != 3*time.Second {
		t.Errorf("GetReportTimeout() with empty string = %v, want 3s", got)
	}
}

func TestThermalReaderUsesConfiguredSensor(t *testing.T) {
	sim := sensor.NewSimulator(sensor.SimulatorConfig{SkinTempC: 33})
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	cfg := &TuningConfig{TempOffset: ptrFloat64(3.5)}

	r := cfg.ThermalReader(sim, clock)
	got, ok := r.ReadCoreTemperature(t.Context())
	if !ok {
		t.Fatal("ReadCoreTemperature() not ok")
	}
	if got < 36 || got > 37.1 {
		t.Errorf("core = %.2f, want about 36.5", got)
	}
}
