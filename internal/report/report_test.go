package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vitals.report/internal/classify"
)

func f(v float64) *float64 { return &v }

var testID = uuid.MustParse("3f2b8c1e-6a7d-4e21-9c55-0d7f1a2b3c4d")

func fullReport() Report {
	return Report{
		ID:              testID,
		StartedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Duration:        30 * time.Second,
		HeartRate:       f(72.05),
		SpO2:            f(98),
		RespirationRate: 16,
		PTT:             f(0.3),
		Systolic:        120.9,
		Diastolic:       78.7,
		Temperature:     f(37.13),
		Label:           classify.Label{Name: "0.02%", BAC: 0.02},
	}
}

func TestNewPayload_JSONShape(t *testing.T) {
	p := NewPayload(Identity{Plate: "ABC-123", Model: "Corolla"}, fullReport(), "vitals.report/test")
	b, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"plate": "ABC-123",
		"model": "Corolla",
		"cv_label": "none",
		"cv_image": "",
		"vd_label": "normal",
		"report_id": "3f2b8c1e-6a7d-4e21-9c55-0d7f1a2b3c4d",
		"source": "vitals.report/test",
		"bio": {
			"heart_rate": 72.05,
			"oxygen": 98,
			"respiration_rate": 16,
			"temperature": 37.13,
			"alcohol": 0.02,
			"blood_pressure": {"systolic": 120.9, "diastolic": 78.7},
			"hand_removed": false
		}
	}`, string(b))
}

func TestNewPayload_UnavailableAsZero(t *testing.T) {
	r := Report{RespirationRate: 0, Label: classify.Unavailable, ContactLost: true}
	p := NewPayload(Identity{Plate: "UNKNOWN", Model: "UNKNOWN"}, r, "")

	require.NotNil(t, p.Bio)
	assert.Equal(t, Bio{HandRemoved: true}, *p.Bio)
	assert.Empty(t, p.ReportID)
}

func TestReport_Summary(t *testing.T) {
	assert.Equal(t,
		"HR: 72.05 | SpO2: 98.00% | RR: 16 | Temp: 37.13 C | BP: 120.9/78.7 | BAC: 0.02%",
		fullReport().Summary())

	r := Report{Label: classify.Unavailable, ContactLost: true}
	assert.Equal(t,
		"HR: n/a | SpO2: n/a% | RR: 0 | Temp: n/a C | BP: 0.0/0.0 | BAC: Unknown (Temp Error) | contact lost",
		r.Summary())
}
