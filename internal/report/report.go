// Package report builds the per-cycle vitals report and submits it to the
// fleet aggregator on a best-effort basis.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/vitals.report/internal/classify"
)

// Report is the outcome of one measurement cycle. Optional metrics are nil
// when unavailable; blood pressure is 0 when no PTT could be measured.
type Report struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration

	HeartRate       *float64
	SpO2            *float64
	RespirationRate float64
	PTT             *float64
	Systolic        float64
	Diastolic       float64
	Temperature     *float64

	Label       classify.Label
	ContactLost bool
}

// Summary is the one-line console form of r.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HR: %s", optional(r.HeartRate, "%.2f"))
	fmt.Fprintf(&b, " | SpO2: %s%%", optional(r.SpO2, "%.2f"))
	fmt.Fprintf(&b, " | RR: %g", r.RespirationRate)
	fmt.Fprintf(&b, " | Temp: %s C", optional(r.Temperature, "%.2f"))
	fmt.Fprintf(&b, " | BP: %.1f/%.1f", r.Systolic, r.Diastolic)
	fmt.Fprintf(&b, " | BAC: %s", r.Label.Name)
	if r.ContactLost {
		b.WriteString(" | contact lost")
	}
	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// Identity names the vehicle the monitor is installed in.
type Identity struct {
	Plate string
	Model string
}

// Payload is the JSON document the aggregator's /trigger endpoint accepts.
type Payload struct {
	Plate    string `json:"plate"`
	Model    string `json:"model"`
	CVLabel  string `json:"cv_label"`
	CVImage  string `json:"cv_image"`
	VDLabel  string `json:"vd_label"`
	ReportID string `json:"report_id,omitempty"`
	Source   string `json:"source,omitempty"`
	Bio      *Bio   `json:"bio,omitempty"`
}

// Bio carries the vitals. Unavailable values are encoded as 0.
type Bio struct {
	HeartRate       float64       `json:"heart_rate"`
	Oxygen          float64       `json:"oxygen"`
	RespirationRate float64       `json:"respiration_rate"`
	Temperature     float64       `json:"temperature"`
	Alcohol         float64       `json:"alcohol"`
	BloodPressure   BloodPressure `json:"blood_pressure"`
	HandRemoved     bool          `json:"hand_removed"`
}

// BloodPressure is the nested systolic/diastolic pair.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// Placeholder values for the camera and driver-state fields this device does
// not produce.
const (
	DefaultCVLabel = "none"
	DefaultVDLabel = "normal"
)

// NewPayload encodes r for id, tagged with source.
func NewPayload(id Identity, r Report, source string) Payload {
	p := Payload{
		Plate:   id.Plate,
		Model:   id.Model,
		CVLabel: DefaultCVLabel,
		VDLabel: DefaultVDLabel,
		Source:  source,
		Bio: &Bio{
			HeartRate:       orZero(r.HeartRate),
			Oxygen:          orZero(r.SpO2),
			RespirationRate: r.RespirationRate,
			Temperature:     orZero(r.Temperature),
			Alcohol:         r.Label.BAC,
			BloodPressure:   BloodPressure{Systolic: r.Systolic, Diastolic: r.Diastolic},
			HandRemoved:     r.ContactLost,
		},
	}
	if r.ID != uuid.Nil {
		p.ReportID = r.ID.String()
	}
	return p
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
