package serialmux

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	EventTypeECG         = "ecg"
	EventTypePPG         = "ppg"
	EventTypeTemperature = "temp"
	EventTypeUnknown     = "unknown"
)

// Reading is one parsed line from the sensor bridge.
type Reading struct {
	Type   string
	Values []float64
}

// ClassifyPayload returns the event type token of a bridge line without
// parsing its values.
func ClassifyPayload(payload string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(payload), ",")
	switch strings.ToLower(head) {
	case EventTypeECG:
		return EventTypeECG
	case EventTypePPG:
		return EventTypePPG
	case EventTypeTemperature:
		return EventTypeTemperature
	}
	return EventTypeUnknown
}

// ParseReading parses `ecg,<volts>`, `ppg,<red>,<ir>` and `temp,<celsius>`
// lines. Anything else, or a line with the wrong number of fields, is an
// error.
func ParseReading(payload string) (Reading, error) {
	kind := ClassifyPayload(payload)
	want := map[string]int{EventTypeECG: 1, EventTypePPG: 2, EventTypeTemperature: 1}[kind]
	if want == 0 {
		return Reading{}, fmt.Errorf("unrecognised line %q", payload)
	}

	fields := strings.Split(strings.TrimSpace(payload), ",")[1:]
	if len(fields) != want {
		return Reading{}, fmt.Errorf("%s line %q: got %d values, want %d", kind, payload, len(fields), want)
	}

	r := Reading{Type: kind, Values: make([]float64, len(fields))}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%s line %q: %w", kind, payload, err)
		}
		r.Values[i] = v
	}
	return r, nil
}
