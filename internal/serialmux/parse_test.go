package serialmux

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPayload(t *testing.T) {
	for payload, want := range map[string]string{
		"ecg,0.5":           EventTypeECG,
		" PPG,1,2 ":         EventTypePPG,
		"temp,33.1":         EventTypeTemperature,
		"# bridge fw 1.4.2": EventTypeUnknown,
		"":                  EventTypeUnknown,
	} {
		assert.Equal(t, want, ClassifyPayload(payload), "payload %q", payload)
	}
}

func TestParseReading(t *testing.T) {
	for _, tc := range []struct {
		payload string
		want    Reading
		wantErr bool
	}{
		{payload: "ecg,1.25", want: Reading{Type: EventTypeECG, Values: []float64{1.25}}},
		{payload: "ppg, 51234, 48765\r", want: Reading{Type: EventTypePPG, Values: []float64{51234, 48765}}},
		{payload: "temp,33.17", want: Reading{Type: EventTypeTemperature, Values: []float64{33.17}}},
		{payload: "ppg,1", wantErr: true},
		{payload: "ecg,1,2", wantErr: true},
		{payload: "ecg,abc", wantErr: true},
		{payload: "hello", wantErr: true},
	} {
		t.Run(tc.payload, func(t *testing.T) {
			got, err := ParseReading(tc.payload)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseReading() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
