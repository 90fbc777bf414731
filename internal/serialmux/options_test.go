package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_NormalizeDefaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, got)
}

func TestPortOptions_NormalizeErrors(t *testing.T) {
	for name, opts := range map[string]PortOptions{
		"data bits":  {DataBits: 9},
		"stop bits":  {StopBits: 3},
		"parity":     {Parity: "mark"},
		"small data": {DataBits: 4},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := opts.Normalize()
			assert.Error(t, err)
		})
	}
}

func TestPortOptions_NormalizeParity(t *testing.T) {
	for in, want := range map[string]string{"none": "N", " even ": "E", "O": "O", "": "N"} {
		got, err := PortOptions{Parity: in}.Normalize()
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Parity, in)
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, Parity: "even", StopBits: 2}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 57600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.StopBits(2), mode.StopBits)

	_, err = PortOptions{Parity: "?"}.SerialMode()
	assert.Error(t, err)
}

func TestNewRealSerialMux_MissingDevice(t *testing.T) {
	_, err := NewRealSerialMux("/dev/does-not-exist-vitals", PortOptions{})
	assert.Error(t, err)
}
