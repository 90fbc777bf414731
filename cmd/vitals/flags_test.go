package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vitals.report/internal/config"
	"github.com/banshee-data/vitals.report/internal/cycle"
	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/serialmux"
	"github.com/banshee-data/vitals.report/internal/timeutil"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, config.DefaultDevicePath, *deviceConfig)
	assert.Empty(t, *tuningConfig)
	assert.False(t, *devMode)
	assert.Equal(t, serialmux.DefaultBaudRate, *baud)
	assert.True(t, *asyncReport)
	assert.Empty(t, *debugListen)
	assert.Empty(t, *plotDir)
	assert.Zero(t, *cycles)
}

func TestNewControllerUsesTuning(t *testing.T) {
	sim := sensor.NewSimulator(sensor.DefaultSimulatorConfig())
	tuning := config.EmptyTuningConfig()
	strict := true
	tuning.ContactStrict = &strict

	c := newController(sensors{ecg: sim, ppg: sim, therm: sim}, tuning, nil)

	assert.Equal(t, tuning.Plan(), c.Plan)
	assert.Equal(t, tuning.ContactPolicy(), c.Acquirer.Contact)
	assert.Equal(t, tuning.Calibration(), c.Calculator.Calibration)
	assert.Equal(t, 3, c.Thermal.Attempts)
	assert.Nil(t, c.Plotter)
}

func TestDevPipelineEndToEnd(t *testing.T) {
	monitoring.SetLogger(nil)
	sim := sensor.NewSimulator(sensor.DefaultSimulatorConfig())
	duration := "12s"
	tuning := config.EmptyTuningConfig()
	tuning.CaptureDuration = &duration

	var got []report.Report
	c := newController(sensors{ecg: sim, ppg: sim, therm: sim}, tuning, nil)
	c.Sink = cycle.SinkFunc(func(_ context.Context, r report.Report) { got = append(got, r) })

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	c.Clock = clock
	c.Acquirer.Clock = clock
	c.Thermal.Clock = clock

	require.NoError(t, c.Run(context.Background(), 2))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].HeartRate)
	assert.InDelta(t, 72, *got[0].HeartRate, 3)
}

func TestInitBridgeClosesPortOnFailure(t *testing.T) {
	monitoring.SetLogger(nil)
	port := serialmux.NewFakePort()
	port.WriteError = errors.New("unplugged")

	err := initBridge(serialmux.NewSerialMux(port))
	require.Error(t, err)
	assert.True(t, port.Closed)
}

func TestInitBridgeSendsStreamConfig(t *testing.T) {
	port := serialmux.NewFakePort()

	require.NoError(t, initBridge(serialmux.NewSerialMux(port)))
	assert.False(t, port.Closed)
	assert.Equal(t, serialmux.StartCommands(serialmux.DefaultStreamConfig), port.Commands())
}
