package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/serialmux"
	"github.com/banshee-data/vitals.report/internal/timeutil"
)

// FIFODepth matches the 32-sample FIFO of the MAX30102.
const FIFODepth = 32

// Bridge adapts the line stream of the sensor bridge MCU to the three read
// primitives. ECG and temperature readers see the latest value; the PPG
// reader drains a bounded FIFO like the oximeter's own.
type Bridge struct {
	mux   serialmux.SerialMuxInterface
	clock timeutil.Clock

	// ECGMaxAge and TempMaxAge bound how old the latest value may be.
	ECGMaxAge  time.Duration
	TempMaxAge time.Duration

	mu       sync.Mutex
	ecg      reading
	temp     reading
	fifo     []PPGSample
	overflow int
	parseErr int
}

type reading struct {
	value float64
	at    time.Time
	set   bool
}

// NewBridge returns a bridge reading from mux. Call Run to start consuming.
func NewBridge(mux serialmux.SerialMuxInterface, clock timeutil.Clock) *Bridge {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Bridge{
		mux:        mux,
		clock:      clock,
		ECGMaxAge:  100 * time.Millisecond,
		TempMaxAge: 5 * time.Second,
		fifo:       make([]PPGSample, 0, FIFODepth),
	}
}

// Run subscribes to the mux and ingests lines until ctx is done or the mux
// closes the subscription.
func (b *Bridge) Run(ctx context.Context) error {
	id, lines := b.mux.Subscribe()
	defer b.mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			b.Ingest(line)
		}
	}
}

// Ingest applies one bridge line. Malformed lines are counted and dropped.
func (b *Bridge) Ingest(line string) {
	r, err := serialmux.ParseReading(line)
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.parseErr++
		if b.parseErr == 1 || b.parseErr%1000 == 0 {
			monitoring.Logf("sensor bridge: %v (%d malformed lines)", err, b.parseErr)
		}
		return
	}

	switch r.Type {
	case serialmux.EventTypeECG:
		b.ecg = reading{value: r.Values[0], at: now, set: true}
	case serialmux.EventTypeTemperature:
		b.temp = reading{value: r.Values[0], at: now, set: true}
	case serialmux.EventTypePPG:
		if len(b.fifo) == FIFODepth {
			b.fifo = b.fifo[1:]
			b.overflow++
		}
		b.fifo = append(b.fifo, PPGSample{Red: r.Values[0], IR: r.Values[1]})
	}
}

// ReadVoltage implements ECGReader.
func (b *Bridge) ReadVoltage() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest(b.ecg, b.ECGMaxAge)
}

// ReadObjectTemperature implements Thermometer.
func (b *Bridge) ReadObjectTemperature() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest(b.temp, b.TempMaxAge)
}

// ReadFIFO implements PPGReader and returns the oldest queued pair.
func (b *Bridge) ReadFIFO() (PPGSample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.fifo) == 0 {
		return PPGSample{}, ErrNoSample
	}
	s := b.fifo[0]
	b.fifo = b.fifo[1:]
	return s, nil
}

// Stats reports the PPG FIFO overflow and malformed line counters.
func (b *Bridge) Stats() (overflow, malformed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow, b.parseErr
}

func (b *Bridge) latest(r reading, maxAge time.Duration) (float64, error) {
	if !r.set {
		return 0, ErrNoSample
	}
	if maxAge > 0 && b.clock.Since(r.at) > maxAge {
		return 0, ErrStale
	}
	return r.value, nil
}
