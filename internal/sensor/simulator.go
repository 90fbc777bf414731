package sensor

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
)

// SimulatorConfig shapes the synthetic signals produced by Simulator.
type SimulatorConfig struct {
	HeartRateBPM   float64
	BreathsPerMin  float64
	PTTSeconds     float64
	ECGRateHz      float64
	PPGRateHz      float64
	SkinTempC      float64
	RedDC, IRDC    float64
	PerfusionIndex float64 // pulsatile fraction of DC, both channels
	RedIRRatio     float64 // ratio of ratios R; 1.0 gives SpO2 98 with the default fit
	BreathingDepth float64 // baseline modulation as a fraction of DC
	ECGNoiseVolts  float64
	Seed           uint64
}

// DefaultSimulatorConfig is a resting adult: 72 bpm, 15 breaths/min, PTT
// 0.3 s, skin at 33 C.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		HeartRateBPM:   72,
		BreathsPerMin:  15,
		PTTSeconds:     0.3,
		ECGRateHz:      250,
		PPGRateHz:      25,
		SkinTempC:      33,
		RedDC:          50000,
		IRDC:           52000,
		PerfusionIndex: 0.01,
		RedIRRatio:     1.0,
		BreathingDepth: 0.004,
		ECGNoiseVolts:  0.01,
		Seed:           1,
	}
}

var errSimulatedFault = errors.New("sensor: simulated read fault")

// Simulator produces deterministic ECG, PPG and temperature readings. Time is
// derived from each channel's sample index, so an ECG sample n and a PPG
// sample m refer to n/ECGRateHz and m/PPGRateHz seconds after start and the
// two channels stay aligned regardless of scheduling.
type Simulator struct {
	mu          sync.Mutex
	cfg         SimulatorConfig
	rng         *rand.Rand
	ecgIndex    int
	ppgIndex    int
	contactLost bool
	tempFaults  int
}

// NewSimulator returns a simulator for cfg. Zero rates fall back to the
// defaults.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if cfg.ECGRateHz <= 0 {
		cfg.ECGRateHz = def.ECGRateHz
	}
	if cfg.PPGRateHz <= 0 {
		cfg.PPGRateHz = def.PPGRateHz
	}
	if cfg.HeartRateBPM <= 0 {
		cfg.HeartRateBPM = def.HeartRateBPM
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// SetContactLost makes every following PPG read return a zero pair, as the
// oximeter does with no finger on the window.
func (s *Simulator) SetContactLost(lost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contactLost = lost
}

// FailTemperature makes the next n temperature reads fail.
func (s *Simulator) FailTemperature(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempFaults = n
}

// SetSkinTemperature changes the temperature reported from now on.
func (s *Simulator) SetSkinTemperature(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SkinTempC = c
}

// ReadVoltage implements ECGReader.
func (s *Simulator) ReadVoltage() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := float64(s.ecgIndex) / s.cfg.ECGRateHz
	s.ecgIndex++

	phase := s.beatPhase(t)
	v := 0.08*gauss(phase, 0.18, 0.03) -
		0.12*gauss(phase, 0.30, 0.01) +
		1.00*gauss(phase, rPhase, 0.008) -
		0.25*gauss(phase, 0.35, 0.012) +
		0.25*gauss(phase, 0.60, 0.06)
	v += 0.05 * math.Sin(2*math.Pi*s.breathHz()*t)
	if s.cfg.ECGNoiseVolts > 0 {
		v += s.cfg.ECGNoiseVolts * (2*s.rng.Float64() - 1)
	}
	// ADS1115 front end rides on a 1.5 V mid-rail bias.
	return 1.5 + v, nil
}

// ReadFIFO implements PPGReader.
func (s *Simulator) ReadFIFO() (PPGSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := float64(s.ppgIndex) / s.cfg.PPGRateHz
	s.ppgIndex++

	if s.contactLost {
		return PPGSample{}, nil
	}

	// The pulse peaks PTT seconds after the R wave of the same beat.
	phase := s.beatPhase(t - s.cfg.PTTSeconds)
	pulse := gauss(phase, rPhase, 0.08) + 0.35*gauss(phase, rPhase+0.3, 0.06)
	breath := s.cfg.BreathingDepth * math.Sin(2*math.Pi*s.breathHz()*t)

	irK := s.cfg.PerfusionIndex
	redK := irK * s.cfg.RedIRRatio
	return PPGSample{
		Red: s.cfg.RedDC * (1 + redK*pulse + breath),
		IR:  s.cfg.IRDC * (1 + irK*pulse + breath),
	}, nil
}

// ReadObjectTemperature implements Thermometer.
func (s *Simulator) ReadObjectTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tempFaults > 0 {
		s.tempFaults--
		return 0, errSimulatedFault
	}
	return s.cfg.SkinTempC, nil
}

// rPhase is where the R wave sits inside a beat, as a fraction of the period.
const rPhase = 0.32

// beatPhase maps t seconds to [0, 1) within the cardiac cycle.
func (s *Simulator) beatPhase(t float64) float64 {
	p := t * s.cfg.HeartRateBPM / 60
	return p - math.Floor(p)
}

func (s *Simulator) breathHz() float64 {
	return s.cfg.BreathsPerMin / 60
}

// RPeakTimes returns the nominal R wave instants in [0, seconds).
func (s *Simulator) RPeakTimes(seconds float64) []float64 {
	period := 60 / s.cfg.HeartRateBPM
	var out []float64
	for t := rPhase * period; t < seconds; t += period {
		out = append(out, t)
	}
	return out
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}
