package vitals

import "gonum.org/v1/gonum/stat"

// MatchedPair is one ECG R peak paired with the pulse arrival it produced.
type MatchedPair struct {
	ECGTime float64
	PPGTime float64
	PTT     float64
}

// PeakTimes converts sample indices to seconds from the start of capture.
func PeakTimes(peaks []int, sampleRateHz float64) []float64 {
	out := make([]float64, len(peaks))
	for i, p := range peaks {
		out[i] = float64(p) / sampleRateHz
	}
	return out
}

// MatchPeaks pairs each ECG peak, in order, with the first unused PPG peak
// that arrives strictly after it and whose delay lies inside window. A PPG
// peak is used at most once; ECG peaks with no candidate are skipped.
func MatchPeaks(ecgTimes, ppgTimes []float64, window PTTWindow) []MatchedPair {
	used := make([]bool, len(ppgTimes))
	var pairs []MatchedPair
	for _, e := range ecgTimes {
		for j, p := range ppgTimes {
			if used[j] || p <= e {
				continue
			}
			d := p - e
			if !window.Contains(d) {
				continue
			}
			used[j] = true
			pairs = append(pairs, MatchedPair{ECGTime: e, PPGTime: p, PTT: d})
			break
		}
	}
	return pairs
}

// PulseTransitTime is the mean PTT over the matched pairs.
func PulseTransitTime(pairs []MatchedPair) (float64, bool) {
	if len(pairs) == 0 {
		return 0, false
	}
	ptts := make([]float64, len(pairs))
	for i, p := range pairs {
		ptts[i] = p.PTT
	}
	return stat.Mean(ptts, nil), true
}

// BloodPressure maps a PTT in seconds to systolic and diastolic mmHg with
// the inverse model A/PTT + B, rounded to one decimal. A non-positive PTT
// yields (0, 0).
func BloodPressure(ptt float64, cal Calibration) (systolic, diastolic float64) {
	if ptt <= 0 {
		return 0, 0
	}
	systolic = round1(cal.Systolic.A/ptt + cal.Systolic.B)
	diastolic = round1(cal.Diastolic.A/ptt + cal.Diastolic.B)
	return systolic, diastolic
}
