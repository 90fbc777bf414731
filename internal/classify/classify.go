// Package classify maps a set of vitals to a blood-alcohol band using an
// ordered ladder of range conjunctions.
package classify

import (
	"fmt"
	"math"
	"strings"
)

// Label is a classifier outcome. BAC is the numeric alcohol value reported
// upstream; unknown outcomes report 0.
type Label struct {
	Name string  `json:"name"`
	BAC  float64 `json:"bac"`
}

var (
	// Unavailable is returned when no core temperature could be read.
	Unavailable = Label{Name: "Unknown (Temp Error)"}
	// Unclassified is returned when no band matches.
	Unclassified = Label{Name: "Unknown (Unclassified)"}
)

// Known reports whether l is one of the ladder bands rather than an unknown
// outcome.
func (l Label) Known() bool {
	return !strings.HasPrefix(l.Name, "Unknown")
}

// Range is an interval over the reals. Unbounded ends use ±Inf.
type Range struct {
	Lo, Hi         float64
	LoOpen, HiOpen bool
}

// Closed returns [lo, hi].
func Closed(lo, hi float64) Range { return Range{Lo: lo, Hi: hi} }

// HalfOpen returns [lo, hi).
func HalfOpen(lo, hi float64) Range { return Range{Lo: lo, Hi: hi, HiOpen: true} }

// LeftOpen returns (lo, hi].
func LeftOpen(lo, hi float64) Range { return Range{Lo: lo, Hi: hi, LoOpen: true} }

// Above returns (lo, +Inf).
func Above(lo float64) Range { return Range{Lo: lo, Hi: math.Inf(1), LoOpen: true, HiOpen: true} }

// AtLeast returns [lo, +Inf).
func AtLeast(lo float64) Range { return Range{Lo: lo, Hi: math.Inf(1), HiOpen: true} }

// Below returns (-Inf, hi).
func Below(hi float64) Range { return Range{Lo: math.Inf(-1), Hi: hi, LoOpen: true, HiOpen: true} }

// Contains reports whether v lies in r.
func (r Range) Contains(v float64) bool {
	if r.LoOpen && v <= r.Lo || !r.LoOpen && v < r.Lo {
		return false
	}
	if r.HiOpen && v >= r.Hi || !r.HiOpen && v > r.Hi {
		return false
	}
	return true
}

func (r Range) String() string {
	lb, rb := "[", "]"
	if r.LoOpen {
		lb = "("
	}
	if r.HiOpen {
		rb = ")"
	}
	return fmt.Sprintf("%s%g, %g%s", lb, r.Lo, r.Hi, rb)
}

// Band is one rung of the ladder: all five ranges must hold.
type Band struct {
	Label       Label
	Respiration Range
	Systolic    Range
	Diastolic   Range
	HeartRate   Range
	Temperature Range
}

// Matches reports whether in satisfies every range of b.
func (b Band) Matches(in Inputs, temp float64) bool {
	return b.Respiration.Contains(in.RespirationRate) &&
		b.Systolic.Contains(in.Systolic) &&
		b.Diastolic.Contains(in.Diastolic) &&
		b.HeartRate.Contains(in.heartRate()) &&
		b.Temperature.Contains(temp)
}

// DefaultLadder is evaluated top to bottom; the first match wins.
var DefaultLadder = []Band{
	{
		Label:       Label{Name: "0.00% (Sober)", BAC: 0},
		Respiration: AtLeast(12),
		Systolic:    Closed(110, 120),
		Diastolic:   Closed(70, 80),
		HeartRate:   Closed(60, 90),
		Temperature: Closed(36.1, 37.2),
	},
	{
		Label:       Label{Name: "0.02%", BAC: 0.02},
		Respiration: HalfOpen(10, 12),
		Systolic:    Closed(120, 125),
		Diastolic:   Closed(80, 85),
		HeartRate:   Closed(90, 100),
		Temperature: LeftOpen(37.2, 38.3),
	},
	{
		Label:       Label{Name: "0.04%", BAC: 0.04},
		Respiration: HalfOpen(9, 10),
		Systolic:    Closed(125, 130),
		Diastolic:   Closed(85, 85),
		HeartRate:   Closed(100, 105),
		Temperature: LeftOpen(38.3, 38.8),
	},
	{
		Label:       Label{Name: "0.06%", BAC: 0.06},
		Respiration: HalfOpen(5, 9),
		Systolic:    Closed(135, 140),
		Diastolic:   Closed(85, 90),
		HeartRate:   Above(105),
		Temperature: Above(38.8),
	},
	{
		Label:       Label{Name: "0.08%", BAC: 0.08},
		Respiration: Below(5),
		Systolic:    Above(140),
		Diastolic:   Above(90),
		HeartRate:   Above(105),
		Temperature: Above(38.8),
	},
}

// Inputs are the vitals the ladder looks at. Nil pointers mean unavailable.
type Inputs struct {
	HeartRate       *float64
	RespirationRate float64
	Systolic        float64
	Diastolic       float64
	Temperature     *float64
}

// heartRate evaluates a missing heart rate as 0, which no band accepts.
func (in Inputs) heartRate() float64 {
	if in.HeartRate == nil {
		return 0
	}
	return *in.HeartRate
}

// Classifier applies a ladder.
type Classifier struct {
	Ladder []Band
}

// New returns a Classifier over DefaultLadder.
func New() *Classifier {
	return &Classifier{Ladder: DefaultLadder}
}

// Classify returns Unavailable without a temperature, the first matching
// band's label, or Unclassified.
func (c *Classifier) Classify(in Inputs) Label {
	if in.Temperature == nil {
		return Unavailable
	}
	temp := *in.Temperature
	for _, b := range c.Ladder {
		if b.Matches(in, temp) {
			return b.Label
		}
	}
	return Unclassified
}
