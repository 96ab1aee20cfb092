package synth

import (
	"math"
	"time"
)

// Note and drone levels on a 0-1 scale
const (
	NotePeak  = 0.3
	NoteFloor = 0.01
	DroneGain = NotePeak / 2

	// AttackTime is the linear ramp from silence that keeps note onsets
	// from clicking
	AttackTime = 10 * time.Millisecond

	// MinDuration is the shortest note the engine will schedule: one attack
	// ramp plus an equally long decay
	MinDuration = 2 * AttackTime
)

// Amplitude gives the gain of a voice at t seconds after it started
type Amplitude interface {
	Gain(t float64) float64
}

// Constant is a fixed gain, used for the drone
type Constant float64

func (c Constant) Gain(float64) float64 { return float64(c) }

// Curve is the interpolation used to reach a Stage
type Curve int

const (
	CurveStep Curve = iota
	CurveLinear
	CurveExponential
)

// Stage is one scheduled envelope breakpoint: reach Value at At seconds
// using Curve
type Stage struct {
	At    float64
	Value float64
	Curve Curve
}

// Envelope is the note amplitude schedule: silence at 0, linear attack to
// Peak, exponential decay to Floor at Duration, then the voice stops.
type Envelope struct {
	Peak     float64
	Floor    float64
	Attack   float64 // seconds
	Duration float64 // seconds
}

// NoteEnvelope builds the standard note envelope. Durations shorter than
// MinDuration (including zero and negative ones) are clamped.
func NoteEnvelope(d time.Duration) Envelope {
	if d < MinDuration {
		d = MinDuration
	}
	return Envelope{
		Peak:     NotePeak,
		Floor:    NoteFloor,
		Attack:   AttackTime.Seconds(),
		Duration: d.Seconds(),
	}
}

// Stages returns the schedule as breakpoints
func (e Envelope) Stages() []Stage {
	return []Stage{
		{At: 0, Value: 0, Curve: CurveStep},
		{At: e.Attack, Value: e.Peak, Curve: CurveLinear},
		{At: e.Duration, Value: e.Floor, Curve: CurveExponential},
	}
}

func (e Envelope) Gain(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t < e.Attack:
		return e.Peak * t / e.Attack
	case t <= e.Duration:
		span := e.Duration - e.Attack
		if span <= 0 {
			return e.Floor
		}
		// v(t) = peak * (floor/peak)^((t-attack)/span)
		return e.Peak * math.Pow(e.Floor/e.Peak, (t-e.Attack)/span)
	default:
		return 0
	}
}
