package synth

import (
	"time"

	"pipedream/notes"
)

// RenderOptions controls offline rendering
type RenderOptions struct {
	SampleRate   int
	NoteDuration time.Duration
	Drone        bool
	DroneFreq    float64
}

// Render plays seq note after note into a mono buffer, each note lasting
// NoteDuration, with the drone mixed underneath when enabled. It uses the
// same voices and envelopes as live playback.
func Render(seq notes.Sequence, opts RenderOptions) []float32 {
	if opts.SampleRate <= 0 || len(seq) == 0 {
		return nil
	}
	env := NoteEnvelope(opts.NoteDuration)
	step := NewVoice(opts.SampleRate, 1, env, env.Duration).Length
	out := make([]float32, step*len(seq))

	for i, s := range seq {
		v := NewVoice(opts.SampleRate, notes.Frequency(s), env, env.Duration)
		offset := i * step
		for j := 0; j < v.Length; j++ {
			out[offset+j] += float32(v.next())
		}
	}

	if opts.Drone && opts.DroneFreq > 0 {
		d := NewVoice(opts.SampleRate, opts.DroneFreq, Constant(DroneGain), 0)
		for j := range out {
			out[j] += float32(d.next())
		}
	}
	return out
}
