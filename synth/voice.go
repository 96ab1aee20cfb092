package synth

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"
)

// bytesPerFrame is one stereo float32 frame
const bytesPerFrame = 8

// Voice is a square-wave oscillator shaped by an Amplitude. It renders
// stereo float32 little-endian frames through Read and ends with io.EOF once
// Length frames have been produced or Stop is called. Length 0 means the
// voice runs until stopped.
type Voice struct {
	Freq       float64
	Amp        Amplitude
	Length     int
	sampleRate int

	pos     int
	phase   float64
	stopped atomic.Bool
}

// NewVoice creates a voice; a positive duration (seconds) sets Length
func NewVoice(sampleRate int, freq float64, amp Amplitude, seconds float64) *Voice {
	v := &Voice{
		Freq:       freq,
		Amp:        amp,
		sampleRate: sampleRate,
	}
	if seconds > 0 {
		v.Length = int(math.Ceil(seconds * float64(sampleRate)))
	}
	return v
}

// Stop makes the next Read return io.EOF. Safe to call from any goroutine.
func (v *Voice) Stop() {
	v.stopped.Store(true)
}

// Done reports whether the voice has ended
func (v *Voice) Done() bool {
	return v.stopped.Load() || (v.Length > 0 && v.pos >= v.Length)
}

func (v *Voice) Read(p []byte) (int, error) {
	if v.Done() {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	if v.Length > 0 {
		frames = min(frames, v.Length-v.pos)
	}
	for i := 0; i < frames; i++ {
		putStereoF32(p, i, v.next())
	}
	return frames * bytesPerFrame, nil
}

// next advances the oscillator by one frame and returns the sample
func (v *Voice) next() float64 {
	t := float64(v.pos) / float64(v.sampleRate)
	dt := v.Freq / float64(v.sampleRate)
	s := square(v.phase, dt) * v.Amp.Gain(t)
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	v.pos++
	return s
}

// square is a band-limited square wave (polyBLEP) at normalized phase
// [0,1); dt is the phase increment per sample
func square(phase, dt float64) float64 {
	s := 1.0
	if phase >= 0.5 {
		s = -1.0
	}
	s += polyBLEP(phase, dt)
	s -= polyBLEP(math.Mod(phase+0.5, 1), dt)
	return s
}

func polyBLEP(t, dt float64) float64 {
	switch {
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both channels of
// frame i
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	frame := buf[i*bytesPerFrame:]
	binary.LittleEndian.PutUint32(frame, v)
	binary.LittleEndian.PutUint32(frame[4:], v)
}
