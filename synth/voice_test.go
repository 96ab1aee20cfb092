package synth

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"pipedream/notes"
)

func TestEnvelopeStages(t *testing.T) {
	env := NoteEnvelope(500 * time.Millisecond)
	stages := env.Stages()
	want := []Stage{
		{At: 0, Value: 0, Curve: CurveStep},
		{At: 0.01, Value: NotePeak, Curve: CurveLinear},
		{At: 0.5, Value: NoteFloor, Curve: CurveExponential},
	}
	if len(stages) != len(want) {
		t.Fatalf("got %d stages, want %d", len(stages), len(want))
	}
	for i := range want {
		if math.Abs(stages[i].At-want[i].At) > 1e-12 || stages[i].Value != want[i].Value || stages[i].Curve != want[i].Curve {
			t.Errorf("stage %d = %+v, want %+v", i, stages[i], want[i])
		}
	}
	for _, s := range stages {
		if g := env.Gain(s.At); math.Abs(g-s.Value) > 1e-9 {
			t.Errorf("Gain(%v) = %v, want %v", s.At, g, s.Value)
		}
	}
	if g := env.Gain(0.6); g != 0 {
		t.Errorf("gain after stop = %v, want 0", g)
	}
}

func TestVoiceReadsUntilLength(t *testing.T) {
	v := NewVoice(1000, 100, Constant(0.5), 0.1)
	if v.Length != 100 {
		t.Fatalf("length = %d, want 100", v.Length)
	}
	buf := make([]byte, 64*bytesPerFrame)
	total := 0
	for {
		n, err := v.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		for i := 0; i < n; i += 4 {
			s := math.Float32frombits(binary.LittleEndian.Uint32(buf[i:]))
			if math.Abs(float64(s)) > 0.5*1.01 {
				t.Fatalf("sample %v exceeds gain", s)
			}
		}
	}
	if total != 100*bytesPerFrame {
		t.Fatalf("read %d bytes, want %d", total, 100*bytesPerFrame)
	}
}

func TestPutStereoF32(t *testing.T) {
	buf := make([]byte, 3*bytesPerFrame)
	putStereoF32(buf, 1, -0.25)
	for _, off := range []int{bytesPerFrame, bytesPerFrame + 4} {
		if s := math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])); s != -0.25 {
			t.Errorf("sample at byte %d = %v, want -0.25", off, s)
		}
	}
	for _, b := range append(buf[:bytesPerFrame:bytesPerFrame], buf[2*bytesPerFrame:]...) {
		if b != 0 {
			t.Fatalf("neighbouring frames touched: % x", buf)
		}
	}
}

func TestVoiceStop(t *testing.T) {
	v := NewVoice(44100, notes.DroneFrequency, Constant(DroneGain), 0)
	buf := make([]byte, 512)
	if n, err := v.Read(buf); n != 512 || err != nil {
		t.Fatalf("endless voice read = %d, %v", n, err)
	}
	v.Stop()
	if _, err := v.Read(buf); err != io.EOF {
		t.Fatalf("read after stop: err = %v, want EOF", err)
	}
}

func TestSquareIsBipolar(t *testing.T) {
	v := NewVoice(44100, 441, Constant(1), 0.01)
	var hi, lo bool
	for i := 0; i < v.Length; i++ {
		s := v.next()
		if s > 0.9 {
			hi = true
		}
		if s < -0.9 {
			lo = true
		}
	}
	if !hi || !lo {
		t.Fatal("square wave did not swing both ways")
	}
}

func TestRender(t *testing.T) {
	seq := notes.Sequence{notes.LowA, notes.B, notes.C}
	buf := Render(seq, RenderOptions{SampleRate: 8000, NoteDuration: 250 * time.Millisecond})
	if len(buf) != 3*2000 {
		t.Fatalf("len = %d, want %d", len(buf), 3*2000)
	}
	for _, i := range []int{0, 2000, 4000} {
		if buf[i] != 0 {
			t.Errorf("note onset at %d = %v, want silence", i, buf[i])
		}
	}
	var peak float32
	for _, s := range buf {
		if s > peak {
			peak = s
		}
	}
	if peak < 0.25 || peak > 0.35 {
		t.Errorf("peak = %v, want about %v", peak, NotePeak)
	}

	withDrone := Render(seq, RenderOptions{SampleRate: 8000, NoteDuration: 250 * time.Millisecond, Drone: true, DroneFreq: 240})
	if withDrone[10] == buf[10] {
		t.Error("drone missing under the first note")
	}
	if Render(nil, RenderOptions{SampleRate: 8000}) != nil {
		t.Error("empty sequence rendered audio")
	}
}
