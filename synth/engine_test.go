package synth

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"pipedream/notes"
)

type fakePlayer struct {
	mu      sync.Mutex
	r       io.Reader
	playing bool
	closed  bool
	ended   bool
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// IsPlaying pulls audio like a mixer would and reports false once the
// reader is exhausted
func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.ended {
		return false
	}
	buf := make([]byte, 1<<20)
	if _, err := p.r.Read(buf); err == io.EOF {
		p.ended = true
		return false
	}
	return true
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeContext struct {
	mu      sync.Mutex
	ready   chan struct{}
	players []*fakePlayer
}

func newFakeContext(ready bool) *fakeContext {
	c := &fakeContext{ready: make(chan struct{})}
	if ready {
		close(c.ready)
	}
	return c
}

func (c *fakeContext) NewPlayer(r io.Reader) Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &fakePlayer{r: r}
	c.players = append(c.players, p)
	return p
}

func (c *fakeContext) Ready() <-chan struct{} { return c.ready }
func (c *fakeContext) SampleRate() int        { return 44100 }

func (c *fakeContext) all() []*fakePlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakePlayer(nil), c.players...)
}

func openerFor(c *fakeContext, calls *int) Opener {
	return func() (Context, error) {
		*calls++
		return c, nil
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	notes  []notes.Symbol
	drones []bool
}

func (o *recordingObserver) NoteStarted(s notes.Symbol, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, s)
}

func (o *recordingObserver) DroneChanged(active bool, freq float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drones = append(o.drones, active)
}

func TestEnsureOutputOpensOnce(t *testing.T) {
	fc := newFakeContext(true)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))

	for i := 0; i < 3; i++ {
		out, err := e.EnsureOutput(context.Background())
		if err != nil {
			t.Fatalf("EnsureOutput: %v", err)
		}
		if out != Context(fc) {
			t.Fatal("EnsureOutput returned a different context")
		}
	}
	if calls != 1 {
		t.Fatalf("opener called %d times, want 1", calls)
	}
}

func TestEnsureOutputWaitsForResume(t *testing.T) {
	fc := newFakeContext(false)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.EnsureOutput(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("suspended context: err = %v, want deadline exceeded", err)
	}

	close(fc.ready)
	if _, err := e.EnsureOutput(context.Background()); err != nil {
		t.Fatalf("resumed context: %v", err)
	}
	if calls != 1 {
		t.Fatalf("opener called %d times, want 1", calls)
	}
}

func TestAudioUnavailableIsANoOp(t *testing.T) {
	calls := 0
	e := NewEngine(func() (Context, error) {
		calls++
		return nil, errors.New("no sound card")
	})

	if _, err := e.EnsureOutput(context.Background()); !errors.Is(err, ErrAudioUnavailable) {
		t.Fatalf("err = %v, want ErrAudioUnavailable", err)
	}
	e.PlayNote(context.Background(), notes.D, time.Second)
	e.SetDrone(context.Background(), true, notes.DroneFrequency)
	if e.DroneActive() {
		t.Fatal("drone reported active without output")
	}
	if calls != 1 {
		t.Fatalf("opener called %d times, want 1", calls)
	}
}

func TestPlayNoteSchedulesEnvelope(t *testing.T) {
	fc := newFakeContext(true)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))

	e.PlayNote(context.Background(), notes.LowG, 2*time.Second)
	e.Close()

	players := fc.all()
	if len(players) != 1 {
		t.Fatalf("got %d players, want 1", len(players))
	}
	v, ok := players[0].r.(*Voice)
	if !ok {
		t.Fatalf("player reader is %T, want *Voice", players[0].r)
	}
	if v.Freq != 414 {
		t.Errorf("freq = %v, want 414", v.Freq)
	}
	env, ok := v.Amp.(Envelope)
	if !ok {
		t.Fatalf("amplitude is %T, want Envelope", v.Amp)
	}
	if g := env.Gain(0); g != 0 {
		t.Errorf("gain at 0 = %v, want silence", g)
	}
	if g := env.Gain(0.010); math.Abs(g-0.3) > 1e-9 {
		t.Errorf("gain at 10ms = %v, want 0.3", g)
	}
	if g := env.Gain(2); math.Abs(g-0.01) > 1e-9 {
		t.Errorf("gain at duration = %v, want 0.01", g)
	}
	if g := env.Gain(1); g >= 0.3 || g <= 0.01 {
		t.Errorf("gain mid-decay = %v, want between floor and peak", g)
	}
	if v.Length != 2*44100 {
		t.Errorf("length = %d frames, want %d", v.Length, 2*44100)
	}
	if !players[0].isClosed() {
		t.Error("note player was not released")
	}
}

func TestPlayNoteOverlaps(t *testing.T) {
	fc := newFakeContext(true)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))

	e.PlayNote(context.Background(), notes.LowA, 50*time.Millisecond)
	e.PlayNote(context.Background(), notes.HighA, 50*time.Millisecond)
	e.Close()

	players := fc.all()
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
	if players[0].r == players[1].r {
		t.Fatal("notes share a voice")
	}
}

func TestPlayNoteClampsDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second, time.Millisecond} {
		fc := newFakeContext(true)
		calls := 0
		e := NewEngine(openerFor(fc, &calls))
		e.PlayNote(context.Background(), notes.E, d)
		e.Close()

		env := fc.all()[0].r.(*Voice).Amp.(Envelope)
		if env.Duration != MinDuration.Seconds() {
			t.Errorf("duration %v: scheduled %v s, want %v s", d, env.Duration, MinDuration.Seconds())
		}
		if env.Duration <= env.Attack {
			t.Errorf("duration %v: decay has no length", d)
		}
	}
}

func TestSetDroneIsIdempotent(t *testing.T) {
	fc := newFakeContext(true)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))
	obs := &recordingObserver{}
	e.SetObserver(obs)
	ctx := context.Background()

	e.SetDrone(ctx, true, notes.DroneFrequency)
	e.SetDrone(ctx, true, notes.DroneFrequency)
	if got := len(fc.all()); got != 1 {
		t.Fatalf("got %d drone players, want 1", got)
	}
	if !e.DroneActive() {
		t.Fatal("drone not active")
	}
	drone := fc.all()[0]
	v := drone.r.(*Voice)
	if g := v.Amp.Gain(123); g != DroneGain {
		t.Errorf("drone gain = %v, want %v", g, DroneGain)
	}

	e.SetDrone(ctx, false, notes.DroneFrequency)
	if e.DroneActive() {
		t.Fatal("drone still active after stop")
	}
	if !drone.isClosed() || !v.Done() {
		t.Fatal("drone voice was not released")
	}

	e.SetDrone(ctx, false, notes.DroneFrequency)
	if got := len(fc.all()); got != 1 {
		t.Fatalf("stopping twice created players: %d", got)
	}
	if len(obs.drones) != 2 || !obs.drones[0] || obs.drones[1] {
		t.Fatalf("observer saw %v, want [true false]", obs.drones)
	}
}

func TestSetDroneConcurrentStartsOnce(t *testing.T) {
	fc := newFakeContext(true)
	var mu sync.Mutex
	calls := 0
	e := NewEngine(func() (Context, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return fc, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.SetDrone(context.Background(), true, notes.DroneFrequency)
		}()
	}
	wg.Wait()
	if got := len(fc.all()); got != 1 {
		t.Fatalf("got %d drone players, want 1", got)
	}
}

func TestObserverSeesNotes(t *testing.T) {
	fc := newFakeContext(true)
	calls := 0
	e := NewEngine(openerFor(fc, &calls))
	obs := &recordingObserver{}
	e.SetObserver(obs)

	e.PlayNote(context.Background(), notes.B, 30*time.Millisecond)
	e.PlayNote(context.Background(), notes.C, 30*time.Millisecond)
	e.Close()

	if len(obs.notes) != 2 || obs.notes[0] != notes.B || obs.notes[1] != notes.C {
		t.Fatalf("observer saw %v", obs.notes)
	}
}
