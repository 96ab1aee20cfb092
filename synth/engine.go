package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pipedream/debug"
	"pipedream/notes"
)

// ErrAudioUnavailable is returned when no output context can be created
var ErrAudioUnavailable = errors.New("audio output unavailable")

// Player plays one voice on an output context
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Context is an audio output context. Every player created from it is mixed
// into the same output.
type Context interface {
	NewPlayer(r io.Reader) Player
	// Ready is closed once the output is running. A context that the host
	// keeps suspended until a user gesture stays not-ready until resumed.
	Ready() <-chan struct{}
	SampleRate() int
}

// Opener creates the output context. It is called at most once per Engine.
type Opener func() (Context, error)

// Observer is told about every note and drone change. The MIDI thru output
// implements it.
type Observer interface {
	NoteStarted(s notes.Symbol, d time.Duration)
	DroneChanged(active bool, freq float64)
}

// releasePoll is how often a finished note player is checked for disposal
const releasePoll = 10 * time.Millisecond

// Engine owns the shared output context and the drone voice
type Engine struct {
	open     Opener
	observer Observer

	mu    sync.Mutex
	out   Context
	err   error
	drone *droneVoice

	wg sync.WaitGroup // note players still waiting for disposal
}

type droneVoice struct {
	voice  *Voice
	player Player
	freq   float64
}

// NewEngine creates an engine; the output context is not opened until the
// first sound is requested
func NewEngine(open Opener) *Engine {
	return &Engine{open: open}
}

// SetObserver registers o to be notified of notes and drone changes
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// EnsureOutput returns the shared output context, creating it on first use.
// If the context is suspended it waits until it is running or ctx is done.
// A failed open is remembered and reported again on every call.
func (e *Engine) EnsureOutput(ctx context.Context) (Context, error) {
	e.mu.Lock()
	if e.out == nil && e.err == nil {
		out, err := e.open()
		switch {
		case err != nil:
			e.err = fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
		case out == nil:
			e.err = fmt.Errorf("%w: no context", ErrAudioUnavailable)
		default:
			e.out = out
			debug.Log("audio", "output context opened (%d Hz)", out.SampleRate())
		}
	}
	out, err := e.out, e.err
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	select {
	case <-out.Ready():
		return out, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for audio output: %w", ctx.Err())
	}
}

// PlayNote starts a note and returns immediately. Notes may overlap; each
// owns its own voice and player, which are released once the note ends.
// Audio failures are logged and the note is dropped.
func (e *Engine) PlayNote(ctx context.Context, s notes.Symbol, d time.Duration) {
	out, err := e.EnsureOutput(ctx)
	if err != nil {
		debug.Log("audio", "note %v dropped: %v", s, err)
		return
	}

	env := NoteEnvelope(d)
	v := NewVoice(out.SampleRate(), notes.Frequency(s), env, env.Duration)
	p := out.NewPlayer(v)
	p.Play()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		release(p)
	}()

	e.mu.Lock()
	obs := e.observer
	e.mu.Unlock()
	if obs != nil {
		obs.NoteStarted(s, time.Duration(env.Duration*float64(time.Second)))
	}
}

// SetDrone starts or stops the drone. It is idempotent: starting while a
// drone runs, or stopping when none runs, does nothing. At most one drone
// voice ever exists.
func (e *Engine) SetDrone(ctx context.Context, active bool, freq float64) {
	if !active {
		e.stopDrone()
		return
	}

	e.mu.Lock()
	running := e.drone != nil
	e.mu.Unlock()
	if running {
		return
	}

	out, err := e.EnsureOutput(ctx)
	if err != nil {
		debug.Log("audio", "drone not started: %v", err)
		return
	}

	e.mu.Lock()
	// Re-check: another caller may have started it while we waited for the
	// output to become ready.
	if e.drone != nil {
		e.mu.Unlock()
		return
	}
	v := NewVoice(out.SampleRate(), freq, Constant(DroneGain), 0)
	p := out.NewPlayer(v)
	p.Play()
	e.drone = &droneVoice{voice: v, player: p, freq: freq}
	obs := e.observer
	e.mu.Unlock()

	debug.Log("audio", "drone on at %.1f Hz", freq)
	if obs != nil {
		obs.DroneChanged(true, freq)
	}
}

func (e *Engine) stopDrone() {
	e.mu.Lock()
	d := e.drone
	e.drone = nil
	obs := e.observer
	e.mu.Unlock()

	if d == nil {
		return
	}
	d.voice.Stop()
	d.player.Pause()
	if err := d.player.Close(); err != nil {
		debug.Log("audio", "closing drone player: %v", err)
	}
	debug.Log("audio", "drone off")
	if obs != nil {
		obs.DroneChanged(false, d.freq)
	}
}

// DroneActive reports whether a drone voice is running
func (e *Engine) DroneActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drone != nil
}

// Close stops the drone and waits for playing notes to be released. The
// output context itself lives until the process exits.
func (e *Engine) Close() {
	e.stopDrone()
	e.wg.Wait()
}

// release waits for a note player to finish and disposes of it
func release(p Player) {
	for p.IsPlaying() {
		time.Sleep(releasePoll)
	}
	if err := p.Close(); err != nil {
		debug.Log("audio", "closing note player: %v", err)
	}
}
