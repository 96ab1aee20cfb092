package sequencer

import (
	"sync"
	"time"

	"pipedream/debug"
	"pipedream/notes"
)

// Idle is the cursor value when no note is selected
const Idle = -1

// DefaultInactivity is how long the cursor stays on a note after the last
// step before it returns to Idle
const DefaultInactivity = 10 * time.Second

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock is time.AfterFunc; tests use a
// manual one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NoteFunc sounds one note for the given duration
type NoteFunc func(s notes.Symbol, d time.Duration)

// Player steps through a sequence one note per Advance call, wrapping at the
// end. The cursor returns to Idle after a period without steps, and whenever
// the sequence is replaced.
type Player struct {
	mu         sync.Mutex
	seq        notes.Sequence
	cursor     int
	timer      Timer
	generation uint64 // bumped on every re-arm/cancel; stale timers compare it

	clock        Clock
	play         NoteFunc
	noteDuration time.Duration
	inactivity   time.Duration
	onChange     func(cursor int)
}

// NewPlayer creates an idle player that sounds notes through play
func NewPlayer(play NoteFunc, noteDuration, inactivity time.Duration) *Player {
	if inactivity <= 0 {
		inactivity = DefaultInactivity
	}
	return &Player{
		cursor:       Idle,
		clock:        realClock{},
		play:         play,
		noteDuration: noteDuration,
		inactivity:   inactivity,
	}
}

// SetClock replaces the clock; call before the first Advance
func (p *Player) SetClock(c Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = c
}

// SetOnChange registers a callback fired (outside the lock) whenever the
// cursor moves
func (p *Player) SetOnChange(f func(cursor int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = f
}

// Cursor returns the current index, or Idle
func (p *Player) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Sequence returns a copy of the sequence being stepped through
func (p *Player) Sequence() notes.Sequence {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq.Clone()
}

// Advance moves to the next note (the first one from Idle), plays it and
// restarts the inactivity timer. An empty sequence is left alone.
func (p *Player) Advance() {
	p.mu.Lock()
	if len(p.seq) == 0 {
		p.mu.Unlock()
		return
	}
	if p.cursor == Idle {
		p.cursor = 0
	} else {
		p.cursor = (p.cursor + 1) % len(p.seq)
	}
	cursor := p.cursor
	s := p.seq[cursor]
	p.rearmLocked()
	play, onChange, d := p.play, p.onChange, p.noteDuration
	p.mu.Unlock()

	debug.Log("player", "step %d: %v", cursor, s)
	if play != nil {
		play(s, d)
	}
	if onChange != nil {
		onChange(cursor)
	}
}

// SetSequence replaces the sequence being stepped through. The cursor goes
// back to Idle and any pending timer is cancelled.
func (p *Player) SetSequence(seq notes.Sequence) {
	p.mu.Lock()
	p.seq = seq.Clone()
	p.cancelLocked()
	moved := p.cursor != Idle
	p.cursor = Idle
	onChange := p.onChange
	p.mu.Unlock()

	if moved && onChange != nil {
		onChange(Idle)
	}
}

// Reset returns the cursor to Idle without changing the sequence
func (p *Player) Reset() {
	p.mu.Lock()
	p.cancelLocked()
	moved := p.cursor != Idle
	p.cursor = Idle
	onChange := p.onChange
	p.mu.Unlock()

	if moved && onChange != nil {
		onChange(Idle)
	}
}

// cancelLocked stops the pending timer and invalidates it in case it is
// already firing
func (p *Player) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.generation++
}

// rearmLocked cancels the old timer before starting the new one
func (p *Player) rearmLocked() {
	p.cancelLocked()
	gen := p.generation
	p.timer = p.clock.AfterFunc(p.inactivity, func() { p.expire(gen) })
}

func (p *Player) expire(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.cursor == Idle {
		p.mu.Unlock()
		return
	}
	p.cursor = Idle
	p.timer = nil
	onChange := p.onChange
	p.mu.Unlock()

	debug.Log("player", "inactivity reset")
	if onChange != nil {
		onChange(Idle)
	}
}
