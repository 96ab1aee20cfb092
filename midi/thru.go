package midi

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"pipedream/debug"
	"pipedream/notes"
)

// Thru mirrors the tone engine onto a MIDI output: every note becomes a
// note-on followed by a note-off after its duration, and the drone holds a
// note on the next channel while it sounds.
type Thru struct {
	send     func(Event) error
	channel  uint8
	velocity uint8

	mu        sync.Mutex
	timers    map[*time.Timer]struct{}
	droneNote int // -1 when no drone is held
	closed    bool
}

// NewThru creates a thru that hands events to send
func NewThru(send func(Event) error, channel uint8) *Thru {
	return &Thru{
		send:      send,
		channel:   channel & 0x0F,
		velocity:  100,
		timers:    make(map[*time.Timer]struct{}),
		droneNote: -1,
	}
}

// OpenThru opens out and returns a thru writing to it
func OpenThru(out drivers.Out, channel uint8) (*Thru, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", out, err)
	}
	return NewThru(func(e Event) error { return send(message(e)) }, channel), nil
}

// message converts an Event to its wire form
func message(e Event) gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	default:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	}
}

func (t *Thru) emit(e Event) {
	if err := t.send(e); err != nil {
		debug.Log("midi", "thru send %+v: %v", e, err)
	}
}

// NoteStarted sends the note and schedules its release
func (t *Thru) NoteStarted(s notes.Symbol, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	note := NoteFor(s)
	t.emit(Event{Type: NoteOn, Channel: t.channel, Note: note, Velocity: t.velocity})

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.timers[timer]; !ok {
			return
		}
		delete(t.timers, timer)
		t.emit(Event{Type: NoteOff, Channel: t.channel, Note: note})
	})
	t.timers[timer] = struct{}{}
}

// DroneChanged holds or releases the drone note
func (t *Thru) DroneChanged(active bool, hz float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	ch := (t.channel + 1) & 0x0F
	if t.droneNote >= 0 {
		t.emit(Event{Type: NoteOff, Channel: ch, Note: uint8(t.droneNote)})
		t.droneNote = -1
	}
	if active {
		note := FreqToNote(hz)
		t.emit(Event{Type: NoteOn, Channel: ch, Note: note, Velocity: t.velocity})
		t.droneNote = int(note)
	}
}

// Close releases everything still sounding and stops further output
func (t *Thru) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
	for _, ch := range []uint8{t.channel, (t.channel + 1) & 0x0F} {
		t.emit(Event{Type: CC, Channel: ch, Note: allNotesOff})
	}
	t.droneNote = -1
	return nil
}
