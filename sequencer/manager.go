package sequencer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"pipedream/debug"
	"pipedream/midi"
	"pipedream/notes"
	"pipedream/tune"
)

// Sound is the tone engine as seen by the manager
type Sound interface {
	PlayNote(ctx context.Context, s notes.Symbol, d time.Duration)
	SetDrone(ctx context.Context, active bool, freq float64)
	DroneActive() bool
}

// Options configures a Manager
type Options struct {
	NoteDuration time.Duration
	DroneFreq    float64
	Inactivity   time.Duration
	ShareBase    string
	Clipboard    io.Writer // OSC 52 destination; nil disables copying
	Now          func() time.Time
}

// audioWait bounds how long a key press waits for a suspended output
const audioWait = 2 * time.Second

// Manager is the application controller: it owns the current tune and the
// saved tunes, drives the tone engine and the step player, and persists
// every change
type Manager struct {
	sound  Sound
	store  *Store // nil = nothing persisted
	player *Player
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	state *State

	// editMu orders tune edits end to end: state, player and store all
	// see them in the same order
	editMu sync.Mutex

	droneMu sync.Mutex

	// MIDI input
	midiMu   sync.Mutex
	midiStop chan struct{}

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager creates a manager, restoring the last session from store
func NewManager(sound Sound, store *Store, opts Options) *Manager {
	if opts.NoteDuration <= 0 {
		opts.NoteDuration = 2 * time.Second
	}
	if opts.DroneFreq <= 0 {
		opts.DroneFreq = notes.DroneFrequency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		sound:      sound,
		store:      store,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		state:      NewState(),
		UpdateChan: make(chan struct{}, 1),
	}
	if store != nil {
		m.state.Tune = store.LoadTune()
		m.state.Name = store.LoadName()
		m.state.Saved = store.LoadSaved()
	}
	m.player = NewPlayer(m.playSound, opts.NoteDuration, opts.Inactivity)
	m.player.SetSequence(m.state.Tune)
	m.player.SetOnChange(func(int) { m.notifyUpdate() })
	return m
}

// Player returns the step player, mainly so tests can swap its clock
func (m *Manager) Player() *Player {
	return m.player
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	s := m.state.Clone()
	m.mu.RUnlock()
	s.Cursor = m.player.Cursor()
	return s
}

// playSound sounds one note, waiting briefly for the output on first use
func (m *Manager) playSound(s notes.Symbol, d time.Duration) {
	if m.sound == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, audioWait)
	defer cancel()
	m.sound.PlayNote(ctx, s, d)
}

// Note entry

// AddNote appends a note to the tune and plays it
func (m *Manager) AddNote(s notes.Symbol) {
	if !s.Valid() {
		return
	}
	m.editTune(func(seq notes.Sequence) (notes.Sequence, bool) {
		return seq.Append(s), true
	})
	m.playSound(s, m.opts.NoteDuration)
}

// PlayNote plays a note without changing the tune
func (m *Manager) PlayNote(s notes.Symbol) {
	if !s.Valid() {
		return
	}
	m.playSound(s, m.opts.NoteDuration)
}

// PlayAt plays the note at index i of the tune
func (m *Manager) PlayAt(i int) {
	m.mu.RLock()
	if i < 0 || i >= len(m.state.Tune) {
		m.mu.RUnlock()
		return
	}
	s := m.state.Tune[i]
	m.mu.RUnlock()
	m.PlayNote(s)
}

// RemoveAt deletes the note at index i
func (m *Manager) RemoveAt(i int) {
	m.editTune(func(seq notes.Sequence) (notes.Sequence, bool) {
		if i < 0 || i >= len(seq) {
			return nil, false
		}
		return seq.RemoveAt(i), true
	})
}

// DeleteLast deletes the final note, if any
func (m *Manager) DeleteLast() {
	m.editTune(func(seq notes.Sequence) (notes.Sequence, bool) {
		if len(seq) == 0 {
			return nil, false
		}
		return seq.RemoveAt(len(seq) - 1), true
	})
}

// Clear empties the tune
func (m *Manager) Clear() {
	m.editTune(func(notes.Sequence) (notes.Sequence, bool) {
		return notes.Sequence{}, true
	})
}

// Step advances the play cursor and sounds the note under it
func (m *Manager) Step() {
	m.player.Advance()
}

// editTune applies edit to the current tune. edit runs under m.mu and may
// also touch other state; returning false leaves everything as it was.
// Otherwise the status is cleared, the player goes back to idle and the
// tune is persisted, all before the next edit starts.
func (m *Manager) editTune(edit func(notes.Sequence) (notes.Sequence, bool)) bool {
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	oldName := m.state.Name
	seq, ok := edit(m.state.Tune)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.state.Tune = seq
	m.state.Status = ""
	name := m.state.Name
	m.mu.Unlock()

	m.player.SetSequence(seq)
	if m.store != nil {
		if err := m.store.SaveTune(seq); err != nil {
			debug.Log("store", "%v", err)
		}
	}
	if name != oldName {
		m.persistName(name)
	}
	m.notifyUpdate()
	return true
}

// Naming and the saved-tunes drawer

// SetName changes the current tune's name
func (m *Manager) SetName(name string) {
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	m.state.Name = name
	m.mu.Unlock()

	m.persistName(name)
	m.notifyUpdate()
}

func (m *Manager) persistName(name string) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveName(name); err != nil {
		debug.Log("store", "%v", err)
	}
}

func (m *Manager) persistSaved(saved []SavedTune) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveSaved(saved); err != nil {
		debug.Log("store", "%v", err)
	}
}

// SaveTune adds the current tune to the saved list and clears the name. It
// refuses, with a status message, when there is no name or no notes.
func (m *Manager) SaveTune() bool {
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	switch {
	case m.state.Name == "":
		m.state.Status = "Enter a name to save"
		m.mu.Unlock()
		m.notifyUpdate()
		return false
	case len(m.state.Tune) == 0:
		m.state.Status = "Add notes to save"
		m.mu.Unlock()
		m.notifyUpdate()
		return false
	}
	entry := SavedTune{
		Tune:    tune.Tune{Name: m.state.Name, Notes: m.state.Tune.Clone()},
		SavedAt: m.opts.Now(),
	}
	m.state.Saved = append(m.state.Saved, entry)
	saved := append([]SavedTune(nil), m.state.Saved...)
	m.state.Status = fmt.Sprintf("Tune %q saved!", entry.Name)
	m.state.Name = ""
	m.mu.Unlock()

	m.persistSaved(saved)
	m.persistName("")
	m.notifyUpdate()
	return true
}

// DeleteSaved removes saved tune i
func (m *Manager) DeleteSaved(i int) {
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	if i < 0 || i >= len(m.state.Saved) {
		m.mu.Unlock()
		return
	}
	saved := make([]SavedTune, 0, len(m.state.Saved)-1)
	saved = append(saved, m.state.Saved[:i]...)
	saved = append(saved, m.state.Saved[i+1:]...)
	m.state.Saved = saved
	m.state.Status = ""
	m.mu.Unlock()

	m.persistSaved(saved)
	m.notifyUpdate()
}

// SelectSaved loads saved tune i as the current tune
func (m *Manager) SelectSaved(i int) {
	m.editTune(func(notes.Sequence) (notes.Sequence, bool) {
		if i < 0 || i >= len(m.state.Saved) {
			return nil, false
		}
		t := m.state.Saved[i]
		m.state.Name = t.Name
		return t.Notes.Clone(), true
	})
}

// ImportSaved appends tunes to the saved list and returns how many were
// added
func (m *Manager) ImportSaved(tunes []SavedTune) int {
	if len(tunes) == 0 {
		return 0
	}
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	for _, t := range tunes {
		t.Notes = t.Notes.Clone()
		m.state.Saved = append(m.state.Saved, t)
	}
	saved := append([]SavedTune(nil), m.state.Saved...)
	m.mu.Unlock()

	m.persistSaved(saved)
	m.notifyUpdate()
	return len(tunes)
}

// Drone

// ToggleDrone starts the drone if it is off and stops it if it is on. The
// drone flag follows what the engine reports afterwards, so a drone that
// could not start shows as off.
func (m *Manager) ToggleDrone() {
	m.droneMu.Lock()
	defer m.droneMu.Unlock()

	m.mu.RLock()
	want := !m.state.Drone
	m.mu.RUnlock()

	active := false
	if m.sound != nil {
		ctx, cancel := context.WithTimeout(m.ctx, audioWait)
		m.sound.SetDrone(ctx, want, m.opts.DroneFreq)
		cancel()
		active = m.sound.DroneActive()
	}

	m.mu.Lock()
	m.state.Drone = active
	if want && !active {
		m.state.Status = "Audio unavailable, drone not started"
	}
	m.mu.Unlock()
	m.notifyUpdate()
}

// Sharing

// ShareLink returns the link for the current tune
func (m *Manager) ShareLink() (string, error) {
	m.mu.RLock()
	seq, name := m.state.Tune.Clone(), m.state.Name
	m.mu.RUnlock()
	return tune.ShareURL(m.opts.ShareBase, seq, name)
}

// CopyShareLink copies the share link to the clipboard and reports the
// outcome through the status line
func (m *Manager) CopyShareLink() bool {
	link, err := m.ShareLink()
	ok := err == nil && tune.CopyLink(m.opts.Clipboard, link)
	if err != nil {
		debug.Log("share", "%v", err)
	}

	m.mu.Lock()
	if ok {
		m.state.Status = "Share link copied to clipboard!"
	} else {
		m.state.Status = "Failed to copy link. Please try again."
	}
	m.mu.Unlock()
	m.notifyUpdate()
	return ok
}

// LoadShared replaces the current tune with one from a share link. It
// returns false, leaving everything unchanged, when the link carries no
// tune.
func (m *Manager) LoadShared(link string) bool {
	t, ok := tune.Parse(link)
	if !ok {
		return false
	}
	m.editTune(func(notes.Sequence) (notes.Sequence, bool) {
		if t.Name != "" {
			m.state.Name = t.Name
		}
		return t.Notes, true
	})
	debug.Log("share", "loaded %d notes from link", len(t.Notes))
	return true
}

// SetStatus shows a one-line message
func (m *Manager) SetStatus(msg string) {
	m.mu.Lock()
	m.state.Status = msg
	m.mu.Unlock()
	m.notifyUpdate()
}

// MIDI input

// SetMIDIInput routes a controller's notes into the tune. nil stops the
// current input.
func (m *Manager) SetMIDIInput(ctrl midi.Controller) {
	m.midiMu.Lock()
	defer m.midiMu.Unlock()

	if m.midiStop != nil {
		close(m.midiStop)
		m.midiStop = nil
	}
	if ctrl == nil {
		return
	}

	stop := make(chan struct{})
	m.midiStop = stop
	go m.midiInputLoop(ctrl.NoteEvents(), stop)
}

// midiInputLoop consumes MIDI keyboard input until stopped or the
// controller closes its channel
func (m *Manager) midiInputLoop(events <-chan midi.NoteEvent, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s := midi.SymbolFor(evt.Note)
			debug.Log("midi", "note %d -> %v", evt.Note, s)
			m.AddNote(s)
		}
	}
}

// Close stops the drone and MIDI input
func (m *Manager) Close() {
	m.SetMIDIInput(nil)
	m.droneMu.Lock()
	defer m.droneMu.Unlock()
	m.mu.Lock()
	drone := m.state.Drone
	m.state.Drone = false
	m.mu.Unlock()
	if drone && m.sound != nil {
		m.sound.SetDrone(context.Background(), false, m.opts.DroneFreq)
	}
	m.player.Reset()
	m.cancel()
}

// notifyUpdate wakes the TUI
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
