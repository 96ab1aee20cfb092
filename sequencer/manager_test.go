package sequencer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pipedream/midi"
	"pipedream/notes"
	"pipedream/tune"
)

type droneCall struct {
	active bool
	freq   float64
}

// fakeSound records what the manager asked the engine to do
type fakeSound struct {
	mu      sync.Mutex
	notes   []notes.Symbol
	drones  []droneCall
	drone   bool
	noAudio bool // drone requests fail the way an unavailable output does
}

func (f *fakeSound) PlayNote(_ context.Context, s notes.Symbol, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, s)
}

func (f *fakeSound) SetDrone(_ context.Context, active bool, freq float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drones = append(f.drones, droneCall{active, freq})
	if !active || !f.noAudio {
		f.drone = active
	}
}

func (f *fakeSound) DroneActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drone
}

func (f *fakeSound) played() []notes.Symbol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notes.Symbol(nil), f.notes...)
}

func newTestManager(t *testing.T) (*Manager, *fakeSound, *Store) {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	sound := &fakeSound{}
	m := NewManager(sound, store, Options{
		ShareBase: "https://pipes.example/",
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	m.Player().SetClock(&manualClock{})
	t.Cleanup(m.Close)
	return m, sound, store
}

func TestAddNotePlaysAndPersists(t *testing.T) {
	m, sound, store := newTestManager(t)

	m.AddNote(notes.LowA)
	m.AddNote(notes.D)

	snap := m.Snapshot()
	if !snap.Tune.Equal(notes.Sequence{notes.LowA, notes.D}) {
		t.Fatalf("tune = %v", snap.Tune)
	}
	if got := sound.played(); len(got) != 2 || got[0] != notes.LowA || got[1] != notes.D {
		t.Fatalf("played = %v", got)
	}
	if got := store.LoadTune(); !got.Equal(snap.Tune) {
		t.Fatalf("stored tune = %v", got)
	}
}

func TestPlayNoteLeavesTuneAlone(t *testing.T) {
	m, sound, _ := newTestManager(t)
	m.PlayNote(notes.HighG)
	if len(m.Snapshot().Tune) != 0 {
		t.Fatalf("PlayNote changed the tune")
	}
	if got := sound.played(); len(got) != 1 || got[0] != notes.HighG {
		t.Fatalf("played = %v", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	m, _, store := newTestManager(t)
	for _, s := range []notes.Symbol{notes.B, notes.C, notes.D} {
		m.AddNote(s)
	}

	m.RemoveAt(1)
	if got := m.Snapshot().Tune; !got.Equal(notes.Sequence{notes.B, notes.D}) {
		t.Fatalf("after RemoveAt(1) = %v", got)
	}
	m.RemoveAt(7)
	m.DeleteLast()
	if got := m.Snapshot().Tune; !got.Equal(notes.Sequence{notes.B}) {
		t.Fatalf("after DeleteLast = %v", got)
	}
	m.Clear()
	if got := store.LoadTune(); len(got) != 0 {
		t.Fatalf("stored tune after Clear = %v", got)
	}
	m.DeleteLast()
}

func TestEditingResetsCursor(t *testing.T) {
	m, sound, _ := newTestManager(t)
	m.AddNote(notes.E)
	m.AddNote(notes.F)

	m.Step()
	m.Step()
	if c := m.Snapshot().Cursor; c != 1 {
		t.Fatalf("cursor = %d, want 1", c)
	}
	m.AddNote(notes.HighA)
	if c := m.Snapshot().Cursor; c != Idle {
		t.Fatalf("cursor after edit = %d, want Idle", c)
	}
	m.Step()
	played := sound.played()
	if played[len(played)-1] != notes.E {
		t.Fatalf("step after edit played %v, want first note", played[len(played)-1])
	}
}

func TestSaveTuneNeedsNameAndNotes(t *testing.T) {
	m, _, _ := newTestManager(t)

	if m.SaveTune() {
		t.Fatal("saved without a name")
	}
	m.SetName("Scotland the Brave")
	if m.SaveTune() {
		t.Fatal("saved without notes")
	}
	if len(m.Snapshot().Saved) != 0 {
		t.Fatal("refused save still added an entry")
	}
}

func TestSaveTune(t *testing.T) {
	m, _, store := newTestManager(t)
	m.AddNote(notes.LowG)
	m.AddNote(notes.HighA)
	m.SetName("Brave")

	if !m.SaveTune() {
		t.Fatalf("SaveTune refused: %q", m.Snapshot().Status)
	}
	snap := m.Snapshot()
	if snap.Name != "" {
		t.Errorf("name not cleared: %q", snap.Name)
	}
	if snap.Status != `Tune "Brave" saved!` {
		t.Errorf("status = %q", snap.Status)
	}
	if !snap.Tune.Equal(notes.Sequence{notes.LowG, notes.HighA}) {
		t.Errorf("current tune changed: %v", snap.Tune)
	}
	saved := store.LoadSaved()
	if len(saved) != 1 || saved[0].Name != "Brave" || !saved[0].SavedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("stored saved tunes = %+v", saved)
	}
	if store.LoadName() != "" {
		t.Errorf("stored name = %q", store.LoadName())
	}

	// the saved copy is independent of later edits
	m.AddNote(notes.C)
	if got := m.Snapshot().Saved[0].Notes; len(got) != 2 {
		t.Errorf("saved entry mutated: %v", got)
	}
}

func TestSelectAndDeleteSaved(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.ImportSaved([]SavedTune{
		{Tune: tune.Tune{Name: "First", Notes: notes.Sequence{notes.B}}},
		{Tune: tune.Tune{Name: "Second", Notes: notes.Sequence{notes.C, notes.D}}},
	})

	m.SelectSaved(1)
	snap := m.Snapshot()
	if snap.Name != "Second" || !snap.Tune.Equal(notes.Sequence{notes.C, notes.D}) {
		t.Fatalf("after select: name=%q tune=%v", snap.Name, snap.Tune)
	}

	m.DeleteSaved(0)
	m.DeleteSaved(5)
	snap = m.Snapshot()
	if len(snap.Saved) != 1 || snap.Saved[0].Name != "Second" {
		t.Fatalf("saved after delete = %+v", snap.Saved)
	}
	if !snap.Tune.Equal(notes.Sequence{notes.C, notes.D}) {
		t.Fatalf("deleting a saved tune changed the current one: %v", snap.Tune)
	}
}

func TestManagerRestoresSession(t *testing.T) {
	dir := t.TempDir()
	store, _ := OpenStore(dir)
	store.SaveTune(notes.Sequence{notes.F, notes.HighG})
	store.SaveName("Restored")

	m := NewManager(nil, store, Options{})
	defer m.Close()
	snap := m.Snapshot()
	if snap.Name != "Restored" || !snap.Tune.Equal(notes.Sequence{notes.F, notes.HighG}) || snap.Cursor != Idle {
		t.Fatalf("restored state = %+v", snap)
	}
}

func TestToggleDrone(t *testing.T) {
	m, sound, _ := newTestManager(t)
	m.ToggleDrone()
	if !m.Snapshot().Drone {
		t.Fatal("drone not on")
	}
	m.ToggleDrone()
	if m.Snapshot().Drone {
		t.Fatal("drone not off")
	}
	want := []droneCall{{true, notes.DroneFrequency}, {false, notes.DroneFrequency}}
	if len(sound.drones) != 2 || sound.drones[0] != want[0] || sound.drones[1] != want[1] {
		t.Fatalf("drone calls = %+v", sound.drones)
	}
}

func TestToggleDroneWithoutAudio(t *testing.T) {
	m, sound, _ := newTestManager(t)
	sound.noAudio = true

	m.ToggleDrone()
	snap := m.Snapshot()
	if snap.Drone {
		t.Fatal("drone shown as on although it never started")
	}
	if snap.Status == "" {
		t.Error("no status for a drone that failed to start")
	}

	sound.mu.Lock()
	sound.noAudio = false
	sound.mu.Unlock()
	m.ToggleDrone()
	if !m.Snapshot().Drone {
		t.Fatal("second toggle should start the drone")
	}
}

func TestConcurrentEditsKeepEveryNote(t *testing.T) {
	m, _, store := newTestManager(t)
	const writers = 64

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			m.AddNote(notes.All[i%len(notes.All)])
		}(i)
	}
	close(start)
	wg.Wait()

	tuneNow := m.Snapshot().Tune
	if len(tuneNow) != writers {
		t.Fatalf("tune has %d notes after %d concurrent adds", len(tuneNow), writers)
	}
	if got := m.Player().Sequence(); !got.Equal(tuneNow) {
		t.Errorf("player sequence %v differs from tune %v", got, tuneNow)
	}
	if got := store.LoadTune(); !got.Equal(tuneNow) {
		t.Errorf("stored tune %v differs from tune %v", got, tuneNow)
	}

	// removals race the same way
	for i := 0; i < writers/2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.DeleteLast()
		}()
	}
	wg.Wait()
	if n := len(m.Snapshot().Tune); n != writers/2 {
		t.Fatalf("tune has %d notes after removals, want %d", n, writers/2)
	}
}

func TestShareLinkRoundTrip(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.AddNote(notes.D)
	m.AddNote(notes.HighA)
	m.SetName("Jig")

	link, err := m.ShareLink()
	if err != nil {
		t.Fatalf("ShareLink: %v", err)
	}
	if link != "https://pipes.example/?name=Jig&tune=gl" {
		t.Fatalf("link = %q", link)
	}

	other, _, _ := newTestManager(t)
	if !other.LoadShared(link) {
		t.Fatal("LoadShared refused a valid link")
	}
	snap := other.Snapshot()
	if snap.Name != "Jig" || !snap.Tune.Equal(notes.Sequence{notes.D, notes.HighA}) {
		t.Fatalf("loaded = %+v", snap)
	}
}

func TestLoadSharedWithoutTune(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.AddNote(notes.B)
	if m.LoadShared("https://pipes.example/?name=Nothing") {
		t.Fatal("LoadShared accepted a link with no tune")
	}
	if snap := m.Snapshot(); snap.Name != "" || len(snap.Tune) != 1 {
		t.Fatalf("state changed: %+v", snap)
	}
}

func TestCopyShareLink(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("STY", "")
	m, _, _ := newTestManager(t)
	var buf bytes.Buffer
	m.opts.Clipboard = &buf
	m.AddNote(notes.C)

	if !m.CopyShareLink() {
		t.Fatal("CopyShareLink failed")
	}
	if got := m.Snapshot().Status; got != "Share link copied to clipboard!" {
		t.Errorf("status = %q", got)
	}
	if !strings.HasPrefix(buf.String(), "\x1b]52;") {
		t.Errorf("clipboard output = %q", buf.String())
	}

	m.opts.Clipboard = nil
	if m.CopyShareLink() {
		t.Fatal("copy without a clipboard reported success")
	}
	if got := m.Snapshot().Status; got != "Failed to copy link. Please try again." {
		t.Errorf("status = %q", got)
	}
}

// fakeKeyboard is a controller whose events the test feeds directly
type fakeKeyboard struct {
	events chan midi.NoteEvent
}

func (k *fakeKeyboard) ID() string                        { return "fake" }
func (k *fakeKeyboard) Type() midi.ControllerType         { return midi.ControllerKeyboard }
func (k *fakeKeyboard) NoteEvents() <-chan midi.NoteEvent { return k.events }
func (k *fakeKeyboard) Close() error                      { close(k.events); return nil }

func TestMIDIInputAddsNotes(t *testing.T) {
	m, _, _ := newTestManager(t)
	kb := &fakeKeyboard{events: make(chan midi.NoteEvent)}
	m.SetMIDIInput(kb)

	kb.events <- midi.NoteEvent{Note: midi.NoteFor(notes.E), Velocity: 100}

	deadline := time.After(2 * time.Second)
	for {
		if got := m.Snapshot().Tune; got.Equal(notes.Sequence{notes.E}) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("tune = %v, want [E]", m.Snapshot().Tune)
		case <-m.UpdateChan:
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.SetMIDIInput(nil)
}
