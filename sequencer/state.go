package sequencer

import (
	"pipedream/notes"
)

// State is everything the UI renders. Manager owns the live copy and hands
// out snapshots.
type State struct {
	Tune   notes.Sequence `json:"tune"`
	Name   string         `json:"name"`
	Saved  []SavedTune    `json:"saved"`
	Drone  bool           `json:"-"` // runtime only
	Cursor int            `json:"-"` // runtime only, Idle when not stepping

	// Status is a one-line feedback message ("Tune saved", "Link copied")
	Status string `json:"-"`
}

// NewState creates an empty state
func NewState() *State {
	return &State{
		Tune:   notes.Sequence{},
		Saved:  []SavedTune{},
		Cursor: Idle,
	}
}

// Clone returns a deep copy that is safe to read without the manager lock
func (s *State) Clone() State {
	out := *s
	out.Tune = s.Tune.Clone()
	out.Saved = make([]SavedTune, len(s.Saved))
	for i, t := range s.Saved {
		out.Saved[i] = t
		out.Saved[i].Notes = t.Notes.Clone()
	}
	return out
}

// CanSave reports whether the current tune may be added to the saved list:
// it needs a name and at least one note
func (s *State) CanSave() bool {
	return s.Name != "" && len(s.Tune) > 0
}
