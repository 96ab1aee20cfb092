package sequencer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pipedream/debug"
	"pipedream/notes"
	"pipedream/tune"
)

// Storage keys, one JSON file each
const (
	KeyTune       = "pipeTune"
	KeySongName   = "songName"
	KeySavedTunes = "savedTunes"
)

// SavedTune is an entry in the saved-tunes drawer
type SavedTune struct {
	tune.Tune `yaml:",inline"`
	SavedAt   time.Time `json:"savedAt,omitzero" yaml:"savedAt,omitempty"`
}

// DisplayName is the name shown in lists; unnamed tunes are numbered by
// their position (idx is zero-based)
func (s SavedTune) DisplayName(idx int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Untitled Tune %d", idx+1)
}

// Store keeps the current tune, its name and the saved tunes as JSON files
// in a directory
type Store struct {
	dir string
}

// StoreDir returns the default storage directory
func StoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pipedream", "storage"), nil
}

// OpenStore uses dir for storage, creating it if needed
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// LoadTune returns the stored current tune, or an empty one
func (s *Store) LoadTune() notes.Sequence {
	return load(s, KeyTune, notes.Sequence{})
}

// SaveTune stores the current tune
func (s *Store) SaveTune(seq notes.Sequence) error {
	if seq == nil {
		seq = notes.Sequence{}
	}
	return s.set(KeyTune, seq)
}

// LoadName returns the stored song name
func (s *Store) LoadName() string {
	return load(s, KeySongName, "")
}

// SaveName stores the song name
func (s *Store) SaveName(name string) error {
	return s.set(KeySongName, name)
}

// LoadSaved returns the saved tunes
func (s *Store) LoadSaved() []SavedTune {
	return load(s, KeySavedTunes, []SavedTune{})
}

// SaveSaved replaces the saved tunes
func (s *Store) SaveSaved(tunes []SavedTune) error {
	if tunes == nil {
		tunes = []SavedTune{}
	}
	return s.set(KeySavedTunes, tunes)
}

// load reads key into a T. A missing key gives def; a corrupt one is logged,
// removed and also gives def.
func load[T any](s *Store, key string, def T) T {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debug.Log("store", "read %s: %v", key, err)
		}
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		debug.Log("store", "corrupt %s, clearing: %v", key, err)
		if err := os.Remove(s.path(key)); err != nil {
			debug.Log("store", "remove %s: %v", key, err)
		}
		return def
	}
	return v
}

// set writes key atomically (temp file + rename)
func (s *Store) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
