package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AudioConfig controls the tone engine
type AudioConfig struct {
	SampleRate        int     `json:"sampleRate"`
	NoteDuration      float64 `json:"noteDuration"` // seconds
	DroneFrequency    float64 `json:"droneFrequency"`
	InactivityTimeout float64 `json:"inactivityTimeout"` // seconds before the play cursor resets
}

// ShareConfig controls share links
type ShareConfig struct {
	BaseURL string `json:"baseURL"`
}

// MIDIConfig selects the keyboard input and the thru output
type MIDIConfig struct {
	InputPort   string `json:"inputPort,omitempty"`  // substring match, empty = any keyboard
	OutputPort  string `json:"outputPort,omitempty"` // substring match, empty = no thru
	Channel     int    `json:"channel,omitempty"`    // thru channel, 0-15
	AutoConnect bool   `json:"autoConnect"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette     string `json:"palette,omitempty"` // path to a GIMP .gpl file, empty = built in
	DrawerWidth int    `json:"drawerWidth,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio AudioConfig `json:"audio"`
	Share ShareConfig `json:"share"`
	MIDI  MIDIConfig  `json:"midi"`
	UI    UIConfig    `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:        44100,
			NoteDuration:      2,
			DroneFrequency:    240,
			InactivityTimeout: 10,
		},
		Share: ShareConfig{
			BaseURL: "https://pipedream.app/",
		},
		MIDI: MIDIConfig{
			AutoConnect: true,
		},
		UI: UIConfig{
			DrawerWidth: 32,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pipedream"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the engine cannot use
func (c *Config) Validate() error {
	switch {
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("audio.sampleRate must be positive, got %d", c.Audio.SampleRate)
	case c.Audio.NoteDuration <= 0:
		return fmt.Errorf("audio.noteDuration must be positive, got %g", c.Audio.NoteDuration)
	case c.Audio.DroneFrequency <= 0:
		return fmt.Errorf("audio.droneFrequency must be positive, got %g", c.Audio.DroneFrequency)
	case c.Audio.InactivityTimeout <= 0:
		return fmt.Errorf("audio.inactivityTimeout must be positive, got %g", c.Audio.InactivityTimeout)
	case c.MIDI.Channel < 0 || c.MIDI.Channel > 15:
		return fmt.Errorf("midi.channel must be 0-15, got %d", c.MIDI.Channel)
	}
	return nil
}

// NoteDuration returns the note length as a duration
func (c *Config) NoteDuration() time.Duration {
	return seconds(c.Audio.NoteDuration)
}

// Inactivity returns the play cursor timeout as a duration
func (c *Config) Inactivity() time.Duration {
	return seconds(c.Audio.InactivityTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
