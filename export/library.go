package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pipedream/sequencer"
)

// ReadLibrary parses a list of saved tunes, as JSON or as YAML
func ReadLibrary(r io.Reader) ([]sequencer.SavedTune, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var tunes []sequencer.SavedTune
	if errJSON := json.Unmarshal(data, &tunes); errJSON != nil {
		tunes = nil
		if errYaml := yaml.Unmarshal(data, &tunes); errYaml != nil {
			return nil, fmt.Errorf("the library could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	for i, t := range tunes {
		if len(t.Notes) == 0 {
			return nil, fmt.Errorf("tune %d (%s) has no notes", i+1, t.DisplayName(i))
		}
	}
	return tunes, nil
}

// ImportFile reads a library file
func ImportFile(path string) ([]sequencer.SavedTune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tunes, err := ReadLibrary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tunes, nil
}

// IsYAML reports whether path names a YAML file
func IsYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// WriteLibrary writes tunes as YAML or as indented JSON
func WriteLibrary(w io.Writer, tunes []sequencer.SavedTune, asYAML bool) error {
	if tunes == nil {
		tunes = []sequencer.SavedTune{}
	}
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tunes); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tunes); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ExportFile writes tunes to path; the extension picks the format
func ExportFile(path string, tunes []sequencer.SavedTune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLibrary(f, tunes, IsYAML(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
