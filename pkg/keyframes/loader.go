package keyframes

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// Format identifies a keyframe JSON document.
type Format int

const (
	FormatUnknown Format = iota
	FormatAction
	FormatRecording
	FormatSampleSet
)

func (f Format) String() string {
	switch f {
	case FormatAction:
		return "action"
	case FormatRecording:
		return "recording"
	case FormatSampleSet:
		return "samples"
	default:
		return "unknown"
	}
}

// SampleSet is the file form of a filtered group.
type SampleSet struct {
	Name     string             `json:"name,omitempty"`
	DataPath string             `json:"data_path"`
	Order    rotation.AxisOrder `json:"order"`
	Samples  []Sample           `json:"samples"`
}

// Group rebuilds a group from the set. Every sample must carry the set's order.
func (s SampleSet) Group() (*Group, error) {
	g := NewGroup(s.DataPath, s.Order)
	for _, sample := range s.Samples {
		if err := g.Add(sample.Frame, sample.Triple); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// DetectFormat looks at the top-level keys of a JSON document.
func DetectFormat(data []byte) Format {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return FormatUnknown
	}
	switch {
	case keys["set_target_data"] != nil:
		return FormatRecording
	case keys["curves"] != nil:
		return FormatAction
	case keys["samples"] != nil:
		return FormatSampleSet
	default:
		return FormatUnknown
	}
}

// LoadAction reads an action JSON file. A missing name is taken from the
// file name.
func LoadAction(path string) (*Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action file: %w", err)
	}
	return ParseAction(nameFromPath(path), data)
}

// LoadActionsFromDirectory loads every *.json action in dir.
func LoadActionsFromDirectory(dir string) ([]*Action, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list action files: %w", err)
	}

	var actions []*Action
	for _, file := range files {
		action, err := LoadAction(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// ParseAction decodes and validates an action document.
func ParseAction(name string, data []byte) (*Action, error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, name, err)
	}
	if action.Name == "" {
		action.Name = name
	}

	if len(action.Curves) == 0 {
		return nil, fmt.Errorf("%w: action %q has no curves", ErrInvalidFile, action.Name)
	}
	for _, c := range action.Curves {
		if c == nil {
			return nil, fmt.Errorf("%w: action %q has a null curve", ErrInvalidFile, action.Name)
		}
		for _, k := range c.Keyframes {
			if !allFinite(k.Frame, k.Value, k.HandleLeft, k.HandleRight) {
				return nil, fmt.Errorf("%w: %s[%d] frame %g is not finite", ErrInvalidFile, c.DataPath, c.ArrayIndex, k.Frame)
			}
		}
	}
	return &action, nil
}

// LoadSampleSet reads a sample-set JSON file.
func LoadSampleSet(path string) (*SampleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample file: %w", err)
	}

	var set SampleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
	}
	if set.Name == "" {
		set.Name = nameFromPath(path)
	}
	return &set, nil
}

// SaveJSON writes v as indented JSON.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func nameFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
