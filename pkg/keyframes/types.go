// Package keyframes groups animated rotation curves into ordered Euler
// samples, runs the continuity filter across them, and writes the
// corrections back onto the curves.
//
// An Action mirrors what a DCC tool stores: one Curve per animated scalar,
// addressed by data path and array index (0/1/2 for X/Y/Z). A Group collects
// the keys of a single data path into per-frame AngleTriples.
package keyframes

import (
	"math"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// Keyframe is one key on a scalar curve. Handles are the y-values of the
// left and right bezier handles.
type Keyframe struct {
	Frame       float64 `json:"frame"`
	Value       float64 `json:"value"`
	HandleLeft  float64 `json:"handle_left"`
	HandleRight float64 `json:"handle_right"`

	// Selected marks keys picked by the user. When no key of an action is
	// selected, every key is used.
	Selected bool `json:"selected,omitempty"`
}

// Curve is one animated scalar channel.
type Curve struct {
	DataPath   string     `json:"data_path"`
	ArrayIndex int        `json:"array_index"`
	Keyframes  []Keyframe `json:"keyframes"`
}

// Action is a named set of curves sharing one Euler axis order.
type Action struct {
	Name   string             `json:"name"`
	Order  rotation.AxisOrder `json:"order"`
	Curves []*Curve           `json:"curves"`
}

// Sample is a frame position and the rotation at that frame.
type Sample struct {
	Frame  float64              `json:"frame"`
	Triple rotation.AngleTriple `json:"rotation"`
}

// Correction records what the filter did to one sample.
type Correction struct {
	Frame     float64              `json:"frame"`
	Original  rotation.AngleTriple `json:"original"`
	Corrected rotation.AngleTriple `json:"corrected"`
}

// Offset returns corrected − original for each axis.
func (c Correction) Offset() [3]float64 {
	return [3]float64{
		c.Corrected.X - c.Original.X,
		c.Corrected.Y - c.Original.Y,
		c.Corrected.Z - c.Original.Z,
	}
}

// Changed reports whether any axis moved by more than tol.
func (c Correction) Changed(tol float64) bool {
	for _, d := range c.Offset() {
		if math.Abs(d) > tol {
			return true
		}
	}
	return false
}

// HasSelection reports whether any key of the action is selected.
func (a *Action) HasSelection() bool {
	for _, c := range a.Curves {
		for _, k := range c.Keyframes {
			if k.Selected {
				return true
			}
		}
	}
	return false
}

// DataPaths returns the distinct data paths in curve order.
func (a *Action) DataPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range a.Curves {
		if !seen[c.DataPath] {
			seen[c.DataPath] = true
			paths = append(paths, c.DataPath)
		}
	}
	return paths
}
