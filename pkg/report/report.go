// Package report renders before/after rotation curves of a filter run as an
// interactive HTML page (go-echarts) or a static PNG (gonum/plot).
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

var (
	// ErrUnsupportedFormat is returned by Save for extensions other than .html, .htm and .png.
	ErrUnsupportedFormat = errors.New("report: unsupported format")

	// ErrMismatchedTrack is returned when before and after samples do not line up.
	ErrMismatchedTrack = errors.New("report: before and after samples differ")
)

var axisNames = [3]string{"X", "Y", "Z"}

// Track is one data path's curves before and after filtering.
type Track struct {
	Name   string
	Frames []float64
	Before []rotation.AngleTriple
	After  []rotation.AngleTriple
}

// NewTrack pairs samples taken before and after a run. Both slices must hold
// the same frames in the same order, as Group.Samples returns them.
func NewTrack(name string, before, after []keyframes.Sample) (Track, error) {
	if len(before) != len(after) {
		return Track{}, fmt.Errorf("%w: %s has %d before and %d after", ErrMismatchedTrack, name, len(before), len(after))
	}

	t := Track{
		Name:   name,
		Frames: make([]float64, len(before)),
		Before: make([]rotation.AngleTriple, len(before)),
		After:  make([]rotation.AngleTriple, len(after)),
	}
	for i := range before {
		if before[i].Frame != after[i].Frame {
			return Track{}, fmt.Errorf("%w: %s frame %g != %g", ErrMismatchedTrack, name, before[i].Frame, after[i].Frame)
		}
		t.Frames[i] = before[i].Frame
		t.Before[i] = before[i].Triple
		t.After[i] = after[i].Triple
	}
	return t, nil
}

// Report is a titled set of tracks.
type Report struct {
	Title  string
	Tracks []Track
}

// Add appends a track.
func (r *Report) Add(t Track) {
	r.Tracks = append(r.Tracks, t)
}

// Save writes the report, choosing the format from the file extension.
func Save(path string, r Report) error {
	var render func(*os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		render = func(f *os.File) error { return WriteHTML(f, r) }
	case ".png":
		render = func(f *os.File) error { return WritePNG(f, r) }
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// degrees returns one axis of triples in degrees.
func degrees(ts []rotation.AngleTriple, axis int) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = rotation.Degrees(t.Axis(axis))
	}
	return out
}
