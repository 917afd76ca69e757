package keyframes

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// Group holds the rotation samples of a single data path, one per frame.
//
// Groups built from an Action keep pointers to its curves, so Apply writes
// corrections straight back into the action.
type Group struct {
	dataPath string
	order    rotation.AxisOrder
	curves   []*Curve
	samples  map[float64]*Sample
}

// NewGroup returns an empty group. An empty dataPath is claimed by the first
// curve offered to TryAdd.
func NewGroup(dataPath string, order rotation.AxisOrder) *Group {
	return &Group{
		dataPath: dataPath,
		order:    order,
		samples:  make(map[float64]*Sample),
	}
}

// GroupFromAction collects the keys of dataPath from action. An empty
// dataPath picks the first curve's path. When any key in the action is
// selected, only selected keys are grouped.
func GroupFromAction(action *Action, dataPath string) (*Group, error) {
	if action == nil || len(action.Curves) == 0 {
		return nil, ErrNoRotationCurves
	}
	if !action.Order.Valid() {
		return nil, fmt.Errorf("%w: action %q has unknown axis order", rotation.ErrInvalidInput, action.Name)
	}

	selectedOnly := action.HasSelection()
	g := NewGroup(dataPath, action.Order)
	for _, curve := range action.Curves {
		for _, key := range curve.Keyframes {
			if selectedOnly && !key.Selected {
				continue
			}
			g.TryAdd(curve, key)
		}
	}

	if len(g.samples) == 0 {
		return nil, fmt.Errorf("%w: data path %q", ErrNoRotationCurves, g.dataPath)
	}
	return g, nil
}

// DataPath returns the path this group collects.
func (g *Group) DataPath() string { return g.dataPath }

// Order returns the axis order shared by every sample.
func (g *Group) Order() rotation.AxisOrder { return g.order }

// Len returns the number of samples.
func (g *Group) Len() int { return len(g.samples) }

// TryAdd records key's value on the axis given by curve.ArrayIndex. Curves of
// another data path, or with an index outside 0..2, are ignored and false is
// returned. Axes never keyed at a frame stay 0.
func (g *Group) TryAdd(curve *Curve, key Keyframe) bool {
	if curve == nil || curve.ArrayIndex < rotation.AxisX || curve.ArrayIndex > rotation.AxisZ {
		return false
	}
	if g.dataPath == "" {
		g.dataPath = curve.DataPath
	}
	if curve.DataPath != g.dataPath {
		return false
	}

	g.trackCurve(curve)

	s, ok := g.samples[key.Frame]
	if !ok {
		s = &Sample{Frame: key.Frame, Triple: rotation.AngleTriple{Order: g.order}}
		g.samples[key.Frame] = s
	}
	s.Triple = s.Triple.WithAxis(curve.ArrayIndex, key.Value)
	return true
}

// Add stores a whole triple at frame, replacing any sample already there.
// Groups fed this way have no curves, so Apply only updates the samples.
func (g *Group) Add(frame float64, t rotation.AngleTriple) error {
	if t.Order != g.order {
		return fmt.Errorf("%w: axis orders must match (%s != %s)", rotation.ErrInvalidInput, g.order, t.Order)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("frame %g: %w", frame, err)
	}
	g.samples[frame] = &Sample{Frame: frame, Triple: t}
	return nil
}

// Samples returns a copy of the samples in ascending frame order.
func (g *Group) Samples() []Sample {
	out := make([]Sample, 0, len(g.samples))
	for _, s := range g.samples {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}

// Sample returns the sample at frame.
func (g *Group) Sample(frame float64) (Sample, bool) {
	s, ok := g.samples[frame]
	if !ok {
		return Sample{}, false
	}
	return *s, true
}

// Apply moves the sample at frame to corrected. On every curve of the group
// the key at that frame, and both its handles, shift by the per-axis offset.
func (g *Group) Apply(frame float64, corrected rotation.AngleTriple) error {
	s, ok := g.samples[frame]
	if !ok {
		return fmt.Errorf("%w: %g", ErrSampleNotFound, frame)
	}
	if corrected.Order != g.order {
		return fmt.Errorf("%w: axis orders must match (%s != %s)", rotation.ErrInvalidInput, g.order, corrected.Order)
	}

	for _, curve := range g.curves {
		offset := corrected.Axis(curve.ArrayIndex) - s.Triple.Axis(curve.ArrayIndex)
		for i := range curve.Keyframes {
			key := &curve.Keyframes[i]
			if key.Frame != frame {
				continue
			}
			key.Value += offset
			key.HandleLeft += offset
			key.HandleRight += offset
		}
	}

	s.Triple = corrected
	return nil
}

// SampleSet returns the group's samples in their file form.
func (g *Group) SampleSet(name string) SampleSet {
	return SampleSet{
		Name:     name,
		DataPath: g.dataPath,
		Order:    g.order,
		Samples:  g.Samples(),
	}
}

func (g *Group) trackCurve(curve *Curve) {
	for _, c := range g.curves {
		if c == curve {
			return
		}
	}
	g.curves = append(g.curves, curve)
}
