package keyframes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// testAction keys rotation_euler at frames 1 and 2, with a Z flip between
// them, plus a location curve that must never be touched.
func testAction() *Action {
	return &Action{
		Name:  "spin",
		Order: rotation.OrderXYZ,
		Curves: []*Curve{
			{DataPath: "rotation_euler", ArrayIndex: 0, Keyframes: []Keyframe{
				{Frame: 1, Value: 0.1, HandleLeft: 0.05, HandleRight: 0.15},
				{Frame: 2, Value: 0.1, HandleLeft: 0.05, HandleRight: 0.15},
			}},
			{DataPath: "rotation_euler", ArrayIndex: 2, Keyframes: []Keyframe{
				{Frame: 1, Value: 3.0, HandleLeft: 2.9, HandleRight: 3.1},
				{Frame: 2, Value: -3.0, HandleLeft: -3.1, HandleRight: -2.9},
			}},
			{DataPath: "location", ArrayIndex: 0, Keyframes: []Keyframe{
				{Frame: 1, Value: 5, HandleLeft: 5, HandleRight: 5},
				{Frame: 2, Value: -3.0, HandleLeft: -3.0, HandleRight: -3.0},
			}},
		},
	}
}

func TestGroup_TryAddIgnoresOtherDataPaths(t *testing.T) {
	action := testAction()
	g := NewGroup("", rotation.OrderXYZ)

	assert.True(t, g.TryAdd(action.Curves[0], action.Curves[0].Keyframes[0]))
	assert.Equal(t, "rotation_euler", g.DataPath(), "first curve claims the path")
	assert.False(t, g.TryAdd(action.Curves[2], action.Curves[2].Keyframes[0]))
	assert.False(t, g.TryAdd(&Curve{DataPath: "rotation_euler", ArrayIndex: 3}, Keyframe{Frame: 1}))
	assert.False(t, g.TryAdd(nil, Keyframe{}))

	s, ok := g.Sample(1)
	require.True(t, ok)
	assert.Equal(t, rotation.NewAngleTriple(0.1, 0, 0, rotation.OrderXYZ), s.Triple, "unkeyed axes stay 0")
}

func TestGroupFromAction(t *testing.T) {
	g, err := GroupFromAction(testAction(), "")
	require.NoError(t, err)

	assert.Equal(t, "rotation_euler", g.DataPath())
	assert.Equal(t, 2, g.Len())

	samples := g.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 1.0, samples[0].Frame)
	assert.Equal(t, rotation.NewAngleTriple(0.1, 0, 3.0, rotation.OrderXYZ), samples[0].Triple)
	assert.Equal(t, rotation.NewAngleTriple(0.1, 0, -3.0, rotation.OrderXYZ), samples[1].Triple)

	_, err = GroupFromAction(testAction(), "scale")
	assert.ErrorIs(t, err, ErrNoRotationCurves)

	_, err = GroupFromAction(&Action{Order: rotation.OrderXYZ}, "")
	assert.ErrorIs(t, err, ErrNoRotationCurves)
}

func TestGroupFromAction_SelectedOnly(t *testing.T) {
	action := testAction()
	action.Curves[1].Keyframes[1].Selected = true

	g, err := GroupFromAction(action, "rotation_euler")
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())

	s, ok := g.Sample(2)
	require.True(t, ok)
	assert.Equal(t, -3.0, s.Triple.Z)
}

func TestGroup_ApplyOffsetsValuesAndHandles(t *testing.T) {
	action := testAction()
	g, err := GroupFromAction(action, "rotation_euler")
	require.NoError(t, err)

	corrected := rotation.NewAngleTriple(0.1, 0, -3.0+2*math.Pi, rotation.OrderXYZ)
	require.NoError(t, g.Apply(2, corrected))

	z := action.Curves[1].Keyframes[1]
	assert.InDelta(t, -3.0+2*math.Pi, z.Value, 1e-12)
	assert.InDelta(t, -3.1+2*math.Pi, z.HandleLeft, 1e-12)
	assert.InDelta(t, -2.9+2*math.Pi, z.HandleRight, 1e-12)

	// Frame 1 and the X curve have zero offset.
	assert.Equal(t, Keyframe{Frame: 1, Value: 3.0, HandleLeft: 2.9, HandleRight: 3.1}, action.Curves[1].Keyframes[0])
	assert.Equal(t, Keyframe{Frame: 2, Value: 0.1, HandleLeft: 0.05, HandleRight: 0.15}, action.Curves[0].Keyframes[1])

	// Other data paths are untouched even when values coincide.
	assert.Equal(t, -3.0, action.Curves[2].Keyframes[1].Value)

	s, _ := g.Sample(2)
	assert.Equal(t, corrected, s.Triple)
}

func TestGroup_ApplyErrors(t *testing.T) {
	g, err := GroupFromAction(testAction(), "")
	require.NoError(t, err)

	err = g.Apply(7, rotation.NewAngleTriple(0, 0, 0, rotation.OrderXYZ))
	assert.ErrorIs(t, err, ErrSampleNotFound)

	err = g.Apply(1, rotation.NewAngleTriple(0, 0, 0, rotation.OrderZYX))
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)
}

func TestGroup_Add(t *testing.T) {
	g := NewGroup("head", rotation.OrderZYX)

	require.NoError(t, g.Add(3, rotation.NewAngleTriple(0, 0, 1, rotation.OrderZYX)))
	require.NoError(t, g.Add(1, rotation.NewAngleTriple(0, 0, 2, rotation.OrderZYX)))

	err := g.Add(2, rotation.NewAngleTriple(0, 0, 0, rotation.OrderXYZ))
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	err = g.Add(2, rotation.NewAngleTriple(math.NaN(), 0, 0, rotation.OrderZYX))
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	samples := g.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, []float64{1, 3}, []float64{samples[0].Frame, samples[1].Frame})

	set := g.SampleSet("take")
	assert.Equal(t, "head", set.DataPath)
	assert.Equal(t, rotation.OrderZYX, set.Order)

	back, err := set.Group()
	require.NoError(t, err)
	assert.Equal(t, samples, back.Samples())
}
