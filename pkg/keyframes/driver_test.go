package keyframes

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// spinSamples is a steady Z spin of 1.5 rad per frame whose last two keys
// were stored wrapped into (−π, π].
func spinSamples() []Sample {
	zs := []float64{0, 1.5, 3.0, 4.5 - 2*math.Pi, 6.0 - 2*math.Pi}
	out := make([]Sample, len(zs))
	for i, z := range zs {
		out[i] = Sample{Frame: float64(i + 1), Triple: rotation.NewAngleTriple(0, 0, z, rotation.OrderXYZ)}
	}
	return out
}

func correctedZ(cs []Correction) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Corrected.Z
	}
	return out
}

func TestPlan_Forward(t *testing.T) {
	corrections, err := Plan(spinSamples(), DefaultConfig())
	require.NoError(t, err)

	want := []float64{1.5, 3.0, 4.5, 6.0}
	if diff := cmp.Diff(want, correctedZ(corrections), approx); diff != "" {
		t.Errorf("forward Z mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{2, 3, 4, 5}, []float64{
		corrections[0].Frame, corrections[1].Frame, corrections[2].Frame, corrections[3].Frame,
	})
}

func TestPlan_Backward(t *testing.T) {
	cfg := Config{Method: eulerfilter.Unwrap, Direction: Backward}
	corrections, err := Plan(spinSamples(), cfg)
	require.NoError(t, err)

	// Anchored on the last key, so the path lands one turn lower.
	want := []float64{4.5 - 2*math.Pi, 3.0 - 2*math.Pi, 1.5 - 2*math.Pi, -2 * math.Pi}
	if diff := cmp.Diff(want, correctedZ(corrections), approx); diff != "" {
		t.Errorf("backward Z mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1.0, corrections[len(corrections)-1].Frame)
}

func TestPlan_FirstToLastPreservesRevolutions(t *testing.T) {
	samples := []Sample{
		{Frame: 0, Triple: rotation.NewAngleTriple(0, 0, -4*math.Pi, rotation.OrderXYZ)},
		{Frame: 10, Triple: rotation.NewAngleTriple(0, 0, 0.1, rotation.OrderXYZ)},
		{Frame: 20, Triple: rotation.NewAngleTriple(0, 0, 0.2, rotation.OrderXYZ)},
	}

	corrections, err := Plan(samples, Config{Method: eulerfilter.Unwrap, Direction: FirstToLast})
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, 20.0, corrections[0].Frame)
	assert.InDelta(t, -4*math.Pi+0.2, corrections[0].Corrected.Z, 1e-9)

	corrections, err = Plan(samples, Config{Method: eulerfilter.Unwrap, Direction: LastToFirst})
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, 0.0, corrections[0].Frame)
	assert.InDelta(t, 0, corrections[0].Corrected.Z, 1e-9)
}

func TestPlan_ChainContinuity(t *testing.T) {
	// Random walk in small steps, stored in principal range.
	var samples []Sample
	x, y, z := 0.0, 0.0, 0.0
	for i := 0; i < 200; i++ {
		x += 0.05
		y += 0.02 * math.Sin(float64(i)/10)
		z -= 0.09
		tr, err := rotation.Canonicalize(rotation.NewAngleTriple(x, y, z, rotation.OrderZXY))
		require.NoError(t, err)
		samples = append(samples, Sample{Frame: float64(i), Triple: tr})
	}

	for _, m := range []eulerfilter.FilterMethod{eulerfilter.Unwrap, eulerfilter.ReseedThenUnwrap} {
		corrections, err := Plan(samples, Config{Method: m, Direction: Forward})
		require.NoError(t, err)

		prev := samples[0].Triple
		for _, c := range corrections {
			for axis := rotation.AxisX; axis <= rotation.AxisZ; axis++ {
				require.LessOrEqual(t, math.Abs(c.Corrected.Axis(axis)-prev.Axis(axis)), math.Pi+1e-9,
					"%s frame %g axis %d", m, c.Frame, axis)
			}
			prev = c.Corrected
		}
	}
}

func TestPlan_Errors(t *testing.T) {
	_, err := Plan(spinSamples()[:1], DefaultConfig())
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	_, err = Plan(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Plan(spinSamples(), Config{Method: eulerfilter.FilterMethod(9)})
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	_, err = Plan(spinSamples(), Config{Direction: Direction(9)})
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	mixed := spinSamples()
	mixed[3].Triple.Order = rotation.OrderZYX
	_, err = Plan(mixed, DefaultConfig())
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)
	assert.ErrorContains(t, err, "frame 4")
}

func TestRun_WritesBack(t *testing.T) {
	action := testAction()
	g, err := GroupFromAction(action, "rotation_euler")
	require.NoError(t, err)

	corrections, err := Run(g, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.True(t, corrections[0].Changed(1e-9))

	z := action.Curves[1].Keyframes[1]
	assert.InDelta(t, -3.0+2*math.Pi, z.Value, 1e-9)
	assert.InDelta(t, -3.1+2*math.Pi, z.HandleLeft, 1e-9)
	assert.InDelta(t, -2.9+2*math.Pi, z.HandleRight, 1e-9)
}

func TestRun_NothingAppliedOnError(t *testing.T) {
	g := NewGroup("head", rotation.OrderXYZ)
	require.NoError(t, g.Add(1, rotation.NewAngleTriple(0, 0, 3, rotation.OrderXYZ)))

	_, err := Run(g, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoSamples)

	s, _ := g.Sample(1)
	assert.Equal(t, 3.0, s.Triple.Z)
}

func TestRunAction(t *testing.T) {
	action := testAction()
	action.Curves = append(action.Curves, &Curve{
		DataPath: "pose.bones[\"neck\"].rotation_euler", ArrayIndex: 1,
		Keyframes: []Keyframe{{Frame: 4, Value: 1}},
	})

	out, err := RunAction(action, DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "rotation_euler")
	assert.NotContains(t, out, "location")
	assert.Equal(t, -3.0, action.Curves[2].Keyframes[1].Value, "location is not a rotation")
	assert.NotContains(t, out, "pose.bones[\"neck\"].rotation_euler", "single key is skipped")
	assert.InDelta(t, -3.0+2*math.Pi, action.Curves[1].Keyframes[1].Value, 1e-9)
}

func TestRunAction_NothingAppliedOnError(t *testing.T) {
	action := testAction()
	action.Curves = append(action.Curves, &Curve{
		DataPath: `pose.bones["neck"].rotation_euler`, ArrayIndex: 0,
		Keyframes: []Keyframe{{Frame: 1, Value: 0}, {Frame: 2, Value: math.NaN()}},
	})

	_, err := RunAction(action, DefaultConfig())
	require.ErrorIs(t, err, rotation.ErrInvalidInput)

	z := action.Curves[1].Keyframes[1]
	assert.Equal(t, -3.0, z.Value, "earlier path is not written")
	assert.Equal(t, -3.1, z.HandleLeft)
	assert.Equal(t, -2.9, z.HandleRight)
}

func TestIsRotationPath(t *testing.T) {
	assert.True(t, IsRotationPath("rotation_euler"))
	assert.True(t, IsRotationPath(`pose.bones["neck"].rotation_euler`))
	assert.True(t, IsRotationPath(HeadDataPath))
	assert.False(t, IsRotationPath("location"))
	assert.False(t, IsRotationPath("rotation_quaternion"))
}

func TestDirection_Parse(t *testing.T) {
	tests := map[string]Direction{
		"forward":       Forward,
		"BACKWARD":      Backward,
		"first_to_last": FirstToLast,
		"last-to-first": LastToFirst,
	}
	for in, want := range tests {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	assert.ErrorIs(t, err, rotation.ErrInvalidInput)

	data, err := json.Marshal(Config{Method: eulerfilter.QuaternionReseed, Direction: LastToFirst})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"QUAD","direction":"last-to-first"}`, string(data))

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"method":"unwrap","direction":"backward"}`), &cfg))
	assert.Equal(t, Config{Method: eulerfilter.Unwrap, Direction: Backward}, cfg)
}
