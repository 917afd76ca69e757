// Package gltfsource reads node rotation animation from glTF and GLB files
// and converts it into Euler keyframe actions.
package gltfsource

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// ErrNoRotationChannels is returned when a document animates no rotations.
var ErrNoRotationChannels = errors.New("gltf: no rotation channels")

// Options controls how glTF time and rotations map onto keyframes.
type Options struct {
	// Order is the Euler order rotations are decomposed into.
	Order rotation.AxisOrder

	// FrameRate converts sampler seconds into frames. Zero keeps seconds.
	FrameRate float64
}

// DefaultOptions returns XYZ at 24 fps.
func DefaultOptions() Options {
	return Options{
		Order:     rotation.OrderXYZ,
		FrameRate: 24,
	}
}

// Load opens a .gltf or .glb file, resolving external buffers relative to it.
func Load(path string, opts Options) ([]*keyframes.Action, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return FromDocument(doc, opts)
}

// Decode reads a glTF or GLB stream. Buffers must be embedded.
func Decode(r io.Reader, opts Options) ([]*keyframes.Action, error) {
	doc := gltf.NewDocument()
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode gltf: %w", err)
	}
	return FromDocument(doc, opts)
}

// FromDocument converts every animation with rotation channels into an
// action. Each animated node becomes one rotation_euler data path.
func FromDocument(doc *gltf.Document, opts Options) ([]*keyframes.Action, error) {
	if !opts.Order.Valid() {
		return nil, fmt.Errorf("%w: unknown axis order %d", rotation.ErrInvalidInput, int(opts.Order))
	}

	var actions []*keyframes.Action
	for i, anim := range doc.Animations {
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("animation%d", i)
		}

		action := &keyframes.Action{Name: name, Order: opts.Order}
		for _, channel := range anim.Channels {
			if channel.Target.Path != gltf.TRSRotation || channel.Target.Node == nil {
				continue
			}
			if channel.Sampler < 0 || channel.Sampler >= len(anim.Samplers) || anim.Samplers[channel.Sampler] == nil {
				return nil, fmt.Errorf("%s: sampler %d out of range", name, channel.Sampler)
			}

			curves, err := readChannel(doc, anim.Samplers[channel.Sampler], *channel.Target.Node, opts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			action.Curves = append(action.Curves, curves...)
		}

		if len(action.Curves) > 0 {
			actions = append(actions, action)
		}
	}

	if len(actions) == 0 {
		return nil, ErrNoRotationChannels
	}
	return actions, nil
}

// NodeDataPath returns the data path used for a node's rotation.
func NodeDataPath(name string) string {
	return fmt.Sprintf("nodes[%q].rotation_euler", name)
}

func readChannel(doc *gltf.Document, sampler *gltf.AnimationSampler, node int, opts Options) ([]*keyframes.Curve, error) {
	if node < 0 || node >= len(doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", node)
	}
	nodeName := doc.Nodes[node].Name
	if nodeName == "" {
		nodeName = fmt.Sprintf("node%d", node)
	}

	input, err := accessor(doc, sampler.Input)
	if err != nil {
		return nil, fmt.Errorf("node %s input: %w", nodeName, err)
	}
	id, err := modeler.ReadAccessor(doc, input, nil)
	if err != nil {
		return nil, fmt.Errorf("node %s input: %w", nodeName, err)
	}
	times, ok := id.([]float32)
	if !ok {
		return nil, fmt.Errorf("node %s: input accessor is %T, want []float32", nodeName, id)
	}

	output, err := accessor(doc, sampler.Output)
	if err != nil {
		return nil, fmt.Errorf("node %s output: %w", nodeName, err)
	}
	od, err := modeler.ReadAccessor(doc, output, nil)
	if err != nil {
		return nil, fmt.Errorf("node %s output: %w", nodeName, err)
	}
	quats, err := quaternions(od)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeName, err)
	}

	// Cubic spline samplers store in-tangent, value, out-tangent per key.
	stride, offset := 1, 0
	if sampler.Interpolation == gltf.InterpolationCubicSpline {
		stride, offset = 3, 1
	}
	if len(quats) != len(times)*stride {
		return nil, fmt.Errorf("node %s: %d keys but %d output values", nodeName, len(times), len(quats))
	}

	path := NodeDataPath(nodeName)
	curves := make([]*keyframes.Curve, 3)
	for axis := range curves {
		curves[axis] = &keyframes.Curve{DataPath: path, ArrayIndex: axis}
	}

	for i, t := range times {
		q := quats[i*stride+offset]
		o, err := rotation.OrientationFromQuaternion(q[3], q[0], q[1], q[2])
		if err != nil {
			return nil, fmt.Errorf("node %s key %d: %w", nodeName, i, err)
		}
		euler, err := rotation.ToAngleTriple(o, opts.Order)
		if err != nil {
			return nil, fmt.Errorf("node %s key %d: %w", nodeName, i, err)
		}

		frame := float64(t)
		if opts.FrameRate > 0 {
			frame *= opts.FrameRate
		}
		for axis, c := range curves {
			v := euler.Axis(axis)
			c.Keyframes = append(c.Keyframes, keyframes.Keyframe{Frame: frame, Value: v, HandleLeft: v, HandleRight: v})
		}
	}

	for _, c := range curves {
		sort.SliceStable(c.Keyframes, func(i, j int) bool { return c.Keyframes[i].Frame < c.Keyframes[j].Frame })
	}
	return curves, nil
}

func accessor(doc *gltf.Document, i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(doc.Accessors) || doc.Accessors[i] == nil {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return doc.Accessors[i], nil
}

// quaternions converts accessor data to xyzw float64 quaternions. Normalized
// integer encodings follow the glTF decoding rules.
func quaternions(data any) ([][4]float64, error) {
	var out [][4]float64
	switch v := data.(type) {
	case [][4]float32:
		out = make([][4]float64, len(v))
		for i, q := range v {
			out[i] = [4]float64{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])}
		}
	case [][4]int8:
		out = make([][4]float64, len(v))
		for i, q := range v {
			for j := range q {
				out[i][j] = max(float64(q[j])/127, -1)
			}
		}
	case [][4]uint8:
		out = make([][4]float64, len(v))
		for i, q := range v {
			for j := range q {
				out[i][j] = float64(q[j]) / 255
			}
		}
	case [][4]int16:
		out = make([][4]float64, len(v))
		for i, q := range v {
			for j := range q {
				out[i][j] = max(float64(q[j])/32767, -1)
			}
		}
	case [][4]uint16:
		out = make([][4]float64, len(v))
		for i, q := range v {
			for j := range q {
				out[i][j] = float64(q[j]) / 65535
			}
		}
	default:
		return nil, fmt.Errorf("unsupported rotation accessor %T", data)
	}
	return out, nil
}
