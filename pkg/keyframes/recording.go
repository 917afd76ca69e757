package keyframes

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// HeadDataPath is the data path recordings are grouped under.
const HeadDataPath = "head"

// HeadFrame is one recorded robot pose.
type HeadFrame struct {
	// Head is a 4x4 homogeneous transform; only the rotation block is read.
	// Format: [[r00,r01,r02,tx], [r10,r11,r12,ty], [r20,r21,r22,tz], [0,0,0,1]]
	Head [4][4]float64 `json:"head"`

	Antennas [2]float64 `json:"antennas,omitempty"`
	BodyYaw  float64    `json:"body_yaw,omitempty"`
}

// Recording is a recorded head-pose move: timestamps in seconds and one
// pose per timestamp.
type Recording struct {
	Name          string      `json:"-"`
	Description   string      `json:"description"`
	Time          []float64   `json:"time"`
	SetTargetData []HeadFrame `json:"set_target_data"`
}

// LoadRecording reads a recorded move from disk.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return ParseRecording(nameFromPath(path), data)
}

// ParseRecording decodes and validates a recorded move.
func ParseRecording(name string, data []byte) (*Recording, error) {
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, name, err)
	}
	rec.Name = name

	if len(rec.Time) == 0 || len(rec.SetTargetData) == 0 {
		return nil, fmt.Errorf("%w: recording %q has no keyframe data", ErrInvalidFile, name)
	}
	if len(rec.Time) != len(rec.SetTargetData) {
		return nil, fmt.Errorf("%w: recording %q has %d timestamps and %d poses",
			ErrInvalidFile, name, len(rec.Time), len(rec.SetTargetData))
	}
	return &rec, nil
}

// HeadRotation returns the rotation block of a pose as an orientation.
func (f HeadFrame) HeadRotation() (rotation.Orientation, error) {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = f.Head[i][j]
		}
	}
	return rotation.OrientationFromMatrix(m)
}

// Action turns the head rotations into an action with one curve per axis.
// Frames are time × frameRate; a non-positive frameRate keeps seconds.
// Handles are flat (equal to the key value).
func (r *Recording) Action(order rotation.AxisOrder, frameRate float64) (*Action, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("%w: unknown axis order %d", rotation.ErrInvalidInput, int(order))
	}

	curves := make([]*Curve, 3)
	for axis := range curves {
		curves[axis] = &Curve{
			DataPath:   HeadDataPath,
			ArrayIndex: axis,
			Keyframes:  make([]Keyframe, 0, len(r.Time)),
		}
	}

	for i, pose := range r.SetTargetData {
		o, err := pose.HeadRotation()
		if err != nil {
			return nil, fmt.Errorf("%s pose %d: %w", r.Name, i, err)
		}
		t, err := rotation.ToAngleTriple(o, order)
		if err != nil {
			return nil, fmt.Errorf("%s pose %d: %w", r.Name, i, err)
		}

		frame := r.Time[i]
		if frameRate > 0 {
			frame *= frameRate
		}
		for axis, c := range curves {
			v := t.Axis(axis)
			c.Keyframes = append(c.Keyframes, Keyframe{Frame: frame, Value: v, HandleLeft: v, HandleRight: v})
		}
	}

	return &Action{Name: r.Name, Order: order, Curves: curves}, nil
}
