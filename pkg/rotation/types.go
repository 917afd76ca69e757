// Package rotation converts between Euler angle triples with an explicit
// axis order and axis-order-free orientations (unit quaternions).
//
// Decomposition always lands in the principal range: the first and last
// axes in (−π, π] and the middle axis in [−π/2, π/2]. Keeping a sequence of
// triples numerically continuous is the job of package eulerfilter.
package rotation

import (
	"fmt"
	"math"
)

// AngleTriple holds three rotation angles in radians and the order in which
// they are applied.
type AngleTriple struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z"`
	Order AxisOrder `json:"order"`
}

// NewAngleTriple creates an AngleTriple from radians.
func NewAngleTriple(x, y, z float64, order AxisOrder) AngleTriple {
	return AngleTriple{X: x, Y: y, Z: z, Order: order}
}

// FromDegrees creates an AngleTriple from degrees.
func FromDegrees(x, y, z float64, order AxisOrder) AngleTriple {
	return AngleTriple{X: Radians(x), Y: Radians(y), Z: Radians(z), Order: order}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Axis returns the angle for axis index i (AxisX, AxisY or AxisZ).
func (t AngleTriple) Axis(i int) float64 {
	switch i {
	case AxisX:
		return t.X
	case AxisY:
		return t.Y
	case AxisZ:
		return t.Z
	}
	panic(fmt.Sprintf("rotation: axis index %d out of range", i))
}

// WithAxis returns a copy of t with axis i set to v.
func (t AngleTriple) WithAxis(i int, v float64) AngleTriple {
	switch i {
	case AxisX:
		t.X = v
	case AxisY:
		t.Y = v
	case AxisZ:
		t.Z = v
	default:
		panic(fmt.Sprintf("rotation: axis index %d out of range", i))
	}
	return t
}

// Array returns the angles as [X, Y, Z].
func (t AngleTriple) Array() [3]float64 {
	return [3]float64{t.X, t.Y, t.Z}
}

// Finite reports whether all three angles are finite.
func (t AngleTriple) Finite() bool {
	return finite(t.X) && finite(t.Y) && finite(t.Z)
}

// Validate checks the axis order and that every angle is finite.
func (t AngleTriple) Validate() error {
	if !t.Order.Valid() {
		return fmt.Errorf("%w: unknown axis order %d", ErrInvalidInput, int(t.Order))
	}
	if !t.Finite() {
		return fmt.Errorf("%w: non-finite angle in %v", ErrInvalidInput, t.Array())
	}
	return nil
}

// Degrees returns the angles converted to degrees as [X, Y, Z].
func (t AngleTriple) Degrees() [3]float64 {
	return [3]float64{Degrees(t.X), Degrees(t.Y), Degrees(t.Z)}
}

func (t AngleTriple) String() string {
	d := t.Degrees()
	return fmt.Sprintf("%s(x=%+.2f° y=%+.2f° z=%+.2f°)", t.Order, d[0], d[1], d[2])
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
