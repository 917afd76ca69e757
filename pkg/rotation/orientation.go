package rotation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation is an axis-order-free rotation backed by a unit quaternion.
// The zero value is not a valid rotation; use Identity.
type Orientation struct {
	q quat.Number
}

var axisUnit = [3]r3.Vec{
	AxisX: {X: 1},
	AxisY: {Y: 1},
	AxisZ: {Z: 1},
}

// Identity returns the orientation with no rotation.
func Identity() Orientation {
	return Orientation{q: quat.Number{Real: 1}}
}

// OrientationFromQuaternion builds an orientation from quaternion components
// (w is the scalar part). The input is normalized; zero-length or
// non-finite quaternions are rejected.
func OrientationFromQuaternion(w, x, y, z float64) (Orientation, error) {
	q := quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
	if quat.IsNaN(q) || quat.IsInf(q) {
		return Orientation{}, fmt.Errorf("%w: non-finite quaternion %v", ErrInvalidInput, q)
	}
	n := quat.Abs(q)
	if n < 1e-12 {
		return Orientation{}, fmt.Errorf("%w: zero-length quaternion", ErrInvalidInput)
	}
	return Orientation{q: quat.Scale(1/n, q)}, nil
}

// OrientationFromMatrix builds an orientation from a 3x3 rotation matrix in
// column-vector convention (v' = M·v). Rows are m[0], m[1], m[2].
func OrientationFromMatrix(m [3][3]float64) (Orientation, error) {
	for _, row := range m {
		for _, v := range row {
			if !finite(v) {
				return Orientation{}, fmt.Errorf("%w: non-finite matrix element", ErrInvalidInput)
			}
		}
	}

	// Pick the largest diagonal term to keep the square root well away from zero.
	var w, x, y, z float64
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(1+trace)
		w = s / 4
		x = (m[2][1] - m[1][2]) / s
		y = (m[0][2] - m[2][0]) / s
		z = (m[1][0] - m[0][1]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		w = (m[2][1] - m[1][2]) / s
		x = s / 4
		y = (m[0][1] + m[1][0]) / s
		z = (m[0][2] + m[2][0]) / s
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		w = (m[0][2] - m[2][0]) / s
		x = (m[0][1] + m[1][0]) / s
		y = s / 4
		z = (m[1][2] + m[2][1]) / s
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		w = (m[1][0] - m[0][1]) / s
		x = (m[0][2] + m[2][0]) / s
		y = (m[1][2] + m[2][1]) / s
		z = s / 4
	}

	return OrientationFromQuaternion(w, x, y, z)
}

// axisRotation returns the quaternion for a rotation of angle radians about axis.
func axisRotation(axis int, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axisUnit[axis]))
}

// Valid reports whether o holds a finite, non-zero quaternion.
func (o Orientation) Valid() bool {
	return !quat.IsNaN(o.q) && !quat.IsInf(o.q) && quat.Abs(o.q) > 1e-12
}

// Mul returns o·other: other is applied first, then o.
func (o Orientation) Mul(other Orientation) Orientation {
	q := quat.Mul(o.q, other.q)
	if n := quat.Abs(q); n != 0 && n != 1 {
		q = quat.Scale(1/n, q)
	}
	return Orientation{q: q}
}

// Inverse returns the rotation that undoes o.
func (o Orientation) Inverse() Orientation {
	return Orientation{q: quat.Inv(o.q)}
}

// RotationDifference returns the rotation d such that a·d = b, i.e. a⁻¹·b.
func RotationDifference(a, b Orientation) Orientation {
	return a.Inverse().Mul(b)
}

// Matrix returns the 3x3 rotation matrix (column-vector convention).
func (o Orientation) Matrix() [3][3]float64 {
	m := r3.Rotation(o.q).Mat()
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// Rotate applies o to the vector v.
func (o Orientation) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(o.q).Rotate(v)
}

// Dot returns the 4D dot product of the two unit quaternions.
func (o Orientation) Dot(other Orientation) float64 {
	a, b := o.q, other.q
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Equal reports whether o and other represent the same rotation within tol.
// q and −q are the same rotation.
func (o Orientation) Equal(other Orientation, tol float64) bool {
	return 1-math.Abs(o.Dot(other)) <= tol
}

// AngleTo returns the angle in radians of the rotation taking o to other.
func (o Orientation) AngleTo(other Orientation) float64 {
	d := math.Min(1, math.Abs(o.Dot(other)))
	return 2 * math.Acos(d)
}

func (o Orientation) String() string {
	return fmt.Sprintf("Orientation(w=%.6f x=%.6f y=%.6f z=%.6f)", o.q.Real, o.q.Imag, o.q.Jmag, o.q.Kmag)
}
