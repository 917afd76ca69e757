package rotation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalEpsilon is the cosine of the middle angle below which the triple is
// treated as gimbal locked.
const gimbalEpsilon = 1e-9

// ToOrientation composes the three single-axis rotations of t in t.Order.
func ToOrientation(t AngleTriple) (Orientation, error) {
	if err := t.Validate(); err != nil {
		return Orientation{}, err
	}

	q := quat.Number{Real: 1}
	for _, axis := range t.Order.Axes() {
		// Later rotations multiply on the left.
		q = quat.Mul(axisRotation(axis, t.Axis(axis)), q)
	}
	return Orientation{q: q}, nil
}

// ToAngleTriple decomposes o into angles applied in order.
//
// The first and last angles lie in (−π, π] and the middle angle in
// [−π/2, π/2]. When the middle angle sits at ±π/2 the first and last axes are
// coupled; the last angle is then reported as 0 and the first absorbs the
// combined rotation.
func ToAngleTriple(o Orientation, order AxisOrder) (AngleTriple, error) {
	if !order.Valid() {
		return AngleTriple{}, fmt.Errorf("%w: unknown axis order %d", ErrInvalidInput, int(order))
	}
	if !o.Valid() {
		return AngleTriple{}, fmt.Errorf("%w: invalid orientation %v", ErrInvalidInput, o)
	}

	m := o.Matrix()
	axes := order.Axes()
	i, j, k := axes[0], axes[1], axes[2]

	sign := 1.0
	if !order.even() {
		sign = -1
	}

	var first, middle, last float64
	cosMiddle := math.Hypot(m[i][i], m[j][i])
	if cosMiddle > gimbalEpsilon {
		first = math.Atan2(sign*m[k][j], m[k][k])
		middle = math.Atan2(-sign*m[k][i], cosMiddle)
		last = math.Atan2(sign*m[j][i], m[i][i])
	} else {
		first = math.Atan2(-sign*m[j][k], m[j][j])
		middle = math.Atan2(-sign*m[k][i], cosMiddle)
		last = 0
	}

	t := AngleTriple{Order: order}
	t = t.WithAxis(i, principal(first))
	t = t.WithAxis(j, middle)
	t = t.WithAxis(k, principal(last))
	return t, nil
}

// Canonicalize round-trips t through an Orientation, discarding whole
// revolutions and returning principal-range angles in the same order.
func Canonicalize(t AngleTriple) (AngleTriple, error) {
	o, err := ToOrientation(t)
	if err != nil {
		return AngleTriple{}, err
	}
	return ToAngleTriple(o, t.Order)
}

// principal maps −π to π so results lie in (−π, π].
func principal(a float64) float64 {
	if a == -math.Pi {
		return math.Pi
	}
	return a
}
