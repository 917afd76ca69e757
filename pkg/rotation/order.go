package rotation

import (
	"fmt"
	"strings"
)

// AxisOrder is the sequence in which the three single-axis rotations of an
// AngleTriple are applied. For OrderXYZ the X rotation is applied first, so
// the composed rotation is Rz·Ry·Rx.
type AxisOrder int

const (
	OrderXYZ AxisOrder = iota
	OrderXZY
	OrderYXZ
	OrderYZX
	OrderZXY
	OrderZYX
)

// Axis indices used by AxisOrder.Axes and AngleTriple.Axis.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

var orderNames = [...]string{"XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX"}

var orderAxes = [...][3]int{
	{AxisX, AxisY, AxisZ},
	{AxisX, AxisZ, AxisY},
	{AxisY, AxisX, AxisZ},
	{AxisY, AxisZ, AxisX},
	{AxisZ, AxisX, AxisY},
	{AxisZ, AxisY, AxisX},
}

// AllOrders lists every supported axis order.
func AllOrders() []AxisOrder {
	return []AxisOrder{OrderXYZ, OrderXZY, OrderYXZ, OrderYZX, OrderZXY, OrderZYX}
}

// Valid reports whether o is one of the six permutations.
func (o AxisOrder) Valid() bool {
	return o >= OrderXYZ && o <= OrderZYX
}

// String returns the three-letter name, e.g. "XYZ".
func (o AxisOrder) String() string {
	if !o.Valid() {
		return fmt.Sprintf("AxisOrder(%d)", int(o))
	}
	return orderNames[o]
}

// Axes returns the axis indices in application order.
func (o AxisOrder) Axes() [3]int {
	if !o.Valid() {
		return orderAxes[OrderXYZ]
	}
	return orderAxes[o]
}

// even reports whether the order is a cyclic shift of XYZ.
func (o AxisOrder) even() bool {
	a := o.Axes()
	return (a[1]-a[0]+3)%3 == 1
}

// ParseAxisOrder parses a three-letter axis order, case-insensitively.
func ParseAxisOrder(s string) (AxisOrder, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range orderNames {
		if n == name {
			return AxisOrder(i), nil
		}
	}
	return OrderXYZ, fmt.Errorf("%w: unknown axis order %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o AxisOrder) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: unknown axis order %d", ErrInvalidInput, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *AxisOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseAxisOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
