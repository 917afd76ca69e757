package eulerfilter

import (
	"fmt"
	"strings"
)

// FilterMethod selects how a candidate triple is made continuous with a reference.
type FilterMethod int

const (
	// Unwrap canonicalizes the candidate and then shifts each axis by whole
	// turns until it is within π of the reference. This is the default.
	Unwrap FilterMethod = iota

	// QuaternionReseed re-derives the candidate through the reference frame
	// (ref · (ref⁻¹ · cand)) and decomposes it. It does not guarantee
	// per-axis continuity.
	QuaternionReseed

	// QuadThenReseed applies QuaternionReseed twice, the second time against
	// the first result. Kept under its historical name QUAD_UNWRAP even though
	// no unwrap pass runs; see ReseedThenUnwrap.
	QuadThenReseed

	// ReseedThenUnwrap applies QuaternionReseed and then Unwrap.
	ReseedThenUnwrap
)

// DefaultMethod is used when no method is configured.
const DefaultMethod = Unwrap

var methodNames = map[FilterMethod]string{
	Unwrap:           "UNWRAP",
	QuaternionReseed: "QUAD",
	QuadThenReseed:   "QUAD_UNWRAP",
	ReseedThenUnwrap: "QUAD_THEN_UNWRAP",
}

// Methods lists every filter method, default first.
func Methods() []FilterMethod {
	return []FilterMethod{Unwrap, QuaternionReseed, QuadThenReseed, ReseedThenUnwrap}
}

// Valid reports whether m is a known method.
func (m FilterMethod) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// String returns the method's wire name, e.g. "UNWRAP".
func (m FilterMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("FilterMethod(%d)", int(m))
}

// ParseMethod parses a method name, case-insensitively.
// "QUATERNION_RESEED" and "RESEED" are accepted as aliases of QUAD.
func ParseMethod(s string) (FilterMethod, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "QUATERNION_RESEED", "RESEED":
		return QuaternionReseed, nil
	case "RESEED_THEN_UNWRAP":
		return ReseedThenUnwrap, nil
	}
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return DefaultMethod, fmt.Errorf("%w: unknown filter method %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m FilterMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown filter method %d", ErrInvalidInput, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FilterMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
