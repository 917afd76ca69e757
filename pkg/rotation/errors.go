package rotation

import "errors"

var (
	// ErrInvalidInput is returned for non-finite angles, unknown axis orders,
	// degenerate quaternions and mismatched axis orders.
	ErrInvalidInput = errors.New("invalid input")
)
