// Package eulerfilter removes Euler-angle discontinuities between a
// reference rotation and a candidate rotation.
//
// Every function is pure: inputs are values, nothing is shared between
// calls, and the functions are safe to call from any number of goroutines.
package eulerfilter

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// ErrInvalidInput is the rotation package's sentinel, re-exported so callers
// only need to import this package.
var ErrInvalidInput = rotation.ErrInvalidInput

const twoPi = 2 * math.Pi

// FilterRotation returns a triple representing the same orientation as
// candidate, chosen to be numerically continuous with reference.
func FilterRotation(reference, candidate rotation.AngleTriple, method FilterMethod) (rotation.AngleTriple, error) {
	switch method {
	case Unwrap:
		return UnwrapTriple(reference, candidate)
	case QuaternionReseed:
		return Reseed(reference, candidate)
	case QuadThenReseed:
		intermediate, err := Reseed(reference, candidate)
		if err != nil {
			return rotation.AngleTriple{}, err
		}
		return Reseed(reference, intermediate)
	case ReseedThenUnwrap:
		intermediate, err := Reseed(reference, candidate)
		if err != nil {
			return rotation.AngleTriple{}, err
		}
		return UnwrapTriple(reference, intermediate)
	default:
		return rotation.AngleTriple{}, fmt.Errorf("%w: unknown filter method %d", ErrInvalidInput, int(method))
	}
}

// Reseed re-derives candidate's orientation through reference's frame and
// decomposes it in the shared axis order.
func Reseed(reference, candidate rotation.AngleTriple) (rotation.AngleTriple, error) {
	if err := checkPair(reference, candidate); err != nil {
		return rotation.AngleTriple{}, err
	}

	ref, err := rotation.ToOrientation(reference)
	if err != nil {
		return rotation.AngleTriple{}, err
	}
	cand, err := rotation.ToOrientation(candidate)
	if err != nil {
		return rotation.AngleTriple{}, err
	}

	delta := rotation.RotationDifference(ref, cand)
	return rotation.ToAngleTriple(ref.Mul(delta), candidate.Order)
}

// UnwrapTriple canonicalizes candidate and unwraps each axis toward reference.
// Whole revolutions carried by reference (e.g. −720°) are preserved.
func UnwrapTriple(reference, candidate rotation.AngleTriple) (rotation.AngleTriple, error) {
	if err := checkPair(reference, candidate); err != nil {
		return rotation.AngleTriple{}, err
	}

	filtered, err := rotation.Canonicalize(candidate)
	if err != nil {
		return rotation.AngleTriple{}, err
	}

	filtered.X = UnwrapAngle(reference.X, filtered.X)
	filtered.Y = UnwrapAngle(reference.Y, filtered.Y)
	filtered.Z = UnwrapAngle(reference.Z, filtered.Z)
	return filtered, nil
}

// UnwrapAngle shifts value by whole turns until value−target lies in [−π, π].
// Ties resolve as the step-by-step loop would: a difference above π lands in
// (−π, π] and one below −π lands in [−π, π).
//
// Non-finite inputs are returned unchanged. Once target is so large that a
// whole turn is lost to rounding, value is left at the nearest float reached.
func UnwrapAngle(target, value float64) float64 {
	delta := value - target
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return value
	}

	// Skip whole turns in one step so huge offsets stay O(1).
	if delta > math.Pi {
		value -= twoPi * math.Ceil((delta-math.Pi)/twoPi)
	} else if delta < -math.Pi {
		value += twoPi * math.Ceil((-math.Pi-delta)/twoPi)
	}

	// Clean up any rounding left by the jump. Near huge targets 2π can be
	// below half an ulp, so stop once a step no longer moves value.
	for value-target > math.Pi {
		next := value - twoPi
		if next == value {
			break
		}
		value = next
	}
	for value-target < -math.Pi {
		next := value + twoPi
		if next == value {
			break
		}
		value = next
	}
	return value
}

func checkPair(reference, candidate rotation.AngleTriple) error {
	if reference.Order != candidate.Order {
		return fmt.Errorf("%w: axis orders must match (%s != %s)", ErrInvalidInput, reference.Order, candidate.Order)
	}
	if err := reference.Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	return nil
}
