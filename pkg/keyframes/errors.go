package keyframes

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

var (
	// ErrNoSamples is returned when a group has fewer than two samples.
	ErrNoSamples = fmt.Errorf("%w: need at least 2 samples", rotation.ErrInvalidInput)

	// ErrSampleNotFound is returned when applying a correction to a frame the group does not hold.
	ErrSampleNotFound = errors.New("no sample at frame")

	// ErrInvalidFile is returned when a keyframe file is malformed.
	ErrInvalidFile = errors.New("invalid keyframe file")

	// ErrNoRotationCurves is returned when an action has no X/Y/Z curves to group.
	ErrNoRotationCurves = errors.New("no rotation curves")
)
