package keyframes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// Direction selects which samples are filtered and against what.
type Direction int

const (
	// Forward chains through every sample in ascending frame order; each
	// sample is filtered against the previous corrected one.
	Forward Direction = iota

	// Backward chains in descending frame order.
	Backward

	// FirstToLast filters only the last sample, using the first as reference.
	FirstToLast

	// LastToFirst filters only the first sample, using the last as reference.
	LastToFirst
)

var directionNames = map[Direction]string{
	Forward:     "forward",
	Backward:    "backward",
	FirstToLast: "first-to-last",
	LastToFirst: "last-to-first",
}

// Directions lists every direction, default first.
func Directions() []Direction {
	return []Direction{Forward, Backward, FirstToLast, LastToFirst}
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses a direction name. Case is ignored and '_' may be
// used in place of '-'.
func ParseDirection(s string) (Direction, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for d, n := range directionNames {
		if n == name {
			return d, nil
		}
	}
	return Forward, fmt.Errorf("%w: unknown direction %q", rotation.ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %d", rotation.ErrInvalidInput, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Config selects the filter method and direction used by a run.
type Config struct {
	Method    eulerfilter.FilterMethod `json:"method"`
	Direction Direction                `json:"direction"`
}

// DefaultConfig returns Unwrap chained forward.
func DefaultConfig() Config {
	return Config{
		Method:    eulerfilter.DefaultMethod,
		Direction: Forward,
	}
}

// Validate checks that both fields are known values.
func (c Config) Validate() error {
	if !c.Method.Valid() {
		return fmt.Errorf("%w: unknown filter method %d", rotation.ErrInvalidInput, int(c.Method))
	}
	if !c.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %d", rotation.ErrInvalidInput, int(c.Direction))
	}
	return nil
}

// Plan computes the corrections for samples without touching anything.
// Samples must be in ascending frame order, as Group.Samples returns them.
// Only samples the direction filters appear in the result, in the order
// they were processed.
func Plan(samples []Sample, cfg Config) ([]Correction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNoSamples, len(samples))
	}

	first, last := samples[0], samples[len(samples)-1]

	switch cfg.Direction {
	case FirstToLast:
		c, err := correct(first.Triple, last, cfg.Method)
		if err != nil {
			return nil, err
		}
		return []Correction{c}, nil

	case LastToFirst:
		c, err := correct(last.Triple, first, cfg.Method)
		if err != nil {
			return nil, err
		}
		return []Correction{c}, nil

	case Backward:
		out := make([]Correction, 0, len(samples)-1)
		reference := last.Triple
		for i := len(samples) - 2; i >= 0; i-- {
			c, err := correct(reference, samples[i], cfg.Method)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
			reference = c.Corrected
		}
		return out, nil

	default:
		out := make([]Correction, 0, len(samples)-1)
		reference := first.Triple
		for _, s := range samples[1:] {
			c, err := correct(reference, s, cfg.Method)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
			reference = c.Corrected
		}
		return out, nil
	}
}

// Run plans corrections for g and applies them. Nothing is written unless
// every step succeeds.
func Run(g *Group, cfg Config) ([]Correction, error) {
	corrections, err := plan(g, cfg)
	if err != nil {
		return nil, err
	}
	if err := apply(g, corrections, cfg); err != nil {
		return nil, err
	}
	return corrections, nil
}

func plan(g *Group, cfg Config) ([]Correction, error) {
	corrections, err := Plan(g.Samples(), cfg)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", g.DataPath(), err)
	}
	return corrections, nil
}

func apply(g *Group, corrections []Correction, cfg Config) error {
	changed := 0
	for _, c := range corrections {
		if err := g.Apply(c.Frame, c.Corrected); err != nil {
			return fmt.Errorf("apply frame %g: %w", c.Frame, err)
		}
		if c.Changed(1e-9) {
			changed++
			log.Debug("corrected frame",
				"path", g.DataPath(),
				"frame", c.Frame,
				"before", c.Original.String(),
				"after", c.Corrected.String(),
			)
		}
	}

	log.Info("filtered group",
		"path", g.DataPath(),
		"method", cfg.Method.String(),
		"direction", cfg.Direction.String(),
		"samples", g.Len(),
		"changed", changed,
	)
	return nil
}

// RunAction filters every Euler rotation path of action in place and returns
// the corrections keyed by data path. Paths with fewer than two keys are
// skipped. Every path is planned before any is written, so a failure leaves
// action untouched.
func RunAction(action *Action, cfg Config) (map[string][]Correction, error) {
	type planned struct {
		group       *Group
		corrections []Correction
	}

	var plans []planned
	for _, path := range action.DataPaths() {
		if !IsRotationPath(path) {
			continue
		}
		g, err := GroupFromAction(action, path)
		if errors.Is(err, ErrNoRotationCurves) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if g.Len() < 2 {
			log.Warn("skipping data path", "path", path, "samples", g.Len())
			continue
		}
		corrections, err := plan(g, cfg)
		if err != nil {
			return nil, err
		}
		plans = append(plans, planned{group: g, corrections: corrections})
	}

	out := make(map[string][]Correction, len(plans))
	for _, p := range plans {
		if err := apply(p.group, p.corrections, cfg); err != nil {
			return nil, err
		}
		out[p.group.DataPath()] = p.corrections
	}
	return out, nil
}

// IsRotationPath reports whether path names an Euler rotation channel.
func IsRotationPath(path string) bool {
	return path == HeadDataPath || strings.HasSuffix(path, "rotation_euler")
}

func correct(reference rotation.AngleTriple, s Sample, method eulerfilter.FilterMethod) (Correction, error) {
	corrected, err := eulerfilter.FilterRotation(reference, s.Triple, method)
	if err != nil {
		return Correction{}, fmt.Errorf("frame %g: %w", s.Frame, err)
	}
	return Correction{Frame: s.Frame, Original: s.Triple, Corrected: corrected}, nil
}
