// eulerfilter: removes Euler-angle flips from keyframed rotations
// Reads an action, recorded move, sample set or glTF animation and writes
// the filtered keys as JSON.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teslashibe/go-eulerfilter/internal/config"
	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/gltfsource"
	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/report"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

var (
	in        = flag.String("in", "", "Input file (.json action/recording/samples, .gltf, .glb)")
	out       = flag.String("out", "", "Output JSON file (default: <in>.filtered.json)")
	method    = flag.String("method", config.Method(), "Filter method: UNWRAP, QUAD, QUAD_UNWRAP, QUAD_THEN_UNWRAP")
	order     = flag.String("order", config.Order(), "Euler axis order for recordings and glTF input")
	direction = flag.String("direction", config.Direction(), "forward, backward, first-to-last or last-to-first")
	reportTo  = flag.String("report", "", "Write a before/after chart (.html or .png)")
	logLevel  = flag.String("log-level", config.LogLevel(), "debug, info, warn or error")
	frameRate = flag.Float64("frame-rate", 0, "Frames per second for time-based input (default: $EULER_FRAME_RATE or 24)")
)

// options is the parsed command line.
type options struct {
	in, out, report string
	cfg             keyframes.Config
	order           rotation.AxisOrder
	frameRate       float64
}

func main() {
	flag.Parse()
	log.Init(*logLevel)

	opts, err := parseOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eulerfilter: %v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	summary, err := run(opts)
	if err != nil {
		log.Error("filter failed", "in", opts.in, "error", err)
		os.Exit(1)
	}

	for _, line := range summary {
		fmt.Println(line)
	}
	fmt.Printf("wrote %s\n", opts.out)
	if opts.report != "" {
		fmt.Printf("wrote %s\n", opts.report)
	}
}

func parseOptions() (options, error) {
	var opts options
	if *in == "" {
		return opts, errors.New("-in is required")
	}

	m, err := eulerfilter.ParseMethod(*method)
	if err != nil {
		return opts, err
	}
	d, err := keyframes.ParseDirection(*direction)
	if err != nil {
		return opts, err
	}
	o, err := rotation.ParseAxisOrder(*order)
	if err != nil {
		return opts, err
	}

	rate := *frameRate
	if rate <= 0 {
		if rate, err = config.FrameRate(); err != nil {
			return opts, err
		}
	}

	opts = options{
		in:        *in,
		out:       *out,
		report:    *reportTo,
		cfg:       keyframes.Config{Method: m, Direction: d},
		order:     o,
		frameRate: rate,
	}
	if opts.out == "" {
		opts.out = defaultOutput(opts.in)
	}
	return opts, nil
}

func defaultOutput(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".filtered.json"
}

// run filters opts.in, writes opts.out and the optional report, and returns
// one summary line per filtered data path.
func run(opts options) ([]string, error) {
	var (
		result  any
		tracks  []report.Track
		summary []string
		err     error
	)

	switch strings.ToLower(filepath.Ext(opts.in)) {
	case ".gltf", ".glb":
		result, tracks, summary, err = runGLTF(opts)
	case ".json":
		result, tracks, summary, err = runJSON(opts)
	default:
		err = fmt.Errorf("%w: unsupported input %q", keyframes.ErrInvalidFile, opts.in)
	}
	if err != nil {
		return nil, err
	}

	if err := keyframes.SaveJSON(opts.out, result); err != nil {
		return nil, err
	}

	if opts.report != "" {
		r := report.Report{Title: filepath.Base(opts.in)}
		for _, t := range tracks {
			r.Add(t)
		}
		if err := report.Save(opts.report, r); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func runGLTF(opts options) (any, []report.Track, []string, error) {
	actions, err := gltfsource.Load(opts.in, gltfsource.Options{Order: opts.order, FrameRate: opts.frameRate})
	if err != nil {
		return nil, nil, nil, err
	}

	var tracks []report.Track
	var summary []string
	for _, action := range actions {
		t, s, err := filterAction(action, opts.cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("animation %q: %w", action.Name, err)
		}
		tracks = append(tracks, t...)
		summary = append(summary, s...)
	}

	if len(actions) == 1 {
		return actions[0], tracks, summary, nil
	}
	return actions, tracks, summary, nil
}

func runJSON(opts options) (any, []report.Track, []string, error) {
	data, err := os.ReadFile(opts.in)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read input: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(opts.in), filepath.Ext(opts.in))

	var action *keyframes.Action
	switch format := keyframes.DetectFormat(data); format {
	case keyframes.FormatAction:
		if action, err = keyframes.ParseAction(name, data); err != nil {
			return nil, nil, nil, err
		}

	case keyframes.FormatRecording:
		rec, err := keyframes.ParseRecording(name, data)
		if err != nil {
			return nil, nil, nil, err
		}
		if action, err = rec.Action(opts.order, opts.frameRate); err != nil {
			return nil, nil, nil, err
		}

	case keyframes.FormatSampleSet:
		return runSampleSet(opts)

	default:
		return nil, nil, nil, fmt.Errorf("%w: %s is not an action, recording or sample set", keyframes.ErrInvalidFile, opts.in)
	}

	tracks, summary, err := filterAction(action, opts.cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return action, tracks, summary, nil
}

func runSampleSet(opts options) (any, []report.Track, []string, error) {
	set, err := keyframes.LoadSampleSet(opts.in)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := set.Group()
	if err != nil {
		return nil, nil, nil, err
	}

	before := g.Samples()
	corrections, err := keyframes.Run(g, opts.cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	track, err := report.NewTrack(g.DataPath(), before, g.Samples())
	if err != nil {
		return nil, nil, nil, err
	}
	return g.SampleSet(set.Name), []report.Track{track}, []string{summaryLine(g.DataPath(), corrections)}, nil
}

// filterAction runs every rotation path of action in place and rebuilds the
// before/after tracks from the corrections.
func filterAction(action *keyframes.Action, cfg keyframes.Config) ([]report.Track, []string, error) {
	byPath, err := keyframes.RunAction(action, cfg)
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var tracks []report.Track
	var summary []string
	for _, path := range paths {
		g, err := keyframes.GroupFromAction(action, path)
		if err != nil {
			return nil, nil, err
		}
		after := g.Samples()

		track, err := report.NewTrack(path, beforeSamples(after, byPath[path]), after)
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, track)
		summary = append(summary, summaryLine(path, byPath[path]))
	}
	return tracks, summary, nil
}

func beforeSamples(after []keyframes.Sample, corrections []keyframes.Correction) []keyframes.Sample {
	original := make(map[float64]rotation.AngleTriple, len(corrections))
	for _, c := range corrections {
		original[c.Frame] = c.Original
	}

	before := make([]keyframes.Sample, len(after))
	for i, s := range after {
		before[i] = s
		if t, ok := original[s.Frame]; ok {
			before[i].Triple = t
		}
	}
	return before
}

func summaryLine(path string, corrections []keyframes.Correction) string {
	changed := 0
	for _, c := range corrections {
		if c.Changed(1e-9) {
			changed++
		}
	}
	return fmt.Sprintf("%s: %d of %d keys corrected", path, changed, len(corrections))
}
