package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// WritePNG draws every track on one plot. Each axis keeps its colour; the
// originals are dashed.
func WritePNG(w io.Writer, r Report) error {
	p := plot.New()
	p.Title.Text = r.Title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Degrees"
	p.Add(plotter.NewGrid())

	series := 0
	for _, t := range r.Tracks {
		for axis, name := range axisNames {
			label := name
			if len(r.Tracks) > 1 {
				label = t.Name + " " + name
			}

			before, err := plotter.NewLine(xys(t.Frames, degrees(t.Before, axis)))
			if err != nil {
				return fmt.Errorf("%s %s: %w", t.Name, name, err)
			}
			before.Color = plotutil.Color(series)
			before.Width = vg.Points(1)
			before.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

			after, err := plotter.NewLine(xys(t.Frames, degrees(t.After, axis)))
			if err != nil {
				return fmt.Errorf("%s %s: %w", t.Name, name, err)
			}
			after.Color = plotutil.Color(series)
			after.Width = vg.Points(1.5)

			p.Add(before, after)
			p.Legend.Add(label+" before", before)
			p.Legend.Add(label+" after", after)
			series++
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(12*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render png report: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png report: %w", err)
	}
	return nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}
