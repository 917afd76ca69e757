package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders one line chart per track on a single page. Filtered
// curves are solid, the originals dashed.
func WriteHTML(w io.Writer, r Report) error {
	page := components.NewPage()
	if r.Title != "" {
		page.SetPageTitle(r.Title)
	}
	for _, t := range r.Tracks {
		page.AddCharts(lineChart(r.Title, t))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

func lineChart(title string, t Track) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: t.Name, Subtitle: fmt.Sprintf("%s keys=%d", title, len(t.Frames))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Degrees", NameLocation: "middle", NameGap: 40}),
	)

	labels := make([]string, len(t.Frames))
	for i, f := range t.Frames {
		labels[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	line.SetXAxis(labels)

	for axis, name := range axisNames {
		line.AddSeries(name+" before", lineData(degrees(t.Before, axis)),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.5)}))
		line.AddSeries(name+" after", lineData(degrees(t.After, axis)))
	}
	return line
}

func lineData(vs []float64) []opts.LineData {
	out := make([]opts.LineData, len(vs))
	for i, v := range vs {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
