package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Series is the sequence of values one register took at a breakpoint.
type Series struct {
	Name   string
	Values []uint64
}

// HistoryChart plots each series against its hit number.
func HistoryChart(title, subtitle string, series ...Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "hit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	longest := 0
	for _, s := range series {
		if len(s.Values) > longest {
			longest = len(s.Values)
		}
	}
	xs := make([]string, longest)
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}
	line.SetXAxis(xs)
	for _, s := range series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, data)
	}
	return line
}

// RenderHistory writes an HTML page holding the history chart.
func RenderHistory(w io.Writer, title, subtitle string, series ...Series) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(HistoryChart(title, subtitle, series...))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render %q: %w", title, err)
	}
	return nil
}
