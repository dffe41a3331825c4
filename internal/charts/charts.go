// Package charts renders financial series to PNG images for embedding
// in slides. Bar charts carry no legend of their own; callers draw one
// from LegendEntries so colors stay consistent with the rendered bars.
package charts

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
)

// ErrNoData is returned when a chart is requested for empty series.
var ErrNoData = errors.New("no data to chart")

// Render size, 16:9 to match the slide body.
const (
	Width  = 1024
	Height = 576
)

// Palette is the brand color cycle for series fills, as RGB hex.
var Palette = []string{"005F6B", "F6A628", "FFC966", "FFD700", "000000"}

// ColorHexAt returns the palette hex for a series index, cycling.
func ColorHexAt(i int) string {
	return Palette[i%len(Palette)]
}

// ColorAt returns the palette color for a series index, cycling.
func ColorAt(i int) drawing.Color {
	return drawing.ColorFromHex(ColorHexAt(i))
}

// LegendEntry labels one series color for caller-drawn legends.
type LegendEntry struct {
	Label string
	Hex   string
}

// LegendEntries pairs each series with its palette color in render
// order.
func LegendEntries(series []ciq.Series) []LegendEntry {
	out := make([]LegendEntry, len(series))
	for i, s := range series {
		out[i] = LegendEntry{Label: s.Metric, Hex: ColorHexAt(i)}
	}
	return out
}

func yearLabel(year int) string {
	return strconv.Itoa(year)
}

// yAxisName picks the axis title for a series set. Mixed sets use the
// monetary title since ratios are the minority on such charts.
func yAxisName(series []ciq.Series) string {
	allRatios := true
	for _, s := range series {
		if !common.IsRatioMetric(s.Metric) {
			allRatios = false
			break
		}
	}
	if allRatios {
		return "Value"
	}
	return "Amount (USD Millions)"
}

func unionYears(series []ciq.Series) []int {
	seen := map[int]bool{}
	var years []int
	for _, s := range series {
		for _, y := range s.Years {
			if !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}

func valueAt(s ciq.Series, year int) float64 {
	for i, y := range s.Years {
		if y == year {
			return s.Values[i]
		}
	}
	return 0
}

// groupedBars lays out one bar per series per year, with a transparent
// spacer between year groups. The year label sits under the middle bar
// of its group.
func groupedBars(series []ciq.Series, years []int) []chart.Value {
	var bars []chart.Value
	mid := len(series) / 2
	for gi, year := range years {
		if gi > 0 {
			bars = append(bars, chart.Value{
				Value: 0,
				Style: chart.Style{
					FillColor:   chart.ColorTransparent,
					StrokeColor: chart.ColorTransparent,
				},
			})
		}
		for si, s := range series {
			label := ""
			if si == mid {
				label = yearLabel(year)
			}
			bars = append(bars, chart.Value{
				Value: valueAt(s, year),
				Label: label,
				Style: chart.Style{FillColor: ColorAt(si)},
			})
		}
	}
	return bars
}

func barWidth(totalBars int) int {
	if totalBars < 1 {
		totalBars = 1
	}
	w := (Width - 120) / totalBars
	if w > 80 {
		return 80
	}
	if w < 8 {
		return 8
	}
	return w
}

func renderBarChart(graph chart.BarChart) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MetricBars renders a grouped bar chart: one color per metric, one
// group per fiscal year.
func MetricBars(title string, series []ciq.Series) ([]byte, error) {
	series = nonEmpty(series)
	years := unionYears(series)
	if len(series) == 0 || len(years) == 0 {
		return nil, ErrNoData
	}

	bars := groupedBars(series, years)
	graph := chart.BarChart{
		Title:        title,
		Width:        Width,
		Height:       Height,
		BarWidth:     barWidth(len(bars)),
		UseBaseValue: true,
		BaseValue:    0.0,
		Bars:         bars,
		YAxis: chart.YAxis{
			Name: yAxisName(series),
		},
	}
	return renderBarChart(graph)
}

// ComparisonBars renders one metric for two companies side by side,
// one group per year.
func ComparisonBars(title string, a, b ciq.Series) ([]byte, error) {
	pair := nonEmpty([]ciq.Series{a, b})
	years := unionYears(pair)
	if len(pair) < 2 || len(years) == 0 {
		return nil, ErrNoData
	}

	bars := groupedBars(pair, years)
	graph := chart.BarChart{
		Title:        title,
		Width:        Width,
		Height:       Height,
		BarWidth:     barWidth(len(bars)),
		UseBaseValue: true,
		BaseValue:    0.0,
		Bars:         bars,
		YAxis: chart.YAxis{
			Name: yAxisName(pair),
		},
	}
	return renderBarChart(graph)
}

// TrendLines renders line series over years, moving averages dashed.
// This chart carries its own legend. Series with a single point are
// dropped since they cannot form a line.
func TrendLines(title string, series []ciq.Series) ([]byte, error) {
	var drawable []ciq.Series
	for _, s := range series {
		if len(s.Years) >= 2 {
			drawable = append(drawable, s)
		}
	}
	series = drawable
	if len(series) == 0 {
		return nil, ErrNoData
	}

	lines := make([]chart.Series, 0, len(series))
	for i, s := range series {
		xs := make([]float64, len(s.Years))
		ys := make([]float64, len(s.Values))
		for j, y := range s.Years {
			xs[j] = float64(y)
			ys[j] = s.Values[j]
		}
		style := chart.Style{
			StrokeColor: ColorAt(i),
			StrokeWidth: 2.5,
		}
		if analysis.IsMovingAverage(s.Metric) {
			style.StrokeDashArray = []float64{5.0, 5.0}
		}
		lines = append(lines, chart.ContinuousSeries{
			Name:    s.Metric,
			XValues: xs,
			YValues: ys,
			Style:   style,
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  Width,
		Height: Height,
		XAxis: chart.XAxis{
			Name: "Year",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return yearLabel(int(f + 0.5))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name: yAxisName(series),
		},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GrowthBars renders compound annual growth rates, one bar per metric.
func GrowthBars(title string, growth []analysis.MetricCAGR) ([]byte, error) {
	if len(growth) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, len(growth))
	for i, g := range growth {
		bars[i] = chart.Value{
			Value: g.Pct,
			Label: g.Metric,
			Style: chart.Style{FillColor: ColorAt(i)},
		}
	}
	graph := chart.BarChart{
		Title:        title,
		Width:        Width,
		Height:       Height,
		BarWidth:     barWidth(len(bars)),
		UseBaseValue: true,
		BaseValue:    0.0,
		Bars:         bars,
		YAxis: chart.YAxis{
			Name: "CAGR (%)",
		},
	}
	return renderBarChart(graph)
}

// nonEmpty drops series with no points.
func nonEmpty(series []ciq.Series) []ciq.Series {
	out := series[:0:0]
	for _, s := range series {
		if len(s.Years) > 0 {
			out = append(out, s)
		}
	}
	return out
}
