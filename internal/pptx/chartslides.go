package pptx

import (
	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/charts"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// addCharts renders a chart slide's images and color legend. Returns
// an error when nothing can be charted so the caller can fall back to
// a table.
func (g *Generator) addCharts(slide *ppt.Slide, s deck.Slide) error {
	images, legend, err := g.chartImages(s)
	if err != nil {
		return err
	}

	rects := chartRects(len(images))
	for i, img := range images {
		r := rects[i]
		shape := slide.CreateDrawingShape()
		shape.SetImageData(img, "image/png")
		shape.SetOffsetX(r.emuX()).SetOffsetY(r.emuY())
		shape.SetWidth(r.emuW()).SetHeight(r.emuH())
	}

	if len(legend) > 0 {
		g.addLegendRow(slide, legend)
	}
	return nil
}

// chartImages picks the chart mix for a slide:
//   - comparison: one bar chart per common metric, both tickers side
//     by side, ticker legend below;
//   - trend: a line chart of base and moving-average series, plus the
//     growth chart when the selection includes it;
//   - otherwise: grouped bars per year, metric legend below.
func (g *Generator) chartImages(s deck.Slide) ([][]byte, []charts.LegendEntry, error) {
	if s.HasComparison() {
		return g.comparisonImages(s)
	}
	if s.Data != nil && s.Data.WithTrend {
		return g.trendImages(s)
	}

	base := baseSeries(s.Rows)
	img, err := charts.MetricBars("", base)
	if err != nil {
		return nil, nil, err
	}
	return [][]byte{img}, charts.LegendEntries(base), nil
}

func (g *Generator) comparisonImages(s deck.Slide) ([][]byte, []charts.LegendEntry, error) {
	metrics := commonMetrics(s.Rows, s.CompareRows, maxComparisonCharts)
	if len(metrics) == 0 {
		return nil, nil, charts.ErrNoData
	}

	primary := seriesByMetric(s.Rows)
	secondary := seriesByMetric(s.CompareRows)

	var images [][]byte
	for _, m := range metrics {
		a := primary[m]
		a.Metric = s.Data.Ticker
		b := secondary[m]
		b.Metric = s.Data.CompareTicker
		img, err := charts.ComparisonBars(m, a, b)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}

	legend := []charts.LegendEntry{
		{Label: s.Data.Ticker, Hex: charts.ColorHexAt(0)},
		{Label: s.Data.CompareTicker, Hex: charts.ColorHexAt(1)},
	}
	return images, legend, nil
}

func (g *Generator) trendImages(s deck.Slide) ([][]byte, []charts.LegendEntry, error) {
	img, err := charts.TrendLines("", ciq.SeriesFromRows(s.Rows))
	if err != nil {
		return nil, nil, err
	}
	images := [][]byte{img}

	if s.Selection.IncludeCAGR {
		if growth := analysis.CAGRByMetric(s.Rows); len(growth) > 0 {
			growthImg, err := charts.GrowthBars("Growth (CAGR %)", growth)
			if err == nil {
				images = append(images, growthImg)
			} else {
				g.logger.Warn().Err(err).Str("slide", s.ID).Msg("Growth chart skipped")
			}
		}
	}
	// Line and growth charts label themselves; no square legend.
	return images, nil, nil
}

// addLegendRow draws colored squares with labels under the charts.
func (g *Generator) addLegendRow(slide *ppt.Slide, entries []charts.LegendEntry) {
	const (
		y      = 5.18
		square = 0.14
	)

	x := 0.5
	for _, e := range entries {
		labelW := float64(len(e.Label))*0.09 + 0.25
		if x+square+labelW > 9.7 {
			break
		}

		sq := slide.CreateRichTextShape()
		sq.SetOffsetX(int64(x * emuPerInch)).SetOffsetY(int64(y * emuPerInch))
		sq.SetWidth(int64(square * emuPerInch)).SetHeight(int64(square * emuPerInch))
		sq.SetFill(solidFill("FF" + e.Hex))
		x += square + 0.08

		label := slide.CreateRichTextShape()
		label.SetOffsetX(int64(x * emuPerInch)).SetOffsetY(int64((y - 0.03) * emuPerInch))
		label.SetWidth(int64(labelW * emuPerInch)).SetHeight(int64(0.22 * emuPerInch))
		tr := label.CreateTextRun(e.Label)
		tr.GetFont().SetSize(fontTableCell).SetColor(ppt.NewColor(colorBody))
		x += labelW + 0.2
	}
}

// baseSeries returns the non-moving-average series in fetch order.
func baseSeries(rows []ciq.Row) []ciq.Series {
	var out []ciq.Series
	for _, s := range ciq.SeriesFromRows(rows) {
		if !analysis.IsMovingAverage(s.Metric) {
			out = append(out, s)
		}
	}
	return out
}

func seriesByMetric(rows []ciq.Row) map[string]ciq.Series {
	out := map[string]ciq.Series{}
	for _, s := range ciq.SeriesFromRows(rows) {
		out[s.Metric] = s
	}
	return out
}
