package pptx

import (
	"fmt"
	"strconv"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
)

const (
	maxTableMetricCols  = 7
	maxCommonMetrics    = 5
	maxComparisonCharts = 3
)

// addTable renders a slide's rows as a year-by-metric grid. Comparison
// slides interleave both tickers' values per metric.
func (g *Generator) addTable(slide *ppt.Slide, s deck.Slide) {
	headers, rows, note := tableData(s)
	if len(rows) == 0 {
		g.addTextBody(slide, "No data available for this slide.")
		return
	}
	g.drawGrid(slide, headers, rows)
	if note != "" {
		noteShape := slide.CreateRichTextShape()
		noteShape.SetOffsetX(marginLeft).SetOffsetY(int64(5.25 * emuPerInch))
		noteShape.SetWidth(contentWidth).SetHeight(int64(0.25 * emuPerInch))
		tr := noteShape.CreateTextRun(note)
		tr.GetFont().SetSize(fontFooter).SetColor(ppt.NewColor(colorMuted))
		alignRight(noteShape.GetActiveParagraph())
	}
}

// tableData flattens a slide's rows into headers and formatted cells.
// The Year column comes first; missing values render N/A.
func tableData(s deck.Slide) (headers []string, rows [][]string, note string) {
	if s.HasComparison() {
		return comparisonTableData(s)
	}

	series := ciq.SeriesFromRows(s.Rows)
	if len(series) > maxTableMetricCols {
		note = fmt.Sprintf("%d more metrics not shown", len(series)-maxTableMetricCols)
		series = series[:maxTableMetricCols]
	}
	years := analysis.Years(s.Rows)
	if len(series) == 0 || len(years) == 0 {
		return nil, nil, ""
	}

	byYear := analysis.MetricsByYear(s.Rows)
	headers = append(headers, "Year")
	for _, sr := range series {
		headers = append(headers, sr.Metric)
	}
	for _, year := range years {
		row := []string{strconv.Itoa(year)}
		for _, sr := range series {
			row = append(row, cellText(byYear, year, sr.Metric))
		}
		rows = append(rows, row)
	}
	return headers, rows, note
}

// comparisonTableData builds the interleaved two-company table over
// the metrics both companies have.
func comparisonTableData(s deck.Slide) (headers []string, rows [][]string, note string) {
	metrics := commonMetrics(s.Rows, s.CompareRows, maxCommonMetrics)
	if len(metrics) == 0 {
		return nil, nil, ""
	}

	years := analysis.Years(append(append([]ciq.Row(nil), s.Rows...), s.CompareRows...))
	primary := analysis.MetricsByYear(s.Rows)
	secondary := analysis.MetricsByYear(s.CompareRows)

	headers = append(headers, "Year")
	for _, m := range metrics {
		headers = append(headers, fmt.Sprintf("%s (%s)", m, s.Data.Ticker))
		headers = append(headers, fmt.Sprintf("%s (%s)", m, s.Data.CompareTicker))
	}
	for _, year := range years {
		row := []string{strconv.Itoa(year)}
		for _, m := range metrics {
			row = append(row, cellText(primary, year, m))
			row = append(row, cellText(secondary, year, m))
		}
		rows = append(rows, row)
	}
	return headers, rows, ""
}

func cellText(byYear map[int]map[string]float64, year int, metric string) string {
	if m, ok := byYear[year]; ok {
		if v, ok := m[metric]; ok {
			return common.FormatCellValue(metric, v)
		}
	}
	return "N/A"
}

// commonMetrics returns the base metrics (moving averages excluded)
// that appear in both row sets, ordered as in the primary set and
// capped at max.
func commonMetrics(primary, secondary []ciq.Row, max int) []string {
	inSecondary := map[string]bool{}
	for _, r := range secondary {
		inSecondary[r.Metric] = true
	}

	var out []string
	for _, s := range ciq.SeriesFromRows(primary) {
		if analysis.IsMovingAverage(s.Metric) || !inSecondary[s.Metric] {
			continue
		}
		out = append(out, s.Metric)
		if len(out) == max {
			break
		}
	}
	return out
}

// drawGrid lays the table out as one filled shape per cell so columns
// stay aligned.
func (g *Generator) drawGrid(slide *ppt.Slide, headers []string, rows [][]string) {
	const (
		startX      = 0.4
		startY      = 1.05
		tableWidth  = 9.2
		yearColW    = 0.9
		headerH     = 0.34
		rowH        = 0.28
		maxGridRows = 14
	)

	cols := len(headers)
	otherColW := (tableWidth - yearColW) / float64(cols-1)
	if cols == 1 {
		otherColW = tableWidth
	}
	colX := func(i int) float64 {
		if i == 0 {
			return startX
		}
		return startX + yearColW + float64(i-1)*otherColW
	}
	colW := func(i int) float64 {
		if i == 0 {
			return yearColW
		}
		return otherColW
	}

	for i, h := range headers {
		cell := slide.CreateRichTextShape()
		cell.SetOffsetX(int64(colX(i) * emuPerInch)).SetOffsetY(int64(startY * emuPerInch))
		cell.SetWidth(int64(colW(i) * emuPerInch)).SetHeight(int64(headerH * emuPerInch))
		cell.SetFill(solidFill(colorHeaderFill))
		tr := cell.CreateTextRun(clip(h, int(colW(i)*2.2)))
		tr.GetFont().SetSize(fontTableHead).SetBold(true).SetColor(ppt.ColorWhite)
		alignCenter(cell.GetActiveParagraph())
	}

	if len(rows) > maxGridRows {
		rows = rows[:maxGridRows]
	}
	for rowIdx, row := range rows {
		y := startY + headerH + float64(rowIdx)*rowH
		fill := "FFFFFFFF"
		if rowIdx%2 == 0 {
			fill = colorZebra
		}
		for i := 0; i < cols && i < len(row); i++ {
			cell := slide.CreateRichTextShape()
			cell.SetOffsetX(int64(colX(i) * emuPerInch)).SetOffsetY(int64(y * emuPerInch))
			cell.SetWidth(int64(colW(i) * emuPerInch)).SetHeight(int64(rowH * emuPerInch))
			cell.SetFill(solidFill(fill))
			tr := cell.CreateTextRun(clip(row[i], int(colW(i)*2.6)))
			tr.GetFont().SetSize(fontTableCell).SetColor(ppt.NewColor(colorBody))
			if i == 0 {
				alignCenter(cell.GetActiveParagraph())
			} else {
				alignRight(cell.GetActiveParagraph())
			}
		}
	}
}
