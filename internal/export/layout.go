package export

import (
	"errors"
	"fmt"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// ErrNoData is returned when a data download is requested for a slide
// without fetched rows.
var ErrNoData = errors.New("slide has no financial data")

// column maps one output column to its source metric. Comparison
// slides interleave primary and comparison columns per metric.
type column struct {
	header  string
	metric  string
	compare bool
}

// slideColumns derives the value columns after the leading Year
// column. Unlike the on-slide tables, downloads carry every column.
func slideColumns(s deck.Slide) []column {
	if !s.HasComparison() {
		var cols []column
		for _, sr := range ciq.SeriesFromRows(s.Rows) {
			cols = append(cols, column{header: sr.Metric, metric: sr.Metric})
		}
		return cols
	}

	inCompare := map[string]bool{}
	for _, r := range s.CompareRows {
		inCompare[r.Metric] = true
	}
	var cols []column
	for _, sr := range ciq.SeriesFromRows(s.Rows) {
		if !inCompare[sr.Metric] {
			cols = append(cols, column{
				header: fmt.Sprintf("%s (%s)", sr.Metric, s.Data.Ticker),
				metric: sr.Metric,
			})
			continue
		}
		cols = append(cols,
			column{header: fmt.Sprintf("%s (%s)", sr.Metric, s.Data.Ticker), metric: sr.Metric},
			column{header: fmt.Sprintf("%s (%s)", sr.Metric, s.Data.CompareTicker), metric: sr.Metric, compare: true},
		)
	}
	return cols
}

// slideYears returns every year present on either side, ascending.
func slideYears(s deck.Slide) []int {
	if !s.HasComparison() {
		return analysis.Years(s.Rows)
	}
	all := append(append([]ciq.Row(nil), s.Rows...), s.CompareRows...)
	return analysis.Years(all)
}

// cellValue looks up a column's value for a year.
func cellValue(s deck.Slide, primary, secondary map[int]map[string]float64, year int, col column) (float64, bool) {
	byYear := primary
	if col.compare {
		byYear = secondary
	}
	if m, ok := byYear[year]; ok {
		v, ok := m[col.metric]
		return v, ok
	}
	return 0, false
}
