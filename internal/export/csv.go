package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// SlideCSV renders one slide's fetched data as CSV: a Year column
// followed by one column per metric series, raw numeric values,
// missing cells left empty.
func SlideCSV(s deck.Slide) ([]byte, error) {
	if len(s.Rows) == 0 {
		return nil, ErrNoData
	}

	cols := slideColumns(s)
	years := slideYears(s)
	primary := analysis.MetricsByYear(s.Rows)
	secondary := analysis.MetricsByYear(s.CompareRows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(cols)+1)
	header = append(header, "Year")
	for _, col := range cols {
		header = append(header, col.header)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	for _, year := range years {
		record := make([]string, 0, len(cols)+1)
		record = append(record, strconv.Itoa(year))
		for _, col := range cols {
			if v, ok := cellValue(s, primary, secondary, year, col); ok {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
