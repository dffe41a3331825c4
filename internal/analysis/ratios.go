// Package analysis derives financial ratios and trend statistics from
// fetched metric rows. All arithmetic operates on USD-millions values
// as produced by the ciq package.
package analysis

import (
	"sort"

	"github.com/decksmithhq/decksmith/internal/ciq"
)

// ratioDef computes one derived ratio from a year's metric values.
// ok=false skips the year (missing inputs or zero denominator).
type ratioDef struct {
	name    string
	compute func(m map[string]float64) (float64, bool)
}

// ratioDefs lists the derived ratios in presentation order.
var ratioDefs = []ratioDef{
	{"EBITDA_MARGIN", func(m map[string]float64) (float64, bool) {
		return pctOf(m, "EBITDA", "Revenue")
	}},
	{"EBIT_MARGIN", func(m map[string]float64) (float64, bool) {
		return pctOf(m, "EBIT", "Revenue")
	}},
	{"NET_PROFIT_MARGIN", func(m map[string]float64) (float64, bool) {
		return pctOf(m, "Net Income", "Revenue")
	}},
	{"ROA", func(m map[string]float64) (float64, bool) {
		return pctOf(m, "Net Income", "Total Assets")
	}},
	{"CASH_RATIO", func(m map[string]float64) (float64, bool) {
		return ratioOf(m, "Cash & Equivalents", "Total Liabilities")
	}},
	{"DEBT_TO_ASSET_RATIO", func(m map[string]float64) (float64, bool) {
		return ratioOf(m, "Total Liabilities", "Total Assets")
	}},
	{"EQUITY", func(m map[string]float64) (float64, bool) {
		assets, aOK := m["Total Assets"]
		liabilities, lOK := m["Total Liabilities"]
		if !aOK || !lOK {
			return 0, false
		}
		return assets - liabilities, true
	}},
	{"DEBT_TO_EQUITY_RATIO", func(m map[string]float64) (float64, bool) {
		assets, aOK := m["Total Assets"]
		liabilities, lOK := m["Total Liabilities"]
		if !aOK || !lOK {
			return 0, false
		}
		equity := assets - liabilities
		if equity == 0 {
			return 0, false
		}
		return liabilities / equity, true
	}},
}

func pctOf(m map[string]float64, num, den string) (float64, bool) {
	n, nOK := m[num]
	d, dOK := m[den]
	if !nOK || !dOK || d == 0 {
		return 0, false
	}
	return n / d * 100, true
}

func ratioOf(m map[string]float64, num, den string) (float64, bool) {
	n, nOK := m[num]
	d, dOK := m[den]
	if !nOK || !dOK || d == 0 {
		return 0, false
	}
	return n / d, true
}

// RatioNames returns the derived ratio names in presentation order.
func RatioNames() []string {
	names := make([]string, len(ratioDefs))
	for i, def := range ratioDefs {
		names[i] = def.name
	}
	return names
}

// MetricsByYear pivots rows into year -> metric name -> value.
func MetricsByYear(rows []ciq.Row) map[int]map[string]float64 {
	byYear := map[int]map[string]float64{}
	for _, row := range rows {
		m, ok := byYear[row.Year]
		if !ok {
			m = map[string]float64{}
			byYear[row.Year] = m
		}
		m[row.Metric] = row.Value
	}
	return byYear
}

// Years returns the distinct years present in rows, ascending.
func Years(rows []ciq.Row) []int {
	seen := map[int]bool{}
	var years []int
	for _, row := range rows {
		if !seen[row.Year] {
			seen[row.Year] = true
			years = append(years, row.Year)
		}
	}
	sort.Ints(years)
	return years
}

// DerivedRatios computes the ratio rows for each year that has the
// required inputs. Years missing a denominator (or with a zero one)
// produce no row for that ratio.
func DerivedRatios(rows []ciq.Row) []ciq.Row {
	if len(rows) == 0 {
		return nil
	}
	ticker := rows[0].Ticker
	byYear := MetricsByYear(rows)
	years := Years(rows)

	var out []ciq.Row
	for _, def := range ratioDefs {
		for _, year := range years {
			v, ok := def.compute(byYear[year])
			if !ok {
				continue
			}
			out = append(out, ciq.Row{
				Ticker:   ticker,
				Mnemonic: def.name,
				Metric:   def.name,
				Year:     year,
				Value:    v,
				Currency: "USD",
			})
		}
	}
	return out
}
