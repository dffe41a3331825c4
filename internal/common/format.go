// Package common provides shared utilities for DeckSmith
package common

import (
	"fmt"
	"strings"
)

// groupThousands inserts comma separators into a whole-number string.
func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

// FormatMoney formats a float as a dollar amount with comma separators
func FormatMoney(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	s := groupThousands(fmt.Sprintf("%d", whole))

	if negative {
		return fmt.Sprintf("-$%s.%02d", s, cents)
	}
	return fmt.Sprintf("$%s.%02d", s, cents)
}

// FormatMillions formats a USD-millions value as "$1,234.56M".
// Table cells and axis labels use this for monetary metrics.
func FormatMillions(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	s := groupThousands(fmt.Sprintf("%d", whole))

	if negative {
		return fmt.Sprintf("-$%s.%02dM", s, cents)
	}
	return fmt.Sprintf("$%s.%02dM", s, cents)
}

// FormatSignedPct formats a percentage with +/- prefix
func FormatSignedPct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// ratioMarkers identify metric names whose values are ratios or
// percentages rather than USD-millions amounts.
var ratioMarkers = []string{"MARGIN", "RATIO", "ROA", "P/E", "CAGR"}

// trimMASuffix strips a trailing moving-average suffix ("_MA3") so the
// base metric decides the classification. "_MA" not followed by digits
// is part of the metric name (e.g. EBITDA_MARGIN) and stays.
func trimMASuffix(name string) string {
	i := strings.LastIndex(strings.ToUpper(name), "_MA")
	if i < 0 {
		return name
	}
	rest := name[i+3:]
	if rest == "" {
		return name
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:i]
}

// IsRatioMetric reports whether a metric name denotes a ratio/percentage.
// Moving-average series inherit the classification of their base metric.
func IsRatioMetric(name string) bool {
	base := strings.ToUpper(trimMASuffix(name))
	for _, m := range ratioMarkers {
		if strings.Contains(base, m) {
			return true
		}
	}
	return false
}

// FormatCellValue renders a metric value for display. Ratios print as
// plain two-decimal numbers and share prices in dollars; everything
// else is treated as USD millions.
func FormatCellValue(metric string, v float64) string {
	if IsRatioMetric(metric) {
		return fmt.Sprintf("%.2f", v)
	}
	if strings.EqualFold(metric, "Stock Price") {
		return FormatMoney(v)
	}
	return FormatMillions(v)
}
