package ciq

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Function identifiers for the clientservice API.
const (
	// FunctionPoint requests a single point-in-time value.
	FunctionPoint = "GDSP"
	// FunctionHistory requests a historical range.
	FunctionHistory = "GDSHE"
)

// metricNames maps CIQ mnemonics to their display names, in menu order.
var metricNames = map[string]string{
	"IQ_TOTAL_REV":    "Revenue",
	"IQ_NI":           "Net Income",
	"IQ_EBITDA":       "EBITDA",
	"IQ_EBIT":         "EBIT",
	"IQ_TOTAL_ASSETS": "Total Assets",
	"IQ_TOTAL_LIAB":   "Total Liabilities",
	"IQ_CASH_EQUIV":   "Cash & Equivalents",
	"IQ_PE_RATIO":     "P/E Ratio",
	"IQ_MARKETCAP":    "Market Cap",
	"IQ_PRICE_CLOSE":  "Stock Price",
}

// metricOrder fixes the presentation order of the known mnemonics.
var metricOrder = []string{
	"IQ_TOTAL_REV",
	"IQ_NI",
	"IQ_EBITDA",
	"IQ_EBIT",
	"IQ_TOTAL_ASSETS",
	"IQ_TOTAL_LIAB",
	"IQ_CASH_EQUIV",
	"IQ_PE_RATIO",
	"IQ_MARKETCAP",
	"IQ_PRICE_CLOSE",
}

// monetaryMnemonics are reported by the API in raw currency units and
// normalized to USD millions. Ratios and per-share prices pass through.
var monetaryMnemonics = map[string]bool{
	"IQ_TOTAL_REV":    true,
	"IQ_NI":           true,
	"IQ_EBITDA":       true,
	"IQ_EBIT":         true,
	"IQ_TOTAL_ASSETS": true,
	"IQ_TOTAL_LIAB":   true,
	"IQ_CASH_EQUIV":   true,
	"IQ_MARKETCAP":    true,
}

// MetricName returns the display name for a mnemonic, falling back to
// the mnemonic itself for unknown ones.
func MetricName(mnemonic string) string {
	if name, ok := metricNames[strings.ToUpper(mnemonic)]; ok {
		return name
	}
	return mnemonic
}

// KnownMnemonics returns the supported mnemonics in presentation order.
func KnownMnemonics() []string {
	out := make([]string, len(metricOrder))
	copy(out, metricOrder)
	return out
}

// IsKnownMnemonic reports whether the mnemonic is in the supported set.
func IsKnownMnemonic(mnemonic string) bool {
	_, ok := metricNames[strings.ToUpper(mnemonic)]
	return ok
}

// normalizeValue scales monetary values to USD millions. Values already
// expressed in millions stay untouched; the threshold separates raw
// dollar amounts (>= 1e7) from million-denominated ones.
func normalizeValue(mnemonic string, v float64) float64 {
	if !monetaryMnemonics[strings.ToUpper(mnemonic)] {
		return v
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs >= 1e7 {
		return v / 1e6
	}
	return v
}

// periodType renders the relative fiscal-year property for an offset:
// 0 -> "IQ_FY", 2 -> "IQ_FY-2".
func periodType(offset int) string {
	if offset <= 0 {
		return "IQ_FY"
	}
	return fmt.Sprintf("IQ_FY-%d", offset)
}

// latestFiscalYear is the most recent completed fiscal year, assumed to
// be the prior calendar year.
func latestFiscalYear(now time.Time) int {
	return now.Year() - 1
}

// resolveYear converts a periodType property to a calendar year.
// Accepts absolute ("FY2023") and relative ("IQ_FY", "IQ_FY-2",
// "IQ_FY+1") forms. Unparseable periods resolve to the latest fiscal
// year.
func resolveYear(period string, now time.Time) int {
	p := strings.ToUpper(strings.TrimSpace(period))
	base := latestFiscalYear(now)

	if p == "" || p == "IQ_FY" {
		return base
	}
	if strings.HasPrefix(p, "FY") {
		if y, err := strconv.Atoi(p[2:]); err == nil && y > 1900 {
			return y
		}
		return base
	}
	if strings.HasPrefix(p, "IQ_FY") {
		rest := p[len("IQ_FY"):]
		if rest == "" {
			return base
		}
		offset, err := strconv.Atoi(rest)
		if err != nil {
			return base
		}
		return base + offset
	}
	return base
}
