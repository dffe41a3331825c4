package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
)

// DefaultMAWindows is used when a slide requests trend analysis
// without naming moving-average windows.
var DefaultMAWindows = []int{3}

var maSuffix = regexp.MustCompile(`_MA\d+$`)

// IsMovingAverage reports whether a metric name is a derived
// moving-average series such as "Revenue_MA3".
func IsMovingAverage(metric string) bool {
	return maSuffix.MatchString(metric)
}

// BaseMetric strips a moving-average suffix, returning the underlying
// metric name. Non-MA names pass through unchanged.
func BaseMetric(metric string) string {
	return maSuffix.ReplaceAllString(metric, "")
}

// YoYChanges returns year-over-year percentage changes aligned to
// values[1:]. Entries where the prior value is zero are NaN.
func YoYChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	changes := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			changes[i-1] = math.NaN()
			continue
		}
		changes[i-1] = (values[i] - prev) / prev * 100
	}
	return changes
}

// CAGR computes the compound annual growth rate in percent across the
// series. Requires at least two points and positive endpoints.
func CAGR(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	start, end := values[0], values[len(values)-1]
	if start <= 0 || end <= 0 {
		return 0, false
	}
	periods := float64(len(values) - 1)
	return (math.Pow(end/start, 1/periods) - 1) * 100, true
}

// MovingAverage computes a simple rolling mean over the given window.
// The returned series is trimmed to the positions where a full window
// exists, so it is window-1 entries shorter than the input.
func MovingAverage(values []float64, window int) []float64 {
	if window < 2 || len(values) < window {
		return nil
	}
	out := make([]float64, 0, len(values)-window+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// MovingAverageRows derives <metric>_MA<window> rows for every base
// metric in rows. Derived MA series are never re-averaged.
func MovingAverageRows(rows []ciq.Row, windows []int) []ciq.Row {
	if len(windows) == 0 {
		windows = DefaultMAWindows
	}
	series := ciq.SeriesFromRows(rows)
	if len(rows) == 0 {
		return nil
	}
	ticker := rows[0].Ticker

	var out []ciq.Row
	for _, s := range series {
		if IsMovingAverage(s.Metric) {
			continue
		}
		for _, window := range windows {
			ma := MovingAverage(s.Values, window)
			if ma == nil {
				continue
			}
			name := fmt.Sprintf("%s_MA%d", s.Metric, window)
			yearOffset := window - 1
			for i, v := range ma {
				out = append(out, ciq.Row{
					Ticker:   ticker,
					Mnemonic: name,
					Metric:   name,
					Year:     s.Years[yearOffset+i],
					Value:    v,
					Currency: "USD",
				})
			}
		}
	}
	return out
}

// Summary describes a metric's behavior across the fetched years.
type Summary struct {
	Metric      string  `json:"metric"`
	Latest      float64 `json:"latest"`
	Average     float64 `json:"average"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	CAGR        float64 `json:"cagr"`
	HasCAGR     bool    `json:"has_cagr"`
	RecentTrend float64 `json:"recent_trend"`
	HasTrend    bool    `json:"has_trend"`
}

// Summarize computes a Summary for one metric series. Recent trend is
// the mean of the last up-to-three defined year-over-year changes.
func Summarize(s ciq.Series) Summary {
	sum := Summary{Metric: s.Metric}
	if len(s.Values) == 0 {
		return sum
	}

	sum.Latest = s.Values[len(s.Values)-1]
	sum.Min = s.Values[0]
	sum.Max = s.Values[0]
	var total float64
	for _, v := range s.Values {
		total += v
		if v < sum.Min {
			sum.Min = v
		}
		if v > sum.Max {
			sum.Max = v
		}
	}
	sum.Average = total / float64(len(s.Values))

	if cagr, ok := CAGR(s.Values); ok {
		sum.CAGR = cagr
		sum.HasCAGR = true
	}

	changes := YoYChanges(s.Values)
	if len(changes) > 3 {
		changes = changes[len(changes)-3:]
	}
	var trendSum float64
	var trendCount int
	for _, c := range changes {
		if math.IsNaN(c) {
			continue
		}
		trendSum += c
		trendCount++
	}
	if trendCount > 0 {
		sum.RecentTrend = trendSum / float64(trendCount)
		sum.HasTrend = true
	}
	return sum
}

// Summaries computes summaries for every base metric series in rows,
// in series order. Moving-average series are excluded.
func Summaries(rows []ciq.Row) []Summary {
	var out []Summary
	for _, s := range ciq.SeriesFromRows(rows) {
		if IsMovingAverage(s.Metric) {
			continue
		}
		out = append(out, Summarize(s))
	}
	return out
}

// MetricCAGR pairs a metric with its growth rate for charting.
type MetricCAGR struct {
	Metric string
	Pct    float64
}

// CAGRByMetric computes per-metric growth rates in series order,
// skipping moving averages and series without a valid CAGR.
func CAGRByMetric(rows []ciq.Row) []MetricCAGR {
	var out []MetricCAGR
	for _, s := range ciq.SeriesFromRows(rows) {
		if IsMovingAverage(s.Metric) {
			continue
		}
		if cagr, ok := CAGR(s.Values); ok {
			out = append(out, MetricCAGR{Metric: s.Metric, Pct: cagr})
		}
	}
	return out
}

// Enrich appends derived rows to the base rows according to the
// requested analysis options. The base rows are returned first,
// then ratio rows, then moving-average rows.
func Enrich(rows []ciq.Row, withRatios, withTrend bool, maWindows []int) []ciq.Row {
	out := rows
	if withRatios {
		out = append(out, DerivedRatios(rows)...)
	}
	if withTrend {
		out = append(out, MovingAverageRows(rows, maWindows)...)
	}
	return out
}

// DescribeTrend renders a short human-readable direction word for a
// recent trend percentage.
func DescribeTrend(pct float64) string {
	switch {
	case pct > 1:
		return "rising"
	case pct < -1:
		return "falling"
	default:
		return "flat"
	}
}

// SummaryLine formats one summary as a sentence for text slides and
// tool output.
func SummaryLine(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: latest %.2f, avg %.2f, range %.2f to %.2f", s.Metric, s.Latest, s.Average, s.Min, s.Max)
	if s.HasCAGR {
		fmt.Fprintf(&b, ", CAGR %.2f%%", s.CAGR)
	}
	if s.HasTrend {
		fmt.Fprintf(&b, ", recently %s (%s)", DescribeTrend(s.RecentTrend), common.FormatSignedPct(s.RecentTrend))
	}
	return b.String()
}
