package deck

import (
	"context"
	"fmt"
	"strings"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/cache"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
)

// Fetcher retrieves fiscal-year financial rows for a company.
type Fetcher interface {
	FetchFinancials(ctx context.Context, ticker string, mnemonics []string, years int) ([]ciq.Row, error)
}

// Service fills chart and table slides with financial data, caching
// raw fetches so edits and re-adds for the same company are free.
type Service struct {
	fetcher        Fetcher
	rows           *cache.RowCache
	logger         *common.Logger
	defaultYears   int
	defaultMetrics []string
}

// NewService wires the data service. defaultYears and defaultMetrics
// fill in requests that leave them unset.
func NewService(fetcher Fetcher, rows *cache.RowCache, defaultYears int, defaultMetrics []string, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if defaultYears < 1 || defaultYears > 10 {
		defaultYears = 5
	}
	return &Service{
		fetcher:        fetcher,
		rows:           rows,
		logger:         logger,
		defaultYears:   defaultYears,
		defaultMetrics: defaultMetrics,
	}
}

// DefaultYears returns the configured fallback year span.
func (s *Service) DefaultYears() int {
	return s.defaultYears
}

// DefaultMetrics returns a copy of the configured fallback mnemonics.
func (s *Service) DefaultMetrics() []string {
	out := make([]string, len(s.defaultMetrics))
	copy(out, s.defaultMetrics)
	return out
}

// Normalize fills defaults into a data request and uppercases tickers.
// Call before Validate so form submissions with blank optional fields
// pass validation.
func (s *Service) Normalize(d *DataSpec) {
	d.Ticker = strings.ToUpper(strings.TrimSpace(d.Ticker))
	d.CompareTicker = strings.ToUpper(strings.TrimSpace(d.CompareTicker))
	if d.Years == 0 {
		d.Years = s.defaultYears
	}
	if len(d.Metrics) == 0 {
		d.Metrics = s.DefaultMetrics()
	}
	if d.WithTrend && len(d.MAWindows) == 0 {
		d.MAWindows = append([]int(nil), analysis.DefaultMAWindows...)
	}
}

// Fetch returns raw rows for one company, serving from cache when the
// same ticker, span and metric set was fetched recently.
func (s *Service) Fetch(ctx context.Context, ticker string, metrics []string, years int) ([]ciq.Row, error) {
	if years == 0 {
		years = s.defaultYears
	}
	if len(metrics) == 0 {
		metrics = s.DefaultMetrics()
	}

	key := cache.MakeKey(ticker, years, metrics)
	if s.rows != nil {
		if cached, ok := s.rows.Get(key); ok {
			s.logger.Debug().Str("ticker", ticker).Int("rows", len(cached)).Msg("Row cache hit")
			return cached, nil
		}
	}

	rows, err := s.fetcher.FetchFinancials(ctx, ticker, metrics, years)
	if err != nil {
		return nil, err
	}
	if s.rows != nil {
		s.rows.Set(key, rows)
	}
	return rows, nil
}

// Populate fetches and derives the rows a chart or table slide needs.
// Text and bullet slides pass through untouched.
func (s *Service) Populate(ctx context.Context, slide *Slide) error {
	if !slide.Kind.NeedsData() || slide.Data == nil {
		return nil
	}
	d := slide.Data

	rows, err := s.Fetch(ctx, d.Ticker, d.Metrics, d.Years)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", d.Ticker, err)
	}
	slide.Rows = analysis.Enrich(rows, d.WithRatios, d.WithTrend, d.MAWindows)

	slide.CompareRows = nil
	if d.CompareTicker != "" {
		compareRows, err := s.Fetch(ctx, d.CompareTicker, d.Metrics, d.Years)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", d.CompareTicker, err)
		}
		slide.CompareRows = analysis.Enrich(compareRows, d.WithRatios, d.WithTrend, d.MAWindows)
	}

	s.logger.Info().
		Str("ticker", d.Ticker).
		Str("compare", d.CompareTicker).
		Int("rows", len(slide.Rows)).
		Msg("Slide data populated")
	return nil
}
