package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
	"github.com/decksmithhq/decksmith/internal/export"
	"github.com/decksmithhq/decksmith/internal/pptx"
)

// toolCount is the size of the registered tool set.
const toolCount = 5

// ratioInputs are the mnemonics the derived ratios are computed from.
var ratioInputs = []string{
	"IQ_TOTAL_REV",
	"IQ_NI",
	"IQ_EBITDA",
	"IQ_EBIT",
	"IQ_TOTAL_ASSETS",
	"IQ_TOTAL_LIAB",
	"IQ_CASH_EQUIV",
}

// registerTools adds the DeckSmith tool set to the MCP server.
func registerTools(s *server.MCPServer, deps Tools, logger *common.Logger) {
	s.AddTool(VersionTool(), VersionToolHandler())
	s.AddTool(FetchFinancialsTool(), FetchFinancialsHandler(deps))
	s.AddTool(CompanyRatiosTool(), CompanyRatiosHandler(deps))
	s.AddTool(TrendSummaryTool(), TrendSummaryHandler(deps))
	s.AddTool(GeneratePresentationTool(), GeneratePresentationHandler(deps, logger))
}

// FetchFinancialsTool returns the tool definition for fetch_financials.
func FetchFinancialsTool() mcp.Tool {
	return mcp.NewTool("fetch_financials",
		mcp.WithDescription("Fetch fiscal-year financial metrics for a company ticker. Monetary values are in USD millions."),
		mcp.WithString("ticker",
			mcp.Description("Company ticker, e.g. AAPL"),
			mcp.Required()),
		mcp.WithNumber("years",
			mcp.Description("Years of history, 1-10 (default 5)")),
		mcp.WithArray("metrics",
			mcp.WithStringItems(),
			mcp.Description("CIQ mnemonics to fetch, e.g. IQ_TOTAL_REV; defaults to the configured set")),
	)
}

// FetchFinancialsHandler returns the handler for fetch_financials.
func FetchFinancialsHandler(deps Tools) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spec := &deck.DataSpec{
			Ticker:  r.GetString("ticker", ""),
			Years:   intArg(r, "years", 0),
			Metrics: stringsArg(r, "metrics"),
		}
		deps.Service.Normalize(spec)
		if err := spec.Validate(); err != nil {
			return errorResult("Error: " + err.Error()), nil
		}

		rows, err := deps.Service.Fetch(ctx, spec.Ticker, spec.Metrics, spec.Years)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		if rows == nil {
			rows = []ciq.Row{}
		}

		out, err := json.Marshal(rows)
		if err != nil {
			return errorResult("failed to marshal rows"), nil
		}
		return textResult(string(out)), nil
	}
}

// CompanyRatiosTool returns the tool definition for company_ratios.
func CompanyRatiosTool() mcp.Tool {
	return mcp.NewTool("company_ratios",
		mcp.WithDescription("Compute derived financial ratios (margins, ROA, leverage, equity) per fiscal year for a ticker."),
		mcp.WithString("ticker",
			mcp.Description("Company ticker, e.g. AAPL"),
			mcp.Required()),
		mcp.WithNumber("years",
			mcp.Description("Years of history, 1-10 (default 5)")),
	)
}

// CompanyRatiosHandler returns the handler for company_ratios.
func CompanyRatiosHandler(deps Tools) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spec := &deck.DataSpec{
			Ticker:  r.GetString("ticker", ""),
			Years:   intArg(r, "years", 0),
			Metrics: append([]string(nil), ratioInputs...),
		}
		deps.Service.Normalize(spec)
		if err := spec.Validate(); err != nil {
			return errorResult("Error: " + err.Error()), nil
		}

		rows, err := deps.Service.Fetch(ctx, spec.Ticker, spec.Metrics, spec.Years)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		ratios := analysis.DerivedRatios(rows)
		if ratios == nil {
			ratios = []ciq.Row{}
		}

		out, err := json.Marshal(ratios)
		if err != nil {
			return errorResult("failed to marshal ratios"), nil
		}
		return textResult(string(out)), nil
	}
}

// TrendSummaryTool returns the tool definition for trend_summary.
func TrendSummaryTool() mcp.Tool {
	return mcp.NewTool("trend_summary",
		mcp.WithDescription("Summarize one metric's trend for a ticker: latest, average, min, max, CAGR and recent direction."),
		mcp.WithString("ticker",
			mcp.Description("Company ticker, e.g. AAPL"),
			mcp.Required()),
		mcp.WithString("metric",
			mcp.Description("Metric mnemonic or display name, e.g. IQ_TOTAL_REV or Revenue"),
			mcp.Required()),
		mcp.WithNumber("years",
			mcp.Description("Years of history, 1-10 (default 5)")),
	)
}

// resolveMnemonic accepts either a mnemonic or a display name.
func resolveMnemonic(metric string) (string, bool) {
	if ciq.IsKnownMnemonic(metric) {
		return strings.ToUpper(metric), true
	}
	for _, m := range ciq.KnownMnemonics() {
		if strings.EqualFold(ciq.MetricName(m), metric) {
			return m, true
		}
	}
	return "", false
}

// TrendSummaryHandler returns the handler for trend_summary.
func TrendSummaryHandler(deps Tools) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mnemonic, ok := resolveMnemonic(strings.TrimSpace(r.GetString("metric", "")))
		if !ok {
			return errorResult("Error: unknown metric, use a CIQ mnemonic such as IQ_TOTAL_REV"), nil
		}

		spec := &deck.DataSpec{
			Ticker:  r.GetString("ticker", ""),
			Years:   intArg(r, "years", 0),
			Metrics: []string{mnemonic},
		}
		deps.Service.Normalize(spec)
		if err := spec.Validate(); err != nil {
			return errorResult("Error: " + err.Error()), nil
		}

		rows, err := deps.Service.Fetch(ctx, spec.Ticker, spec.Metrics, spec.Years)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		name := ciq.MetricName(mnemonic)
		for _, s := range ciq.SeriesFromRows(rows) {
			if s.Metric != name {
				continue
			}
			sum := analysis.Summarize(s)
			payload := struct {
				analysis.Summary
				Line string `json:"summary"`
			}{sum, analysis.SummaryLine(sum)}

			out, err := json.Marshal(payload)
			if err != nil {
				return errorResult("failed to marshal summary"), nil
			}
			return textResult(string(out)), nil
		}
		return errorResult(fmt.Sprintf("Error: no %s data returned for %s", name, spec.Ticker)), nil
	}
}

// GeneratePresentationTool returns the tool definition for generate_presentation.
func GeneratePresentationTool() mcp.Tool {
	return mcp.NewTool("generate_presentation",
		mcp.WithDescription("Generate a one-slide financial PowerPoint for a ticker and write it to the output directory. Returns the file path."),
		mcp.WithString("ticker",
			mcp.Description("Company ticker, e.g. AAPL"),
			mcp.Required()),
		mcp.WithString("ticker2",
			mcp.Description("Optional comparison ticker")),
		mcp.WithNumber("years",
			mcp.Description("Years of history, 1-10 (default 5)")),
		mcp.WithString("kind",
			mcp.Description("Slide kind: chart or table (default chart)")),
	)
}

// GeneratePresentationHandler returns the handler for generate_presentation.
func GeneratePresentationHandler(deps Tools, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := deck.KindChart
		if k := strings.TrimSpace(r.GetString("kind", "")); k != "" {
			parsed, err := deck.ParseKind(k)
			if err != nil || !parsed.NeedsData() {
				return errorResult("Error: kind must be chart or table"), nil
			}
			kind = parsed
		}

		slide := deck.Slide{
			ID:        "slide_1",
			Position:  1,
			Title:     "Financial Overview",
			Kind:      kind,
			Selection: deck.DefaultSelection(),
			Data: &deck.DataSpec{
				Ticker:        r.GetString("ticker", ""),
				CompareTicker: r.GetString("ticker2", ""),
				Years:         intArg(r, "years", 0),
			},
		}
		deps.Service.Normalize(slide.Data)
		if err := slide.Validate(); err != nil {
			return errorResult("Error: " + err.Error()), nil
		}

		if err := deps.Service.Populate(ctx, &slide); err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		data, err := deps.Generator.Build([]deck.Slide{slide}, pptx.Options{
			Title: slide.Data.Ticker + " Financial Analysis",
		})
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		dir := deps.OutputDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errorResult(fmt.Sprintf("Error: creating output dir: %v", err)), nil
		}

		path := filepath.Join(dir, export.SlideDeckFilename(slide))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errorResult(fmt.Sprintf("Error: writing presentation: %v", err)), nil
		}

		if logger != nil {
			logger.Info().Str("path", path).Int("bytes", len(data)).Msg("Presentation generated")
		}

		// Content slide plus the opener and closer.
		out, err := json.Marshal(map[string]interface{}{
			"path":        path,
			"slide_count": 3,
			"bytes":       len(data),
		})
		if err != nil {
			return errorResult("failed to marshal result"), nil
		}
		return textResult(string(out)), nil
	}
}
