package mcp

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/cache"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
	"github.com/decksmithhq/decksmith/internal/pptx"
)

// --- Helpers ---

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

// stubBase gives each mnemonic a distinct base value so ratio math in
// tests is predictable. Values grow 8% per year.
var stubBase = map[string]float64{
	"IQ_TOTAL_REV":    1000,
	"IQ_NI":           120,
	"IQ_EBITDA":       300,
	"IQ_EBIT":         250,
	"IQ_TOTAL_ASSETS": 2400,
	"IQ_TOTAL_LIAB":   1500,
	"IQ_CASH_EQUIV":   400,
}

// stubFetcher returns deterministic rows and records fetched tickers.
type stubFetcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *stubFetcher) FetchFinancials(ctx context.Context, ticker string, mnemonics []string, years int) ([]ciq.Row, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var rows []ciq.Row
	for _, m := range mnemonics {
		base, ok := stubBase[strings.ToUpper(m)]
		if !ok {
			base = 50
		}
		for i := 0; i < years; i++ {
			rows = append(rows, ciq.Row{
				Ticker:   ticker,
				Mnemonic: strings.ToUpper(m),
				Metric:   ciq.MetricName(m),
				Year:     2025 - years + 1 + i,
				Value:    base * (1 + 0.08*float64(i)),
				Currency: "USD",
			})
		}
	}
	return rows, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newTestServer builds an MCP server backed by the stub fetcher. Each
// call gets a fresh cache so fetch-count assertions are isolated.
func newTestServer(t *testing.T, fetcher deck.Fetcher, outDir string) *mcpserver.MCPServer {
	t.Helper()
	svc := deck.NewService(fetcher, cache.New(cache.DefaultTTL, 32), 5,
		[]string{"IQ_TOTAL_REV", "IQ_EBITDA", "IQ_NI"}, testLogger())
	deps := Tools{
		Service:   svc,
		Generator: pptx.NewGenerator("", testLogger()),
		OutputDir: outDir,
	}
	return newServer(deps, testLogger())
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}

	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}

	return &toolResult
}

// extractText extracts the text field from an MCP content block.
func extractText(t *testing.T, content mcpgo.Content) string {
	t.Helper()
	contentJSON, _ := json.Marshal(content)
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

// resultText fails the test when the result is an error and returns the
// first content block's text otherwise.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected result content")
	}
	text := extractText(t, result.Content[0])
	if result.IsError {
		t.Fatalf("expected non-error result, got: %s", text)
	}
	return text
}

// --- Tool Registration Tests ---

func TestRegisterTools_Count(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	tools := listTools(t, s)
	if len(tools) != toolCount {
		t.Errorf("expected %d registered tools, got %d", toolCount, len(tools))
	}
}

func TestRegisterTools_Names(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	registered := make(map[string]bool)
	for _, tool := range listTools(t, s) {
		registered[tool.Name] = true
	}

	for _, name := range []string{
		"get_version",
		"fetch_financials",
		"company_ratios",
		"trend_summary",
		"generate_presentation",
	} {
		if !registered[name] {
			t.Errorf("expected tool %q to be registered", name)
		}
	}
}

func TestRegisterTools_Descriptions(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	for _, tool := range listTools(t, s) {
		if tool.Description == "" {
			t.Errorf("tool %q has empty description", tool.Name)
		}
	}
}

func TestFetchFinancialsTool_RequiredTicker(t *testing.T) {
	tool := FetchFinancialsTool()

	found := false
	for _, r := range tool.InputSchema.Required {
		if r == "ticker" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'ticker' in required list")
	}
	if _, exists := tool.InputSchema.Properties["metrics"]; !exists {
		t.Error("expected 'metrics' in tool schema properties")
	}
}

// --- get_version Tests ---

func TestGetVersion(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "get_version", map[string]interface{}{})
	text := resultText(t, result)

	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("failed to parse version JSON: %v", err)
	}
	if info.Name != "decksmith" {
		t.Errorf("expected name 'decksmith', got %q", info.Name)
	}
	if info.Version == "" {
		t.Error("expected non-empty version")
	}
}

// --- fetch_financials Tests ---

func TestFetchFinancials_DefaultMetrics(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{"ticker": "aapl"})
	text := resultText(t, result)

	var rows []ciq.Row
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("failed to parse rows JSON: %v", err)
	}

	// 3 default metrics x 5 default years.
	if len(rows) != 15 {
		t.Errorf("expected 15 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Ticker != "AAPL" {
			t.Errorf("expected ticker normalized to AAPL, got %q", row.Ticker)
		}
	}
	if rows[0].Metric != "Revenue" {
		t.Errorf("expected first row metric Revenue, got %q", rows[0].Metric)
	}
}

func TestFetchFinancials_ExplicitMetrics(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{
		"ticker":  "MSFT",
		"years":   3,
		"metrics": []interface{}{"IQ_TOTAL_REV"},
	})
	text := resultText(t, result)

	var rows []ciq.Row
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("failed to parse rows JSON: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Mnemonic != "IQ_TOTAL_REV" {
			t.Errorf("expected only IQ_TOTAL_REV rows, got %q", row.Mnemonic)
		}
	}
}

func TestFetchFinancials_YearsAsString(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	// JSON-RPC clients sometimes send numbers as strings.
	result := callTool(t, s, "fetch_financials", map[string]interface{}{
		"ticker":  "AAPL",
		"years":   "2",
		"metrics": []interface{}{"IQ_NI"},
	})
	text := resultText(t, result)

	var rows []ciq.Row
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("failed to parse rows JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows for years=\"2\", got %d", len(rows))
	}
}

func TestFetchFinancials_MissingTicker(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{})

	if !result.IsError {
		t.Fatal("expected error result for missing ticker")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "ticker") {
		t.Errorf("expected error to mention 'ticker', got: %s", text)
	}
}

func TestFetchFinancials_YearsOutOfRange(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{
		"ticker": "AAPL",
		"years":  15,
	})

	if !result.IsError {
		t.Fatal("expected error result for years=15")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "years") {
		t.Errorf("expected error to mention 'years', got: %s", text)
	}
}

func TestFetchFinancials_UnknownMetric(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{
		"ticker":  "AAPL",
		"metrics": []interface{}{"IQ_BOGUS"},
	})

	if !result.IsError {
		t.Fatal("expected error result for unknown metric")
	}
}

func TestFetchFinancials_FetchError(t *testing.T) {
	fetcher := &stubFetcher{err: context.DeadlineExceeded}
	s := newTestServer(t, fetcher, "")

	result := callTool(t, s, "fetch_financials", map[string]interface{}{"ticker": "AAPL"})

	if !result.IsError {
		t.Fatal("expected error result when fetch fails")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "Error") {
		t.Errorf("expected error text, got: %s", text)
	}
}

func TestFetchFinancials_SecondCallHitsCache(t *testing.T) {
	fetcher := &stubFetcher{}
	s := newTestServer(t, fetcher, "")

	for i := 0; i < 2; i++ {
		result := callTool(t, s, "fetch_financials", map[string]interface{}{"ticker": "AAPL"})
		resultText(t, result)
	}

	if fetcher.callCount() != 1 {
		t.Errorf("expected 1 upstream fetch for repeated calls, got %d", fetcher.callCount())
	}
}

// --- company_ratios Tests ---

func TestCompanyRatios_ComputesMargins(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "company_ratios", map[string]interface{}{"ticker": "AAPL"})
	text := resultText(t, result)

	var rows []ciq.Row
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("failed to parse ratio JSON: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected ratio rows")
	}

	byName := map[string]float64{}
	for _, row := range rows {
		if row.Year == 2025 {
			byName[row.Metric] = row.Value
		}
	}

	// Inputs share the 8% growth factor, so margins are flat:
	// NI/Revenue = 120/1000, EBITDA/Revenue = 300/1000.
	if v, ok := byName["NET_PROFIT_MARGIN"]; !ok || math.Abs(v-12) > 1e-9 {
		t.Errorf("expected NET_PROFIT_MARGIN 12, got %v (present=%v)", v, ok)
	}
	if v, ok := byName["EBITDA_MARGIN"]; !ok || math.Abs(v-30) > 1e-9 {
		t.Errorf("expected EBITDA_MARGIN 30, got %v (present=%v)", v, ok)
	}
	if _, ok := byName["DEBT_TO_EQUITY_RATIO"]; !ok {
		t.Error("expected DEBT_TO_EQUITY_RATIO in ratio rows")
	}
}

func TestCompanyRatios_AllNamesPresent(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "company_ratios", map[string]interface{}{"ticker": "AAPL", "years": 2})
	text := resultText(t, result)

	var rows []ciq.Row
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("failed to parse ratio JSON: %v", err)
	}

	seen := map[string]bool{}
	for _, row := range rows {
		seen[row.Metric] = true
	}
	for _, name := range analysis.RatioNames() {
		if !seen[name] {
			t.Errorf("expected ratio %q in result", name)
		}
	}
}

func TestCompanyRatios_MissingTicker(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "company_ratios", map[string]interface{}{})

	if !result.IsError {
		t.Fatal("expected error result for missing ticker")
	}
}

// --- trend_summary Tests ---

func TestTrendSummary_Mnemonic(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "trend_summary", map[string]interface{}{
		"ticker": "AAPL",
		"metric": "IQ_TOTAL_REV",
	})
	text := resultText(t, result)

	var payload struct {
		analysis.Summary
		Line string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("failed to parse summary JSON: %v", err)
	}

	if payload.Metric != "Revenue" {
		t.Errorf("expected metric Revenue, got %q", payload.Metric)
	}
	// Latest year value is 1000 * (1 + 0.08*4).
	if math.Abs(payload.Latest-1320) > 1e-6 {
		t.Errorf("expected latest 1320, got %v", payload.Latest)
	}
	if !payload.HasCAGR {
		t.Error("expected CAGR for positive growth series")
	}
	if !strings.Contains(payload.Line, "Revenue") {
		t.Errorf("expected summary line to mention Revenue, got: %s", payload.Line)
	}
}

func TestTrendSummary_DisplayName(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	// Display names are accepted case-insensitively.
	result := callTool(t, s, "trend_summary", map[string]interface{}{
		"ticker": "AAPL",
		"metric": "net income",
	})
	text := resultText(t, result)

	var payload struct {
		Metric string `json:"metric"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("failed to parse summary JSON: %v", err)
	}
	if payload.Metric != "Net Income" {
		t.Errorf("expected metric Net Income, got %q", payload.Metric)
	}
}

func TestTrendSummary_UnknownMetric(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, "")

	result := callTool(t, s, "trend_summary", map[string]interface{}{
		"ticker": "AAPL",
		"metric": "IQ_NOPE",
	})

	if !result.IsError {
		t.Fatal("expected error result for unknown metric")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "mnemonic") {
		t.Errorf("expected error to mention mnemonics, got: %s", text)
	}
}

// --- generate_presentation Tests ---

func TestGeneratePresentation_WritesFile(t *testing.T) {
	outDir := t.TempDir()
	s := newTestServer(t, &stubFetcher{}, outDir)

	result := callTool(t, s, "generate_presentation", map[string]interface{}{"ticker": "msft"})
	text := resultText(t, result)

	var out struct {
		Path       string `json:"path"`
		SlideCount int    `json:"slide_count"`
		Bytes      int    `json:"bytes"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("failed to parse result JSON: %v", err)
	}

	if filepath.Dir(out.Path) != outDir {
		t.Errorf("expected file under %s, got %s", outDir, out.Path)
	}
	if !strings.HasSuffix(out.Path, "MSFT_chart_presentation.pptx") {
		t.Errorf("unexpected filename: %s", out.Path)
	}
	if out.SlideCount != 3 {
		t.Errorf("expected 3 slides (content plus opener and closer), got %d", out.SlideCount)
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("expected presentation file on disk: %v", err)
	}
	if len(data) != out.Bytes {
		t.Errorf("expected %d bytes on disk, got %d", out.Bytes, len(data))
	}
	if len(data) < 2 || data[0] != 'P' || data[1] != 'K' {
		t.Error("expected a zip container")
	}
}

func TestGeneratePresentation_TableKind(t *testing.T) {
	outDir := t.TempDir()
	s := newTestServer(t, &stubFetcher{}, outDir)

	result := callTool(t, s, "generate_presentation", map[string]interface{}{
		"ticker": "AAPL",
		"kind":   "table",
	})
	text := resultText(t, result)

	var out struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("failed to parse result JSON: %v", err)
	}
	if !strings.HasSuffix(out.Path, "AAPL_table_presentation.pptx") {
		t.Errorf("unexpected filename: %s", out.Path)
	}
}

func TestGeneratePresentation_Comparison(t *testing.T) {
	outDir := t.TempDir()
	fetcher := &stubFetcher{}
	s := newTestServer(t, fetcher, outDir)

	result := callTool(t, s, "generate_presentation", map[string]interface{}{
		"ticker":  "AAPL",
		"ticker2": "GOOG",
	})
	text := resultText(t, result)

	var out struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("failed to parse result JSON: %v", err)
	}
	if !strings.HasSuffix(out.Path, "AAPL_vs_GOOG_chart_presentation.pptx") {
		t.Errorf("unexpected filename: %s", out.Path)
	}
	if fetcher.callCount() != 2 {
		t.Errorf("expected fetches for both tickers, got %d", fetcher.callCount())
	}
}

func TestGeneratePresentation_InvalidKind(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, t.TempDir())

	result := callTool(t, s, "generate_presentation", map[string]interface{}{
		"ticker": "AAPL",
		"kind":   "text",
	})

	if !result.IsError {
		t.Fatal("expected error result for non-data kind")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "kind") {
		t.Errorf("expected error to mention kind, got: %s", text)
	}
}

func TestGeneratePresentation_MissingTicker(t *testing.T) {
	s := newTestServer(t, &stubFetcher{}, t.TempDir())

	result := callTool(t, s, "generate_presentation", map[string]interface{}{})

	if !result.IsError {
		t.Fatal("expected error result for missing ticker")
	}
}

// --- Handler Tests ---

func TestNewHandler_NilLogger(t *testing.T) {
	svc := deck.NewService(&stubFetcher{}, cache.New(cache.DefaultTTL, 8), 5, nil, testLogger())
	h := NewHandler(Tools{Service: svc, Generator: pptx.NewGenerator("", nil)}, nil)
	if h == nil {
		t.Fatal("expected handler")
	}
}
