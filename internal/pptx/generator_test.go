package pptx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/deck"
)

func textSlide(title, body string) deck.Slide {
	return deck.Slide{
		ID: "slide_" + title, Title: title, Kind: deck.KindText,
		Body: body, Selection: deck.DefaultSelection(),
	}
}

func financialRows(ticker string) []ciq.Row {
	var rows []ciq.Row
	for i, metric := range []string{"Revenue", "EBITDA"} {
		for j, year := range []int{2022, 2023, 2024} {
			rows = append(rows, ciq.Row{
				Ticker: ticker, Mnemonic: metric, Metric: metric,
				Year: year, Value: float64(100*(i+1) + 50*j), Currency: "USD",
			})
		}
	}
	return rows
}

func chartSlide(title, ticker string) deck.Slide {
	return deck.Slide{
		ID: "slide_" + title, Title: title, Kind: deck.KindChart,
		Data:      &deck.DataSpec{Ticker: ticker, Years: 3, Metrics: []string{"IQ_TOTAL_REV", "IQ_EBITDA"}},
		Rows:      financialRows(ticker),
		Selection: deck.DefaultSelection(),
	}
}

func tableSlide(title, ticker string) deck.Slide {
	s := chartSlide(title, ticker)
	s.Kind = deck.KindTable
	return s
}

// readBack writes the generated bytes to disk and reads them with the
// pptx reader, returning the visible text lines per slide.
func readBack(t *testing.T, data []byte) [][]string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing deck: %v", err)
	}

	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		t.Fatalf("reading deck back: %v", err)
	}

	var out [][]string
	for _, slide := range pres.GetAllSlides() {
		var lines []string
		for _, shape := range slide.GetShapes() {
			rts, ok := shape.(*ppt.RichTextShape)
			if !ok {
				continue
			}
			for _, para := range rts.GetParagraphs() {
				var text string
				for _, elem := range para.GetElements() {
					if run, ok := elem.(*ppt.TextRun); ok {
						text += run.GetText()
					}
				}
				if text = strings.TrimSpace(text); text != "" {
					lines = append(lines, text)
				}
			}
		}
		out = append(out, lines)
	}
	return out
}

func slideContains(lines []string, want string) bool {
	for _, l := range lines {
		if strings.Contains(l, want) {
			return true
		}
	}
	return false
}

func TestBuildSlideCount(t *testing.T) {
	g := NewGenerator("", nil)
	slides := []deck.Slide{
		textSlide("one", "first"),
		textSlide("two", "second"),
		textSlide("three", "third"),
	}

	data, err := g.Build(slides, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	// Opener + 3 content slides + closer.
	if len(got) != 5 {
		t.Fatalf("expected 5 slides, got %d", len(got))
	}
	if !slideContains(got[0], DefaultTitle) {
		t.Errorf("opener missing default title: %v", got[0])
	}
	if !slideContains(got[4], "Thank You") {
		t.Errorf("closer missing thank-you text: %v", got[4])
	}
}

func TestBuildPreservesOrder(t *testing.T) {
	g := NewGenerator("", nil)
	slides := []deck.Slide{
		textSlide("alpha", "a"),
		textSlide("beta", "b"),
		textSlide("gamma", "c"),
	}

	data, err := g.Build(slides, Options{Title: "Ordered Deck"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if !slideContains(got[i+1], want) {
			t.Errorf("slide %d should contain %q: %v", i+1, want, got[i+1])
		}
	}
}

func TestBuildEmptyDeckRejected(t *testing.T) {
	g := NewGenerator("", nil)

	if _, err := g.Build(nil, Options{}); err != deck.ErrEmptyDeck {
		t.Errorf("expected ErrEmptyDeck, got %v", err)
	}
}

func TestBuildAllExcludedRejected(t *testing.T) {
	g := NewGenerator("", nil)
	s := textSlide("one", "body")
	s.Selection.IncludeSlide = false

	if _, err := g.Build([]deck.Slide{s}, Options{}); err != ErrNothingSelected {
		t.Errorf("expected ErrNothingSelected, got %v", err)
	}
}

func TestBuildSkipsExcludedSlides(t *testing.T) {
	g := NewGenerator("", nil)
	hidden := textSlide("hidden", "x")
	hidden.Selection.IncludeSlide = false
	slides := []deck.Slide{textSlide("kept", "y"), hidden}

	data, err := g.Build(slides, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	if len(got) != 3 {
		t.Fatalf("expected 3 slides (opener, kept, closer), got %d", len(got))
	}
	for _, lines := range got {
		if slideContains(lines, "hidden") {
			t.Error("excluded slide leaked into the export")
		}
	}
}

func TestBuildBulletSlide(t *testing.T) {
	g := NewGenerator("", nil)
	s := deck.Slide{
		ID: "slide_1", Title: "Highlights", Kind: deck.KindBullets,
		Bullets:   []string{"Revenue up", "Margins stable"},
		Selection: deck.DefaultSelection(),
	}

	data, err := g.Build([]deck.Slide{s}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	if !slideContains(got[1], "• Revenue up") {
		t.Errorf("bullet glyph missing: %v", got[1])
	}
}

func TestBuildTableSlide(t *testing.T) {
	g := NewGenerator("", nil)

	data, err := g.Build([]deck.Slide{tableSlide("Financials", "AAPL")}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	body := got[1]
	if !slideContains(body, "Financials - AAPL") {
		t.Errorf("heading missing ticker: %v", body)
	}
	if !slideContains(body, "Year") || !slideContains(body, "2024") {
		t.Errorf("table headers or year rows missing: %v", body)
	}
	if !slideContains(body, "$100.00M") {
		t.Errorf("monetary formatting missing: %v", body)
	}
}

func TestBuildChartSlideEmbedsImage(t *testing.T) {
	g := NewGenerator("", nil)

	data, err := g.Build([]deck.Slide{chartSlide("Revenue", "AAPL")}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	body := got[1]
	// Chart slides carry the image plus a legend, not table cells.
	if slideContains(body, "Year") {
		t.Errorf("chart slide should not render a table: %v", body)
	}
	if !slideContains(body, "Revenue") {
		t.Errorf("legend label missing: %v", body)
	}
	// The PNG payload lands inside the package media parts.
	if !bytes.Contains(data, []byte("media/")) {
		t.Error("generated package has no embedded media")
	}
}

func TestBuildChartExcludedFallsBackToTable(t *testing.T) {
	g := NewGenerator("", nil)
	s := chartSlide("Revenue", "AAPL")
	s.Selection.IncludeChart = false

	data, err := g.Build([]deck.Slide{s}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	if !slideContains(got[1], "Year") {
		t.Errorf("expected table fallback when chart excluded: %v", got[1])
	}
}

func TestBuildComparisonTable(t *testing.T) {
	g := NewGenerator("", nil)
	s := tableSlide("Compare", "AAPL")
	s.Data.CompareTicker = "MSFT"
	s.CompareRows = financialRows("MSFT")

	data, err := g.Build([]deck.Slide{s}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	body := got[1]
	if !slideContains(body, "Compare - AAPL vs MSFT") {
		t.Errorf("comparison heading wrong: %v", body)
	}
	if !slideContains(body, "(AAPL)") || !slideContains(body, "(MSFT)") {
		t.Errorf("interleaved ticker columns missing: %v", body)
	}
}

func TestBuildChartWithNoDataFallsBack(t *testing.T) {
	g := NewGenerator("", nil)
	s := chartSlide("Empty", "AAPL")
	s.Rows = nil

	data, err := g.Build([]deck.Slide{s}, Options{})
	if err != nil {
		t.Fatalf("build should fall back, not fail: %v", err)
	}

	got := readBack(t, data)
	if !slideContains(got[1], "No data available") {
		t.Errorf("expected no-data message: %v", got[1])
	}
}

func TestBuildWithTemplate(t *testing.T) {
	// Author a two-slide template with its own opener and closer text.
	tp := ppt.New()
	opener := tp.GetActiveSlide()
	tr := opener.CreateRichTextShape().CreateTextRun("Quarterly Review")
	tr.GetFont().SetSize(36)
	closer := tp.CreateSlide()
	closer.CreateRichTextShape().CreateTextRun("See You Next Quarter")

	w, err := ppt.NewWriter(tp, ppt.WriterPowerPoint2007)
	if err != nil {
		t.Fatalf("template writer: %v", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		t.Fatalf("template write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "template.pptx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("template save: %v", err)
	}

	g := NewGenerator(path, nil)
	data, err := g.Build([]deck.Slide{textSlide("content", "x")}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got := readBack(t, data)
	if len(got) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(got))
	}
	if !slideContains(got[0], "Quarterly Review") {
		t.Errorf("template opener text not kept: %v", got[0])
	}
	if !slideContains(got[2], "See You Next Quarter") {
		t.Errorf("template closer text not moved to the end: %v", got[2])
	}
}

func TestBuildWithMissingTemplate(t *testing.T) {
	g := NewGenerator("/nonexistent/template.pptx", nil)

	data, err := g.Build([]deck.Slide{textSlide("one", "x")}, Options{Title: "My Deck"})
	if err != nil {
		t.Fatalf("missing template must not fail the build: %v", err)
	}

	got := readBack(t, data)
	if !slideContains(got[0], "My Deck") {
		t.Errorf("synthesized opener should carry the deck title: %v", got[0])
	}
	if !slideContains(got[2], "Thank you for your attention") {
		t.Errorf("synthesized closer subtitle missing: %v", got[2])
	}
}

func TestSlideTitle(t *testing.T) {
	plain := deck.Slide{Title: "Intro"}
	if got := slideTitle(plain); got != "Intro" {
		t.Errorf("got %q", got)
	}

	single := deck.Slide{Title: "Revenue", Data: &deck.DataSpec{Ticker: "AAPL"}}
	if got := slideTitle(single); got != "Revenue - AAPL" {
		t.Errorf("got %q", got)
	}

	compare := deck.Slide{Title: "Revenue", Data: &deck.DataSpec{Ticker: "AAPL", CompareTicker: "MSFT"}}
	if got := slideTitle(compare); got != "Revenue - AAPL vs MSFT" {
		t.Errorf("got %q", got)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  []string
	}{
		{"short passes through", "hello world", 20, []string{"hello world"}},
		{"wraps on words", "alpha beta gamma", 11, []string{"alpha beta", "gamma"}},
		{"splits oversized words", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"empty line", "", 10, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.line, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCommonMetrics(t *testing.T) {
	primary := []ciq.Row{
		{Metric: "Revenue", Year: 2024, Value: 1},
		{Metric: "EBITDA", Year: 2024, Value: 1},
		{Metric: "Revenue_MA3", Year: 2024, Value: 1},
		{Metric: "Net Income", Year: 2024, Value: 1},
	}
	secondary := []ciq.Row{
		{Metric: "Revenue", Year: 2024, Value: 1},
		{Metric: "Net Income", Year: 2024, Value: 1},
		{Metric: "Revenue_MA3", Year: 2024, Value: 1},
	}

	got := commonMetrics(primary, secondary, 5)
	want := []string{"Revenue", "Net Income"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if capped := commonMetrics(primary, secondary, 1); len(capped) != 1 {
		t.Errorf("cap not applied: %v", capped)
	}
}

func TestTableDataMissingValues(t *testing.T) {
	s := deck.Slide{
		Title: "Sparse", Kind: deck.KindTable,
		Data: &deck.DataSpec{Ticker: "AAPL"},
		Rows: []ciq.Row{
			{Ticker: "AAPL", Metric: "Revenue", Year: 2023, Value: 100},
			{Ticker: "AAPL", Metric: "Revenue", Year: 2024, Value: 200},
			{Ticker: "AAPL", Metric: "EBITDA", Year: 2024, Value: 50},
		},
	}

	headers, rows, _ := tableData(s)
	if headers[0] != "Year" {
		t.Errorf("first column = %q, want Year", headers[0])
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 year rows, got %d", len(rows))
	}
	// 2023 has no EBITDA.
	if rows[0][2] != "N/A" {
		t.Errorf("missing value cell = %q, want N/A", rows[0][2])
	}
}
