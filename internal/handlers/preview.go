package handlers

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// PreviewHandler serves the deck preview and export selection page.
type PreviewHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	deckFn    func(*http.Request) *deck.Deck
}

// NewPreviewHandler creates a preview handler.
func NewPreviewHandler(logger *common.Logger, devMode bool, deckFn func(*http.Request) *deck.Deck) *PreviewHandler {
	return &PreviewHandler{
		logger:    logger,
		templates: LoadTemplates(),
		devMode:   devMode,
		deckFn:    deckFn,
	}
}

// previewSlide is the view model for one slide row on the preview page.
type previewSlide struct {
	ID        string
	Position  int
	Title     string
	Kind      string
	Detail    string
	Financial bool
	IsChart   bool
	HasTrend  bool
	Summaries []string
	Selection deck.Selection
}

// summarizeSlide flattens a slide into its preview row.
func summarizeSlide(s deck.Slide) previewSlide {
	p := previewSlide{
		ID:        s.ID,
		Position:  s.Position,
		Title:     s.Title,
		Kind:      s.Kind.Label(),
		Selection: s.Selection,
	}

	switch s.Kind {
	case deck.KindText:
		p.Detail = excerpt(s.Body, 80)
	case deck.KindBullets:
		p.Detail = fmt.Sprintf("%d bullets", len(s.Bullets))
	default:
		p.Financial = true
		p.IsChart = s.Kind == deck.KindChart
		if s.Data != nil {
			p.Detail = s.Data.Ticker
			if s.Data.CompareTicker != "" {
				p.Detail += " vs " + s.Data.CompareTicker
			}
			p.Detail += fmt.Sprintf(", %d years", s.Data.Years)
			p.HasTrend = s.Data.WithTrend
		}
		for _, sum := range analysis.Summaries(s.Rows) {
			p.Summaries = append(p.Summaries, analysis.SummaryLine(sum))
		}
	}
	return p
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HandlePreview serves GET /preview.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	slides := d.Slides()
	views := make([]previewSlide, 0, len(slides))
	for _, s := range slides {
		views = append(views, summarizeSlide(s))
	}

	query := r.URL.Query()
	data := map[string]interface{}{
		"Page":      "preview",
		"DevMode":   h.devMode,
		"Version":   common.GetVersion(),
		"CSRFToken": csrfToken(r),
		"Slides":    views,
		"Empty":     len(views) == 0,
		"Saved":     query.Get("saved") == "1",
		"Error":     query.Get("error"),
	}

	if err := h.templates.ExecuteTemplate(w, "preview.html", data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", "preview.html").Str("error", err.Error()).Msg("failed to render preview")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleSelection handles POST /preview/selection. Checkboxes are
// named include_<what>_<slide id>; an unchecked box simply does not
// arrive, so every slide in the deck gets an explicit selection.
func (h *PreviewHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	selections := map[string]deck.Selection{}
	for _, s := range d.Slides() {
		selections[s.ID] = deck.Selection{
			IncludeSlide: r.Form.Has("include_slide_" + s.ID),
			IncludeChart: r.Form.Has("include_chart_" + s.ID),
			IncludeCAGR:  r.Form.Has("include_cagr_" + s.ID),
		}
	}
	d.ApplySelections(selections)

	http.Redirect(w, r, "/preview?saved=1", http.StatusFound)
}
