package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// BuilderHandler serves the slide builder page and its slide mutations.
type BuilderHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	deckFn    func(*http.Request) *deck.Deck
	svc       *deck.Service
}

// NewBuilderHandler creates a builder handler. deckFn resolves the
// session's deck for a request.
func NewBuilderHandler(logger *common.Logger, devMode bool, deckFn func(*http.Request) *deck.Deck, svc *deck.Service) *BuilderHandler {
	return &BuilderHandler{
		logger:    logger,
		templates: LoadTemplates(),
		devMode:   devMode,
		deckFn:    deckFn,
		svc:       svc,
	}
}

// metricOption is one metric checkbox on the builder form.
type metricOption struct {
	Mnemonic string
	Name     string
	Default  bool
}

func (h *BuilderHandler) metricOptions() []metricOption {
	defaults := map[string]bool{}
	for _, m := range h.svc.DefaultMetrics() {
		defaults[m] = true
	}

	var opts []metricOption
	for _, m := range ciq.KnownMnemonics() {
		opts = append(opts, metricOption{
			Mnemonic: m,
			Name:     ciq.MetricName(m),
			Default:  defaults[m],
		})
	}
	return opts
}

// HandleBuilder serves GET /builder.
func (h *BuilderHandler) HandleBuilder(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	query := r.URL.Query()
	data := map[string]interface{}{
		"Page":         "builder",
		"DevMode":      h.devMode,
		"Version":      common.GetVersion(),
		"CSRFToken":    csrfToken(r),
		"Slides":       d.Slides(),
		"Metrics":      h.metricOptions(),
		"DefaultYears": h.svc.DefaultYears(),
		"Added":        query.Get("added") == "1",
		"Updated":      query.Get("updated") == "1",
		"Deleted":      query.Get("deleted") == "1",
		"Error":        query.Get("error"),
	}

	if err := h.templates.ExecuteTemplate(w, "builder.html", data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", "builder.html").Str("error", err.Error()).Msg("failed to render builder")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleAddSlide handles POST /builder/slides.
func (h *BuilderHandler) HandleAddSlide(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	slide, err := h.slideFromForm(r)
	if err != nil {
		redirectError(w, r, "/builder", firstIssue(err))
		return
	}

	if err := h.svc.Populate(r.Context(), &slide); err != nil {
		redirectError(w, r, "/builder", err.Error())
		return
	}

	added := d.Add(slide)
	if h.logger != nil {
		h.logger.Info().Str("id", added.ID).Str("kind", string(added.Kind)).Msg("Slide added")
	}
	http.Redirect(w, r, "/builder?added=1", http.StatusFound)
}

// HandleUpdateSlide handles POST /builder/slides/update.
func (h *BuilderHandler) HandleUpdateSlide(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	slide, err := h.slideFromForm(r)
	if err != nil {
		redirectError(w, r, "/builder", firstIssue(err))
		return
	}

	id := strings.TrimSpace(r.FormValue("id"))
	existing, ok := d.Get(id)
	if !ok {
		redirectError(w, r, "/builder", "slide not found")
		return
	}

	// Skip the refetch when the financial inputs did not change.
	if slide.Kind.NeedsData() && !dataChanged(existing.Data, slide.Data) {
		slide.Rows = existing.Rows
		slide.CompareRows = existing.CompareRows
	} else if err := h.svc.Populate(r.Context(), &slide); err != nil {
		redirectError(w, r, "/builder", err.Error())
		return
	}

	if err := d.Update(id, slide); err != nil {
		redirectError(w, r, "/builder", "slide not found")
		return
	}
	http.Redirect(w, r, "/builder?updated=1", http.StatusFound)
}

// HandleDeleteSlide handles POST /builder/slides/delete.
func (h *BuilderHandler) HandleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := d.Remove(strings.TrimSpace(r.FormValue("id"))); err != nil {
		redirectError(w, r, "/builder", "slide not found")
		return
	}
	http.Redirect(w, r, "/builder?deleted=1", http.StatusFound)
}

// HandleMoveSlide handles POST /builder/slides/move.
func (h *BuilderHandler) HandleMoveSlide(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	dir, err := deck.ParseDirection(r.FormValue("dir"))
	if err != nil {
		redirectError(w, r, "/builder", err.Error())
		return
	}

	if err := d.Move(strings.TrimSpace(r.FormValue("id")), dir); err != nil {
		redirectError(w, r, "/builder", "slide not found")
		return
	}
	http.Redirect(w, r, "/builder", http.StatusFound)
}

// slideFromForm parses and validates the slide form. Financial fields
// are normalized (defaults, uppercased tickers) before validation.
func (h *BuilderHandler) slideFromForm(r *http.Request) (deck.Slide, error) {
	if err := r.ParseForm(); err != nil {
		return deck.Slide{}, fmt.Errorf("bad form data: %w", err)
	}

	kind, err := deck.ParseKind(r.FormValue("kind"))
	if err != nil {
		return deck.Slide{}, err
	}

	slide := deck.Slide{
		Title: strings.TrimSpace(r.FormValue("title")),
		Kind:  kind,
		Body:  strings.TrimSpace(r.FormValue("body")),
	}

	for _, line := range strings.Split(r.FormValue("bullets"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			slide.Bullets = append(slide.Bullets, line)
		}
	}

	if kind.NeedsData() {
		data, err := h.dataFromForm(r)
		if err != nil {
			return deck.Slide{}, err
		}
		slide.Data = data
	}

	if err := slide.Validate(); err != nil {
		return deck.Slide{}, err
	}
	return slide, nil
}

// dataFromForm parses the financial fields of the slide form.
func (h *BuilderHandler) dataFromForm(r *http.Request) (*deck.DataSpec, error) {
	data := &deck.DataSpec{
		Ticker:        strings.TrimSpace(r.FormValue("ticker")),
		CompareTicker: strings.TrimSpace(r.FormValue("compare_ticker")),
		Metrics:       r.Form["metrics"],
		WithRatios:    r.FormValue("with_ratios") != "",
		WithTrend:     r.FormValue("with_trend") != "",
	}

	if years := strings.TrimSpace(r.FormValue("years")); years != "" {
		n, err := strconv.Atoi(years)
		if err != nil {
			return nil, errors.New("years must be a number")
		}
		data.Years = n
	}

	if windows := strings.TrimSpace(r.FormValue("ma_windows")); windows != "" {
		for _, part := range strings.Split(windows, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 2 {
				return nil, errors.New("moving-average windows must be whole numbers of at least 2")
			}
			data.MAWindows = append(data.MAWindows, n)
		}
	}

	h.svc.Normalize(data)
	return data, nil
}

// dataChanged reports whether an edit touched the inputs that drive
// the fetch or the derived series.
func dataChanged(prev, next *deck.DataSpec) bool {
	if prev == nil || next == nil {
		return true
	}
	if prev.Ticker != next.Ticker || prev.CompareTicker != next.CompareTicker || prev.Years != next.Years {
		return true
	}
	if prev.WithRatios != next.WithRatios || prev.WithTrend != next.WithTrend {
		return true
	}
	return !slices.Equal(prev.Metrics, next.Metrics) || !slices.Equal(prev.MAWindows, next.MAWindows)
}
