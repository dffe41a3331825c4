package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
	"github.com/decksmithhq/decksmith/internal/export"
	"github.com/decksmithhq/decksmith/internal/pptx"
)

const (
	contentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

// ExportHandler streams generated decks and data files as downloads.
type ExportHandler struct {
	logger    *common.Logger
	deckFn    func(*http.Request) *deck.Deck
	generator *pptx.Generator
	now       func() time.Time
}

// NewExportHandler creates an export handler.
func NewExportHandler(logger *common.Logger, deckFn func(*http.Request) *deck.Deck, generator *pptx.Generator) *ExportHandler {
	return &ExportHandler{
		logger:    logger,
		deckFn:    deckFn,
		generator: generator,
		now:       time.Now,
	}
}

// HandlePPTX handles GET /export/pptx. With ?slide=<id> it exports a
// single-slide presentation instead of the whole deck.
func (h *ExportHandler) HandlePPTX(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	if id := r.URL.Query().Get("slide"); id != "" {
		s, ok := d.Get(id)
		if !ok {
			http.Redirect(w, r, "/error?reason=slide_not_found", http.StatusFound)
			return
		}
		// Exporting one slide directly overrides its exclusion.
		s.Selection.IncludeSlide = true

		data, err := h.generator.Build([]deck.Slide{s}, pptx.Options{Title: s.Title})
		if err != nil {
			h.exportFailed(w, r, err)
			return
		}
		serveDownload(w, contentTypePPTX, export.SlideDeckFilename(s), data)
		return
	}

	data, err := h.generator.Build(d.Slides(), pptx.Options{})
	if err != nil {
		h.exportFailed(w, r, err)
		return
	}
	serveDownload(w, contentTypePPTX, export.DeckFilename(h.now()), data)
}

// HandleCSV handles GET /export/csv?slide=<id>.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	id := r.URL.Query().Get("slide")
	if id == "" {
		http.Redirect(w, r, "/error?reason=slide_required", http.StatusFound)
		return
	}
	s, ok := d.Get(id)
	if !ok {
		http.Redirect(w, r, "/error?reason=slide_not_found", http.StatusFound)
		return
	}

	data, err := export.SlideCSV(s)
	if err != nil {
		h.exportFailed(w, r, err)
		return
	}
	serveDownload(w, contentTypeCSV, export.DataFilename(s, "csv"), data)
}

// HandleXLSX handles GET /export/xlsx. With ?slide=<id> the workbook
// holds that slide's sheet only.
func (h *ExportHandler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	d := sessionDeck(w, h.deckFn, r)
	if d == nil {
		return
	}

	if id := r.URL.Query().Get("slide"); id != "" {
		s, ok := d.Get(id)
		if !ok {
			http.Redirect(w, r, "/error?reason=slide_not_found", http.StatusFound)
			return
		}
		data, err := export.SlideWorkbook(s)
		if err != nil {
			h.exportFailed(w, r, err)
			return
		}
		serveDownload(w, contentTypeXLSX, export.DataFilename(s, "xlsx"), data)
		return
	}

	data, err := export.DeckWorkbook(d.Slides())
	if err != nil {
		h.exportFailed(w, r, err)
		return
	}
	serveDownload(w, contentTypeXLSX, export.WorkbookFilename(h.now()), data)
}

// exportFailed maps generation errors to error page reasons. Anything
// unexpected is logged and reported generically.
func (h *ExportHandler) exportFailed(w http.ResponseWriter, r *http.Request, err error) {
	reason := "export_failed"
	switch {
	case errors.Is(err, deck.ErrEmptyDeck):
		reason = "empty_deck"
	case errors.Is(err, pptx.ErrNothingSelected):
		reason = "nothing_selected"
	case errors.Is(err, export.ErrNoData), errors.Is(err, export.ErrNoFinancialSlides):
		reason = "no_data"
	default:
		if h.logger != nil {
			h.logger.Error().Str("error", err.Error()).Msg("export failed")
		}
	}
	http.Redirect(w, r, "/error?reason="+reason, http.StatusFound)
}

// serveDownload writes a file attachment response.
func serveDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
