// Package handlers contains the HTTP handlers behind the portal pages,
// the slide builder form posts, and the export downloads.
package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/decksmithhq/decksmith/internal/common"
)

// PageHandler serves HTML pages rendered with Go templates.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
}

// NewPageHandler creates a page handler that loads templates from the
// pages directory.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	return &PageHandler{
		logger:    logger,
		templates: LoadTemplates(),
		devMode:   devMode,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// LoadTemplates parses the page templates plus partials. Panics when
// the pages directory is missing, which fails startup loudly.
func LoadTemplates() *template.Template {
	pagesDir := FindPagesDir()

	templates := template.Must(template.ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return templates
}

// ServePage creates a handler function for serving a specific page template.
func (h *PageHandler) ServePage(templateName string, pageName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"Page":    pageName,
			"DevMode": h.devMode,
			"Version": common.GetVersion(),
		}

		h.render(w, templateName, data)
	}
}

// reasonMessages maps error-page reason codes to friendly text.
var reasonMessages = map[string]string{
	"empty_deck":       "Your deck has no slides yet. Add a few in the builder first.",
	"nothing_selected": "Every slide is excluded from this export. Include at least one slide on the preview page.",
	"slide_not_found":  "That slide no longer exists. It may have been deleted in another tab.",
	"slide_required":   "Pick a slide to export its data.",
	"no_data":          "There is no financial data to export for this selection.",
	"export_failed":    "Generating the file failed. Try the export again.",
}

// HandleError serves GET /error?reason=<code>.
func (h *PageHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	message, ok := reasonMessages[reason]
	if !ok {
		message = "Something went wrong."
	}

	data := map[string]interface{}{
		"Page":    "error",
		"DevMode": h.devMode,
		"Version": common.GetVersion(),
		"Reason":  reason,
		"Message": message,
	}

	h.render(w, "error.html", data)
}

func (h *PageHandler) render(w http.ResponseWriter, templateName string, data map[string]interface{}) {
	if err := h.templates.ExecuteTemplate(w, templateName, data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", templateName).Str("error", err.Error()).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")

	name := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, filepath.Clean("/"+name))

	// Reject paths that escape the static dir.
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFullPath, absStaticDir) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
