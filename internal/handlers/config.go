package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/config"
)

// ConfigHandler serves the credential form and the connection test.
type ConfigHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	cfg       *config.Config
	saveFn    func() error
	testFn    func(context.Context) error

	mu       sync.Mutex
	lastTest string
	testedAt time.Time
}

// NewConfigHandler creates a config handler. saveFn persists the
// credentials, testFn exercises them against the API token endpoint.
func NewConfigHandler(logger *common.Logger, devMode bool, cfg *config.Config, saveFn func() error, testFn func(context.Context) error) *ConfigHandler {
	return &ConfigHandler{
		logger:    logger,
		templates: LoadTemplates(),
		devMode:   devMode,
		cfg:       cfg,
		saveFn:    saveFn,
		testFn:    testFn,
	}
}

// HandleConfig serves GET /config.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	lastTest := h.lastTest
	testedAt := h.testedAt
	h.mu.Unlock()

	query := r.URL.Query()
	data := map[string]interface{}{
		"Page":          "config",
		"DevMode":       h.devMode,
		"Version":       common.GetVersion(),
		"CSRFToken":     csrfToken(r),
		"Username":      h.cfg.CIQ.Username,
		"PasswordSet":   h.cfg.CIQ.Password != "",
		"APIKeyPreview": keyPreview(h.cfg.CIQ.APIKey),
		"BaseURL":       h.cfg.CIQ.BaseURL,
		"Configured":    h.cfg.CIQ.Configured(),
		"Saved":         query.Get("saved") == "1",
		"Tested":        query.Get("tested") == "ok",
		"Error":         query.Get("error"),
		"LastTest":      lastTest,
		"TestedAt":      testedAt,
	}

	if err := h.templates.ExecuteTemplate(w, "config.html", data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", "config.html").Str("error", err.Error()).Msg("failed to render config")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// keyPreview shows only the tail of a stored secret.
func keyPreview(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return key
	}
	return "..." + key[len(key)-4:]
}

// HandleSaveConfig handles POST /config.
func (h *ConfigHandler) HandleSaveConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	baseURL := strings.TrimSpace(r.FormValue("base_url"))

	// An empty password field keeps the stored one.
	if password == "" {
		password = h.cfg.CIQ.Password
	}

	if err := config.ValidateCredentials(username, password, baseURL); err != nil {
		redirectError(w, r, "/config", firstIssue(err))
		return
	}

	h.cfg.CIQ.Username = username
	h.cfg.CIQ.Password = password
	h.cfg.CIQ.APIKey = apiKey
	if baseURL != "" {
		h.cfg.CIQ.BaseURL = baseURL
	}

	if h.saveFn != nil {
		if err := h.saveFn(); err != nil {
			if h.logger != nil {
				h.logger.Error().Str("error", err.Error()).Msg("failed to save credentials")
			}
			redirectError(w, r, "/config", "saving credentials failed")
			return
		}
	}

	if h.logger != nil {
		h.logger.Info().Str("username", username).Msg("Credentials saved")
	}
	http.Redirect(w, r, "/config?saved=1", http.StatusFound)
}

// HandleTestConfig handles POST /config/test.
func (h *ConfigHandler) HandleTestConfig(w http.ResponseWriter, r *http.Request) {
	if h.testFn == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	err := h.testFn(r.Context())

	h.mu.Lock()
	h.testedAt = time.Now()
	if err != nil {
		h.lastTest = "failed: " + err.Error()
	} else {
		h.lastTest = "ok"
	}
	h.mu.Unlock()

	if err != nil {
		redirectError(w, r, "/config", "connection test failed: "+err.Error())
		return
	}
	http.Redirect(w, r, "/config?tested=ok", http.StatusFound)
}
