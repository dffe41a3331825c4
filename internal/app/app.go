// Package app wires configuration, the data service, the session store
// and the HTTP handlers into the object the server serves from.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/decksmithhq/decksmith/internal/cache"
	"github.com/decksmithhq/decksmith/internal/ciq"
	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/config"
	"github.com/decksmithhq/decksmith/internal/deck"
	"github.com/decksmithhq/decksmith/internal/handlers"
	"github.com/decksmithhq/decksmith/internal/mcp"
	"github.com/decksmithhq/decksmith/internal/pptx"
	"github.com/decksmithhq/decksmith/internal/session"
)

// rowCacheEntries caps the fetched-rows cache. Each entry is one
// ticker/metrics/years combination.
const rowCacheEntries = 256

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Sessions  *session.Store
	Client    *ciq.Client
	Service   *deck.Service
	Generator *pptx.Generator

	// HTTP handlers
	PageHandler    *handlers.PageHandler
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	BuilderHandler *handlers.BuilderHandler
	ConfigHandler  *handlers.ConfigHandler
	PreviewHandler *handlers.PreviewHandler
	ExportHandler  *handlers.ExportHandler
	MCPHandler     *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE, do not use in production")
	} else if env != "prod" && env != "production" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if !cfg.CIQ.Configured() {
		logger.Warn().Msg("API credentials not configured, chart and table slides will fail until the Config page saves them")
	}

	a.Sessions = session.NewStore(time.Duration(cfg.Session.TTLHours)*time.Hour, cfg.Session.MaxEntries)
	a.Client = ciq.NewClient(&cfg.CIQ, logger)
	a.Service = deck.NewService(a.Client, cache.New(cache.DefaultTTL, rowCacheEntries),
		cfg.Deck.DefaultYears, cfg.Deck.DefaultMetrics, logger)
	a.Generator = pptx.NewGenerator(cfg.Deck.TemplatePath, logger)

	a.initHandlers()

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.IsDevMode())
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)

	// Deck lookup by session cookie (used by builder, preview and export)
	deckFn := func(r *http.Request) *deck.Deck {
		if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
			return a.Sessions.GetOrCreate(c.Value)
		}
		// No cookie means a direct client bypassed the session
		// middleware; a throwaway deck keeps handlers nil-safe.
		return deck.New()
	}

	// Credential save via the .env file (used by the Config page)
	saveFn := func() error {
		return a.Config.SaveCredentials()
	}

	a.BuilderHandler = handlers.NewBuilderHandler(a.Logger, a.Config.IsDevMode(), deckFn, a.Service)
	a.ConfigHandler = handlers.NewConfigHandler(a.Logger, a.Config.IsDevMode(), a.Config, saveFn, a.Client.TestConnection)
	a.PreviewHandler = handlers.NewPreviewHandler(a.Logger, a.Config.IsDevMode(), deckFn)
	a.ExportHandler = handlers.NewExportHandler(a.Logger, deckFn, a.Generator)

	if a.Config.MCP.Enabled {
		a.MCPHandler = mcp.NewHandler(mcp.Tools{
			Service:   a.Service,
			Generator: a.Generator,
			OutputDir: a.Config.Deck.OutputDir,
		}, a.Logger)
	}

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
