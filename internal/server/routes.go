package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page routes (HTML templates)
	mux.HandleFunc("/", s.app.PageHandler.ServePage("landing.html", "home"))
	mux.HandleFunc("GET /error", s.app.PageHandler.HandleError)

	// Deck builder: slide list plus form posts
	mux.HandleFunc("GET /builder", s.app.BuilderHandler.HandleBuilder)
	mux.HandleFunc("POST /builder/slides", s.app.BuilderHandler.HandleAddSlide)
	mux.HandleFunc("POST /builder/slides/update", s.app.BuilderHandler.HandleUpdateSlide)
	mux.HandleFunc("POST /builder/slides/delete", s.app.BuilderHandler.HandleDeleteSlide)
	mux.HandleFunc("POST /builder/slides/move", s.app.BuilderHandler.HandleMoveSlide)

	// Credentials page
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("POST /config/test", s.app.ConfigHandler.HandleTestConfig)

	// Preview and export selection
	mux.HandleFunc("GET /preview", s.app.PreviewHandler.HandlePreview)
	mux.HandleFunc("POST /preview/selection", s.app.PreviewHandler.HandleSelection)

	// Downloads
	mux.HandleFunc("GET /export/pptx", s.app.ExportHandler.HandlePPTX)
	mux.HandleFunc("GET /export/csv", s.app.ExportHandler.HandleCSV)
	mux.HandleFunc("GET /export/xlsx", s.app.ExportHandler.HandleXLSX)

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleConfig dispatches the credentials page by method: GET renders
// the form, POST saves it.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.ConfigHandler.HandleConfig,
		"POST": s.app.ConfigHandler.HandleSaveConfig,
	})
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
