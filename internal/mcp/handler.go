// Package mcp exposes the portal's data and generation layer to MCP
// clients over a streamable HTTP endpoint.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
	"github.com/decksmithhq/decksmith/internal/pptx"
)

// Tools holds what the MCP tool handlers need from the rest of the app.
type Tools struct {
	Service   *deck.Service
	Generator *pptx.Generator
	OutputDir string // where generate_presentation writes files
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// newServer builds the MCP server with the DeckSmith tool set.
func newServer(deps Tools, logger *common.Logger) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		"decksmith",
		common.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	registerTools(srv, deps, logger)
	return srv
}

// NewHandler creates a new MCP handler with the DeckSmith tool set.
// The endpoint is stateless: every request carries a complete MCP
// message and no session is kept between calls.
func NewHandler(deps Tools, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	srv := newServer(deps, logger)

	streamable := mcpserver.NewStreamableHTTPServer(srv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", toolCount).Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer. The endpoint
// is anonymous like the rest of the portal.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
