package mcp

import (
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// errorResult creates an MCP error result. Tool failures are reported
// this way, never as transport errors.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// textResult wraps text in a success result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// intArg reads an integer tool argument with a default. JSON numbers
// arrive as float64.
func intArg(r mcp.CallToolRequest, name string, def int) int {
	args := r.GetArguments()
	if args == nil {
		return def
	}
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// stringsArg reads an array-of-strings tool argument.
func stringsArg(r mcp.CallToolRequest, name string) []string {
	args := r.GetArguments()
	if args == nil {
		return nil
	}
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
