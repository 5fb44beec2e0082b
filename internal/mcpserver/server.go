// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault health and semantic search to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/noteservice"
)

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vaultlens",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("vault_health",
		mcp.WithDescription("Analyze the vault link graph: broken links, orphan notes, near-empty notes, tag counts and a 0-100 health score."),
	), s.vaultHealth)

	s.mcp.AddTool(mcp.NewTool("semantic_search",
		mcp.WithDescription("Find notes semantically related to a natural-language query using the embedding index."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language query")),
		mcp.WithNumber("k", mcp.Description("Maximum number of results (default 5)")),
	), s.semanticSearch)

	s.mcp.AddTool(mcp.NewTool("build_index",
		mcp.WithDescription("Update the embedding index for notes changed since the last build."),
	), s.buildIndex)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) vaultHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Health(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"report":   rep,
		"grade":    rep.Grade(),
		"top_tags": rep.TopTags(10),
	}), nil
}

func (s *Server) semanticSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	k := req.GetInt("k", index.DefaultTopK)

	results, err := s.svc.Search(ctx, query, k)
	switch {
	case errors.Is(err, apperr.ErrConfigMissing):
		return mcp.NewToolResultText("semantic search unavailable: no embedding provider configured"), nil
	case errors.Is(err, apperr.ErrIndexMissing):
		return mcp.NewToolResultText("semantic search unavailable: index not built yet (run build_index)"), nil
	case err != nil:
		return mcp.NewToolResultError(apperr.Public(err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) buildIndex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.BuildIndex(ctx)
	if err != nil {
		return mcp.NewToolResultError(apperr.Public(err)), nil
	}
	return jsonResult(stats), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.svc.ListNotes(ctx, req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}
