// Package mcp exposes the recall HTTP API as MCP tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverVersion = "1.0.0"

// Server delegates MCP tool calls to the recall HTTP server.
type Server struct {
	serverURL string
	apiKey    string
	client    *http.Client
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. apiKey may be empty when the HTTP
// server runs without auth.
func NewServer(serverURL, apiKey string) *Server {
	s := &Server{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}

	s.mcp = server.NewMCPServer("recall", serverVersion, server.WithToolCapabilities(false))
	handlers := map[string]server.ToolHandlerFunc{
		"recall_teach":  s.toolTeach,
		"recall_search": s.toolSearch,
		"recall_links":  s.toolLinks,
		"recall_link":   s.toolLink,
	}
	for _, tool := range ToolDefinitions() {
		s.mcp.AddTool(tool, handlers[tool.Name])
	}
	return s
}

// Run serves MCP over stdio. Blocks until stdin is closed.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcp)
}

// --- Tool implementations (HTTP delegation) ---

func (s *Server) toolTeach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]any{
		"phone":   req.GetString("phone", ""),
		"unit":    req.GetString("unit", ""),
		"topic":   req.GetString("topic", ""),
		"content": req.GetString("content", ""),
	}
	if v := req.GetString("emotion", ""); v != "" {
		body["emotion"] = v
	}
	if _, ok := req.GetArguments()["priority"]; ok {
		body["priority"] = req.GetInt("priority", 0)
	}
	return s.httpDo(ctx, http.MethodPost, "/teach", body)
}

func (s *Server) toolSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]any{
		"phone": req.GetString("phone", ""),
		"unit":  req.GetString("unit", ""),
		"query": req.GetString("query", ""),
		"topK":  req.GetInt("topK", 0),
	}
	return s.httpDo(ctx, http.MethodPost, "/memories/search", body)
}

func (s *Server) toolLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("memoryId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.httpDo(ctx, http.MethodGet, "/memories/"+url.PathEscape(id)+"/links", nil)
}

func (s *Server) toolLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("sourceId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := map[string]any{
		"targetId": req.GetString("targetId", ""),
		"kind":     req.GetString("kind", ""),
	}
	if _, ok := req.GetArguments()["weight"]; ok {
		body["weight"] = req.GetInt("weight", 1)
	}
	return s.httpDo(ctx, http.MethodPost, "/memories/"+url.PathEscape(source)+"/links", body)
}

// --- HTTP helpers ---

// httpDo calls the recall server. Transport failures and error statuses
// become tool errors carrying the response body.
func (s *Server) httpDo(ctx context.Context, method, path string, body any) (*mcp.CallToolResult, error) {
	var rd io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal error: %s", err)), nil
		}
		rd = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.serverURL+path, rd)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request error: %s", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("HTTP error: %s", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read error: %s", err)), nil
	}

	if resp.StatusCode >= 400 {
		return mcp.NewToolResultError(string(respBody)), nil
	}

	return mcp.NewToolResultText(string(respBody)), nil
}
