// ABOUTME: MCP tool handler implementations for the intake server
// ABOUTME: Tool failures come back as error results; only marshalling bugs are Go errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/emergency-intake/internal/dialogue"
	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/observability"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	engine   *dialogue.Engine
	tickets  dialogue.TicketCreator
	searcher dialogue.Searcher
}

// ProcessTurn handles the process_turn tool
func (h *Handlers) ProcessTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	sessionID, err := request.RequireString("session_id")
	if err != nil || strings.TrimSpace(sessionID) == "" {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	history, err := contextMessages(request.GetArguments()["context"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid context: %v", err)), nil
	}

	res, err := h.engine.ProcessTurn(ctx, dialogue.TurnInput{
		Message:   message,
		SessionID: sessionID,
		UserID:    request.GetString("user_id", ""),
		Context:   history,
	})
	if err != nil {
		observability.Logger().Error("process_turn failed", "session_id", sessionID, "error", err)
		if res.Response == "" {
			res.Response = dialogue.FallbackResponse
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s (%v)", res.Response, err)), nil
	}

	return jsonResult(res)
}

// CompleteTicket handles the complete_ticket tool
func (h *Handlers) CompleteTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	if h.tickets == nil {
		return mcp.NewToolResultError("ticket store is not configured"), nil
	}

	filed, err := h.engine.FileTicket(ctx, h.tickets, sessionID)
	switch {
	case errors.Is(err, dialogue.ErrSessionNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", sessionID)), nil
	case errors.Is(err, dialogue.ErrNotConfirmed):
		return mcp.NewToolResultError(fmt.Sprintf("session %s has not been confirmed by the reporter", sessionID)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("failed to create ticket: %v", err)), nil
	}

	return jsonResult(filed)
}

// GetSession handles the get_session tool
func (h *Handlers) GetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	state, err := h.engine.Session(ctx, sessionID)
	if errors.Is(err, dialogue.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", sessionID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}

	return jsonResult(state)
}

// ClearSession handles the clear_session tool
func (h *Handlers) ClearSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	if err := h.engine.ClearSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear session: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"session_id": sessionID,
		"cleared":    true,
	})
}

// SearchGuidance handles the search_guidance tool
func (h *Handlers) SearchGuidance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	if h.searcher == nil {
		return mcp.NewToolResultError("guidance index is not configured"), nil
	}

	categories, err := parseCategories(request.GetArguments()["categories"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	maxResults := request.GetInt("max_results", DefaultSearchResults)
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}

	chunks, err := h.searcher.Search(ctx, query, categories, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("guidance search failed: %v", err)), nil
	}

	results := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, map[string]interface{}{
			"source":   c.Chunk.SourceName,
			"category": string(c.Chunk.Category),
			"score":    c.Score,
			"content":  c.Chunk.Content,
		})
	}

	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// contextMessages converts the loosely typed context argument into transcript messages
func contextMessages(raw any) ([]models.Message, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var msgs []models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func parseCategories(raw any) ([]models.Category, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("categories must be an array of strings")
	}
	out := make([]models.Category, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		c, ok := models.ParseCategory(s)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", s)
		}
		out = append(out, c)
	}
	return out, nil
}
