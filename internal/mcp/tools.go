// ABOUTME: MCP tool definitions and registration for the intake server
// ABOUTME: Defines JSON schemas for the five intake tools and binds them to handlers
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/emergency-intake/internal/dialogue"
)

// DefaultSearchResults is used when search_guidance gets no max_results
const DefaultSearchResults = 3

// RegisterTools registers all MCP tools with the server.
// tickets and searcher may be nil; the tools that need them then report an error.
func RegisterTools(server *mcpserver.MCPServer, engine *dialogue.Engine, tickets dialogue.TicketCreator, searcher dialogue.Searcher) *Handlers {
	handlers := &Handlers{
		engine:   engine,
		tickets:  tickets,
		searcher: searcher,
	}

	// 1. process_turn - run one intake turn
	server.AddTool(mcp.Tool{
		Name:        "process_turn",
		Description: "Process one message from a person reporting an emergency. Returns the operator response, and the ticket payload once the reporter confirms the summary.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Reporter message",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation id; the same id continues the same report",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional authenticated user id, enables ticket lookup and remembered contact details",
				},
				"context": map[string]interface{}{
					"type":        "array",
					"description": "Optional earlier messages to seed a new session",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"role": map[string]interface{}{"type": "string", "enum": []string{"reporter", "operator"}},
							"text": map[string]interface{}{"type": "string"},
						},
						"required": []string{"text"},
					},
				},
			},
			Required: []string{"message", "session_id"},
		},
	}, handlers.ProcessTurn)

	// 2. complete_ticket - persist the confirmed ticket and close the session
	server.AddTool(mcp.Tool{
		Name:        "complete_ticket",
		Description: "Create the emergency ticket for a confirmed session and close it. Safe to call twice; the second call returns the existing ticket id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session whose summary the reporter confirmed",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.CompleteTicket)

	// 3. get_session - inspect collected state
	server.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Return the collected state and transcript of an intake session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.GetSession)

	// 4. clear_session - drop a session
	server.AddTool(mcp.Tool{
		Name:        "clear_session",
		Description: "Delete an intake session and its checkpoint.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.ClearSession)

	// 5. search_guidance - query the first-aid reference index
	server.AddTool(mcp.Tool{
		Name:        "search_guidance",
		Description: "Search the indexed first-aid reference documents.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text",
				},
				"categories": map[string]interface{}{
					"type":        "array",
					"description": "Optional category filter",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"FIRE_RESCUE", "MEDICAL", "SECURITY"},
					},
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 3)",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchGuidance)

	return handlers
}
