// ABOUTME: MCP command starts the Model Context Protocol server on stdio
// ABOUTME: Lets LLM agents and chat front-ends drive intake sessions as tools
package commands

import (
	"context"
	"errors"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the intake engine as an MCP (Model Context Protocol) server on
stdio. Tools: process_turn, complete_ticket, get_session, clear_session
and search_guidance.

Logs go to stderr so stdout stays a clean protocol stream. The session
janitor, index warm-up, and document watcher run alongside the server.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by the agent host)
  intake mcp

  # Configure in the host's config file:
  # {
  #   "mcpServers": {
  #     "intake": {
  #       "command": "intake",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer(
		"Emergency Intake",
		versionInfo.Version,
		mcpserver.WithToolCapabilities(false),
	)
	mcp.RegisterTools(server, a.Engine, a.Tickets, a.Searcher())

	a.Logger.Info("intake MCP server starting on stdio",
		"checkpoints", cfg.CheckpointBackend, "vectors", cfg.VectorBackend)

	return a.Run(cmd.Context(), func(ctx context.Context) error {
		err := mcpserver.NewStdioServer(server).Listen(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
