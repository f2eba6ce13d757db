// ABOUTME: Standalone intake MCP server with stdio transport
// ABOUTME: Same wiring as `intake mcp`, for hosts that launch a single binary without arguments
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/emergency-intake/internal/app"
	"github.com/harper/emergency-intake/internal/config"
	"github.com/harper/emergency-intake/internal/mcp"
	"github.com/harper/emergency-intake/internal/observability"
)

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := observability.Init(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("Emergency Intake", "0.1.0")
	mcp.RegisterTools(server, a.Engine, a.Tickets, a.Searcher())

	logger.Info("intake MCP server starting on stdio")
	err = a.Run(ctx, func(ctx context.Context) error {
		return mcpserver.NewStdioServer(server).Listen(ctx, os.Stdin, os.Stdout)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}
}
