// ABOUTME: Root command, global flags, and shared startup for every subcommand
// ABOUTME: Loads .env, configuration, and the structured logger before opening the app
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/app"
	"github.com/harper/emergency-intake/internal/config"
	"github.com/harper/emergency-intake/internal/observability"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
 ██╗ ██╗ ██████╗
███║███║ ╚════██╗
╚██║╚██║  █████╔╝
 ██║ ██║ ██╔═══╝
 ██║ ██║ ███████╗
 ╚═╝ ╚═╝ ╚══════╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Emergency intake dialogue engine",
		Long: banner + `

Emergency intake for 112 reports. Collects emergency type, location,
callback phone, and affected people over a short Vietnamese dialogue,
shows first-aid guidance grounded in indexed reference documents, and
files a ticket once the reporter confirms the summary.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and suppress hints")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json, yaml")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewChatCmd(),
		NewIndexCmd(),
		NewSessionCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command until it finishes or the process is signalled
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads .env and the environment. requireModel makes a missing
// OPENAI_API_KEY fatal.
func loadConfig(requireModel bool) (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if requireModel {
		return config.Load()
	}
	return config.LoadStorageOnly()
}

// openApp initializes logging to stderr and wires the application
func openApp(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	logger := observability.Init(cmd.ErrOrStderr(), level, cfg.LogFormat)

	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return a, nil
}
