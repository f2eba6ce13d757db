// ABOUTME: CLI commands to inspect, export, and clear intake sessions
// ABOUTME: Listing needs the SQLite checkpoint backend; the rest work on any backend
package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/dialogue"
	"github.com/harper/emergency-intake/internal/models"
)

var (
	sessionLimit  int
	sessionOutput string
)

// NewSessionCmd creates the session command and its subcommands
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage intake sessions",
		Long: `Inspect and manage intake sessions stored in the checkpoint backend.

Examples:
  intake session list
  intake session show 7f0c...
  intake session export 7f0c... -o report.yaml
  intake session clear 7f0c...`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE:  runSessionList,
	}
	listCmd.Flags().IntVar(&sessionLimit, "limit", 20, "Maximum number of sessions")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show collected slots and the transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionShow,
	}

	exportCmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export the full session as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionExport,
	}
	exportCmd.Flags().StringVarP(&sessionOutput, "output", "o", "", "Write to file instead of stdout")

	clearCmd := &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionClear,
	}

	cmd.AddCommand(listCmd, showCmd, exportCmd, clearCmd)
	return cmd
}

func runSessionList(cmd *cobra.Command, args []string) error {
	if sessionLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", sessionLimit)
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Checkpoints == nil {
		return fmt.Errorf("listing sessions needs the sqlite checkpoint backend, not %s", cfg.CheckpointBackend)
	}
	infos, err := a.Checkpoints.List(cmd.Context(), sessionLimit)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No sessions found")
		}
		return nil
	}

	format, err := resolveFormat("table")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(out, infos)
	case "yaml":
		return writeYAML(out, infos)
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SESSION\tUSER\tVERSION\tSTATUS\tUPDATED\tEXPIRES\n")
	for _, info := range infos {
		status := "open"
		if info.Completed {
			status = "completed"
		}
		user := info.UserID
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			truncate(info.SessionID, 36), truncate(user, 16), info.Version, status,
			formatTime(info.UpdatedAt, now), formatTime(info.ExpiresAt, now))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nTotal: %d session(s)\n", len(infos))
	}
	return nil
}

func loadSession(cmd *cobra.Command, sessionID string) (*models.ConversationState, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	a, err := openApp(cmd, cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	state, err := a.Engine.Session(cmd.Context(), sessionID)
	if errors.Is(err, dialogue.ErrSessionNotFound) {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return state, err
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	state, err := loadSession(cmd, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format, err := resolveFormat("table")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(out, state)
	case "yaml":
		return writeYAML(out, state)
	}

	types := make([]string, len(state.EmergencyTypes))
	for i, c := range state.EmergencyTypes {
		types[i] = string(c)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Session:\t%s\n", state.SessionID)
	fmt.Fprintf(w, "Step:\t%s\n", state.CurrentStep)
	fmt.Fprintf(w, "Types:\t%s\n", strings.Join(types, ", "))
	fmt.Fprintf(w, "Location:\t%s\n", state.Location.String())
	fmt.Fprintf(w, "Phone:\t%s\n", state.Phone)
	fmt.Fprintf(w, "People:\t%d\n", state.AffectedPeople.Total)
	fmt.Fprintf(w, "Confirmed:\t%v\n", state.UserConfirmed)
	if state.TicketID != "" {
		fmt.Fprintf(w, "Ticket:\t%s\n", state.TicketID)
	}
	w.Flush()

	fmt.Fprintln(out)
	for _, m := range state.Messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Text)
	}
	return nil
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	state, err := loadSession(cmd, args[0])
	if err != nil {
		return err
	}

	if sessionOutput == "" {
		return writeYAML(cmd.OutOrStdout(), state)
	}

	f, err := os.Create(sessionOutput)
	if err != nil {
		return fmt.Errorf("creating %s: %w", sessionOutput, err)
	}
	if err := writeYAML(f, state); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], sessionOutput)
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Engine.ClearSession(cmd.Context(), args[0]); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
	}
	return nil
}
