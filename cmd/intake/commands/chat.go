// ABOUTME: Interactive intake session on the terminal
// ABOUTME: Each line is one reporter turn; confirmed tickets are filed in the local SQLite store
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/app"
	"github.com/harper/emergency-intake/internal/dialogue"
)

var (
	chatSessionID string
	chatUserID    string
	chatOffline   bool
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Report an emergency interactively",
		Long: `Run an intake conversation on the terminal.

Type what the reporter says, one message per line. The operator reply
is printed after each line. When the reporter confirms the summary the
ticket is filed and its id printed.

Commands inside the chat:
  /new    start a new session
  /state  print the collected state
  /quit   exit

With --offline no model is called; extraction falls back to keyword
and pattern matching and guidance to the generic instructions.`,
		Example: `  intake chat
  intake chat --user u-123
  intake chat --offline --session demo`,
		RunE: runChat,
	}

	cmd.Flags().StringVar(&chatSessionID, "session", "", "Session id (default: random)")
	cmd.Flags().StringVar(&chatUserID, "user", "", "Authenticated user id for lookups and remembered contact details")
	cmd.Flags().BoolVar(&chatOffline, "offline", false, "Do not call the model")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(!chatOffline)
	if err != nil {
		return err
	}
	if chatOffline {
		cfg.OpenAIKey = ""
	}

	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	c := &chat{
		app:       a,
		in:        cmd.InOrStdin(),
		out:       cmd.OutOrStdout(),
		sessionID: chatSessionID,
		userID:    chatUserID,
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	return a.Run(cmd.Context(), c.loop)
}

type chat struct {
	app       *app.App
	in        io.Reader
	out       io.Writer
	sessionID string
	userID    string
}

func (c *chat) loop(ctx context.Context) error {
	if !quiet {
		fmt.Fprintf(c.out, "Session %s. Type /quit to exit.\n", c.sessionID)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if !quiet {
			fmt.Fprint(c.out, "> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			c.sessionID = uuid.NewString()
			fmt.Fprintf(c.out, "Session %s\n", c.sessionID)
			continue
		case "/state":
			if err := c.printState(ctx); err != nil {
				fmt.Fprintf(c.out, "%v\n", err)
			}
			continue
		}

		if err := c.turn(ctx, line); err != nil {
			return err
		}
	}
}

func (c *chat) turn(ctx context.Context, line string) error {
	res, err := c.app.Engine.ProcessTurn(ctx, dialogue.TurnInput{
		Message:   line,
		SessionID: c.sessionID,
		UserID:    c.userID,
	})
	fmt.Fprintf(c.out, "%s\n", res.Response)
	if err != nil {
		// the reporter already saw the apology; keep the conversation going
		c.app.Logger.Error("turn failed", "session_id", c.sessionID, "error", err)
		return nil
	}
	if !res.ShouldCreateTicket {
		return nil
	}

	filed, err := c.app.Engine.FileTicket(ctx, c.app.Tickets, c.sessionID)
	if err != nil {
		return fmt.Errorf("filing ticket: %w", err)
	}
	fmt.Fprintf(c.out, "\n✅ Ticket %s\n\n%s\n", filed.TicketID, filed.Guidance)
	return nil
}

func (c *chat) printState(ctx context.Context) error {
	state, err := c.app.Engine.Session(ctx, c.sessionID)
	if errors.Is(err, dialogue.ErrSessionNotFound) {
		return fmt.Errorf("nothing collected yet")
	}
	if err != nil {
		return err
	}
	format, err := resolveFormat("yaml")
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(c.out, state)
	}
	return writeYAML(c.out, state)
}
