// ABOUTME: Runs scripted scenarios through the dialogue engine and scores them
// ABOUTME: Confirmed reports are filed like the chat command does before scoring

package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/harper/emergency-intake/internal/app"
	"github.com/harper/emergency-intake/internal/dialogue"
)

// Runner executes scenarios against a wired application
type Runner struct {
	app     *app.App
	metrics *MetricsCalculator
	out     io.Writer
	verbose bool
}

// NewRunner creates a runner. Transcripts go to out when verbose.
func NewRunner(a *app.App, out io.Writer, verbose bool) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{app: a, metrics: NewMetricsCalculator(), out: out, verbose: verbose}
}

// Run plays one scenario in a fresh session and scores it. The session
// is cleared afterwards.
func (r *Runner) Run(ctx context.Context, s Scenario) (Result, error) {
	sessionID := "bench-" + s.ID + "-" + uuid.NewString()[:8]
	defer func() {
		_ = r.app.Engine.ClearSession(context.WithoutCancel(ctx), sessionID)
	}()

	if r.verbose {
		fmt.Fprintf(r.out, "\n=== %s ===\n%s\n\n", s.Name, s.Description)
	}

	var reply strings.Builder
	for i, msg := range s.Turns {
		if r.verbose {
			fmt.Fprintf(r.out, "[%d] reporter: %s\n", i+1, msg)
		}

		res, err := r.app.Engine.ProcessTurn(ctx, dialogue.TurnInput{
			Message:   msg,
			SessionID: sessionID,
			UserID:    s.UserID,
		})
		if err != nil {
			return Result{}, fmt.Errorf("scenario %s turn %d: %w", s.ID, i+1, err)
		}
		if r.verbose {
			fmt.Fprintf(r.out, "[%d] operator: %s\n\n", i+1, preview(res.Response, 300))
		}

		reply.Reset()
		reply.WriteString(res.Response)

		if res.ShouldCreateTicket {
			filed, err := r.app.Engine.FileTicket(ctx, r.app.Tickets, sessionID)
			if err != nil {
				return Result{}, fmt.Errorf("scenario %s: %w", s.ID, err)
			}
			reply.WriteString("\n✅ ")
			reply.WriteString(filed.TicketID)
			reply.WriteString("\n")
			reply.WriteString(filed.Guidance)
		}
	}

	state, err := r.app.Engine.Session(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %s: %w", s.ID, err)
	}

	result := r.metrics.Evaluate(s, state, reply.String())
	if r.verbose {
		fmt.Fprintf(r.out, "slots %.2f  faithfulness %.2f  %s\n",
			result.SlotAccuracy, result.FaithfulnessScore, result.Status)
	}
	return result, nil
}

// RunAll plays every scenario. A scenario that errors is recorded as a
// failure and the rest still run.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := r.Run(ctx, s)
		if err != nil {
			res = Result{
				ScenarioID:   s.ID,
				ScenarioName: s.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			}
		}
		results = append(results, res)
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// ExportResults writes results as indented JSON
func ExportResults(results []Result, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
