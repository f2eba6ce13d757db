// ABOUTME: Closes the loop after confirmation: persist the ticket, then complete the session
// ABOUTME: Used by the chat command and the MCP complete_ticket tool
package dialogue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/observability"
)

// TicketCreator persists a finalized ticket and assigns its id
type TicketCreator interface {
	Create(ctx context.Context, userID string, info models.TicketInfo) (*models.Ticket, error)
}

// Filed is the outcome of FileTicket
type Filed struct {
	TicketID string `json:"ticketId"`
	Guidance string `json:"firstAidGuidance"`
	Existing bool   `json:"existing,omitempty"`
}

// FileTicket stores the confirmed ticket of a session and completes it.
// A session that already has a ticket id returns that id without creating another.
func (e *Engine) FileTicket(ctx context.Context, creator TicketCreator, sessionID string) (Filed, error) {
	ctx = observability.WithSession(ctx, sessionID, uuid.NewString())

	unlock := e.store.Lock(sessionID)
	defer unlock()

	state, err := e.confirmedSession(ctx, sessionID)
	if err != nil {
		return Filed{}, fmt.Errorf("file ticket: %w", err)
	}
	if state.TicketID != "" {
		return Filed{TicketID: state.TicketID, Guidance: state.FirstAidGuidance, Existing: true}, nil
	}

	ticket, err := creator.Create(ctx, state.UserID, *state.TicketInfo)
	if err != nil {
		return Filed{}, fmt.Errorf("file ticket: %w", err)
	}

	guidance, err := e.complete(ctx, state, ticket.ID)
	if err != nil {
		return Filed{TicketID: ticket.ID}, err
	}
	return Filed{TicketID: ticket.ID, Guidance: guidance}, nil
}
