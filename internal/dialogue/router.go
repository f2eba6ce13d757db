// ABOUTME: Decide picks the single next dialogue step from the current state
// ABOUTME: Pure function; lookup and confirmation signals are computed by the engine beforehand
package dialogue

import (
	"github.com/harper/emergency-intake/internal/models"
)

// ReplyKind classifies the reporter's answer to a shown summary
type ReplyKind int

const (
	// ReplyNone means no summary was pending
	ReplyNone ReplyKind = iota
	ReplyConfirm
	ReplyCorrect
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyConfirm:
		return "confirm"
	case ReplyCorrect:
		return "correct"
	}
	return "none"
}

// Signals are per-turn facts the router cannot derive from state
type Signals struct {
	Lookup bool
	Reply  ReplyKind
}

// Decide returns the next step. First match wins:
//  1. a past-ticket lookup
//  2. a pending summary: confirming finalizes, anything else resets it
//  3. all mandatory slots present: show the summary
//  4. the first missing of emergency type, first aid, location, phone, people
func Decide(state *models.ConversationState, sig Signals) models.RoutingDecision {
	if sig.Lookup {
		return models.RoutingDecision{Step: models.StepLookup}
	}

	reset := false
	if state.ConfirmationShown && !state.UserConfirmed {
		if sig.Reply == ReplyConfirm && state.MandatorySatisfied() {
			return models.RoutingDecision{Step: models.StepFinalize}
		}
		reset = true
	}

	if state.MandatorySatisfied() && (!state.ConfirmationShown || reset) {
		return models.RoutingDecision{Step: models.StepConfirm, ResetConfirmation: reset}
	}

	return models.RoutingDecision{Step: nextMissing(state), ResetConfirmation: reset}
}

func nextMissing(state *models.ConversationState) models.Step {
	switch {
	case len(state.EmergencyTypes) == 0:
		return models.StepAskEmergency
	case !state.FirstAidShown:
		return models.StepFirstAid
	case !state.Location.IsComplete:
		return models.StepAskLocation
	case state.Phone == "":
		return models.StepAskPhone
	case state.AffectedPeople.Total <= 0:
		return models.StepAskPeople
	}
	return models.StepConfirm
}
