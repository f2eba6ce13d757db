// ABOUTME: Dialogue step names and routing decision types for the intake router
// ABOUTME: Steps form a fixed finite-state machine; the router picks exactly one per turn
package models

// Step names one node of the intake dialogue graph
type Step string

const (
	// StepAskEmergency asks what is happening; always first while no category is known
	StepAskEmergency Step = "ask_emergency_type"

	// StepFirstAid shows retrieved first-aid guidance once, right after the category is known
	StepFirstAid Step = "first_aid"

	// StepAskLocation asks for the missing parts of the address
	StepAskLocation Step = "ask_location"

	// StepAskPhone asks for a callback number
	StepAskPhone Step = "ask_phone"

	// StepAskPeople asks how many people are affected
	StepAskPeople Step = "ask_affected_people"

	// StepConfirm renders the ticket summary and waits for acceptance
	StepConfirm Step = "show_confirmation"

	// StepFinalize freezes the ticket payload after the reporter accepted the summary
	StepFinalize Step = "finalize"

	// StepLookup answers questions about previously filed tickets
	StepLookup Step = "lookup"

	// StepCompleted marks a session whose ticket has been persisted
	StepCompleted Step = "completed"
)

// IsCollection reports whether the step asks for a missing slot
func (s Step) IsCollection() bool {
	switch s {
	case StepAskEmergency, StepAskLocation, StepAskPhone, StepAskPeople:
		return true
	}
	return false
}

// RoutingDecision contains the next step and any flow flags the router wants reset
type RoutingDecision struct {
	Step              Step `json:"step"`
	ResetConfirmation bool `json:"reset_confirmation,omitempty"`
}
