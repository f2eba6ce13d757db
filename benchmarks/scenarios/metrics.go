// ABOUTME: Deterministic scoring for intake scenarios
// ABOUTME: Slot accuracy over the final state and faithfulness of the operator replies

package scenarios

import (
	"fmt"
	"slices"
	"strings"

	"github.com/harper/emergency-intake/internal/models"
)

// PassThreshold is the minimum score on both metrics for a PASS
const PassThreshold = 0.9

// Result is the outcome of one scenario
type Result struct {
	ScenarioID        string         `json:"scenario_id"`
	ScenarioName      string         `json:"scenario_name"`
	SlotAccuracy      float64        `json:"slot_accuracy"`
	FaithfulnessScore float64        `json:"faithfulness"`
	OverallScore      float64        `json:"overall"`
	Status            string         `json:"status"`
	TicketID          string         `json:"ticket_id,omitempty"`
	Details           map[string]any `json:"details"`
	ErrorMessage      string         `json:"error,omitempty"`
}

// Passed reports whether the scenario met the threshold
func (r Result) Passed() bool {
	return r.Status == "PASS"
}

// MetricsCalculator scores finished scenarios
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness checks that every expected phrase appears in the
// reply and no forbidden one does. Matching ignores case.
func (m *MetricsCalculator) CalculateFaithfulness(response string, expected, forbidden []string) (float64, string) {
	upper := strings.ToUpper(response)

	var missing, found []string
	for _, e := range expected {
		if !strings.Contains(upper, strings.ToUpper(e)) {
			missing = append(missing, e)
		}
	}
	for _, f := range forbidden {
		if strings.Contains(upper, strings.ToUpper(f)) {
			found = append(found, f)
		}
	}

	switch {
	case len(missing) == 0 && len(found) == 0:
		return 1.0, "all expected phrases present, none forbidden"
	case len(missing) > 0 && len(found) > 0:
		return 0.0, fmt.Sprintf("missing %v, forbidden present %v", missing, found)
	case len(missing) > 0:
		return 0.5, fmt.Sprintf("missing %v", missing)
	default:
		return 0.5, fmt.Sprintf("forbidden present %v", found)
	}
}

// CalculateSlotAccuracy is the share of expected slots the final state got right
func (m *MetricsCalculator) CalculateSlotAccuracy(state *models.ConversationState, exp Expectation) (float64, []string) {
	var checks, wrong []string
	check := func(name string, ok bool) {
		checks = append(checks, name)
		if !ok {
			wrong = append(wrong, name)
		}
	}

	if state == nil {
		state = &models.ConversationState{}
	}

	for _, c := range exp.Categories {
		check("category "+string(c), slices.Contains(state.EmergencyTypes, c))
	}
	if exp.Phone != "" {
		check("phone", state.Phone == exp.Phone)
	}
	location := strings.ToUpper(state.Location.String())
	for _, part := range exp.LocationContains {
		check("location "+part, strings.Contains(location, strings.ToUpper(part)))
	}
	if exp.Injured > 0 {
		check("injured", state.AffectedPeople.Injured == exp.Injured)
	}
	if exp.Priority != "" {
		check("priority", state.Priority == exp.Priority)
	}
	if exp.Ticket {
		check("ticket", state.TicketID != "")
	}

	if len(checks) == 0 {
		return 1.0, nil
	}
	return float64(len(checks)-len(wrong)) / float64(len(checks)), wrong
}

// Evaluate scores a finished scenario
func (m *MetricsCalculator) Evaluate(s Scenario, state *models.ConversationState, reply string) Result {
	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(reply,
		s.Expect.ExpectedInResponse, s.Expect.ForbiddenInResponse)
	accuracy, wrong := m.CalculateSlotAccuracy(state, s.Expect)

	status := "FAIL"
	if faithfulness >= PassThreshold && accuracy >= PassThreshold {
		status = "PASS"
	}

	res := Result{
		ScenarioID:        s.ID,
		ScenarioName:      s.Name,
		SlotAccuracy:      accuracy,
		FaithfulnessScore: faithfulness,
		OverallScore:      (faithfulness + accuracy) / 2,
		Status:            status,
		Details: map[string]any{
			"faithfulness_detail": faithfulnessDetail,
			"wrong_slots":         wrong,
			"final_response":      preview(reply, 200),
		},
	}
	if state != nil {
		res.TicketID = state.TicketID
		res.Details["step"] = state.CurrentStep
	}
	return res
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
