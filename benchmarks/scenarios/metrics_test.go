// ABOUTME: Tests for scenario scoring
// ABOUTME: Covers faithfulness, slot accuracy, and the pass threshold

package scenarios

import (
	"testing"

	"github.com/harper/emergency-intake/internal/models"
)

func TestCalculateFaithfulness(t *testing.T) {
	m := NewMetricsCalculator()

	tests := []struct {
		name      string
		response  string
		expected  []string
		forbidden []string
		want      float64
	}{
		{"all present", "✅ Phiếu TD-1 đã được tạo", []string{"✅", "phiếu"}, nil, 1.0},
		{"missing", "Vui lòng cho biết địa chỉ", []string{"✅"}, nil, 0.5},
		{"forbidden", "✅ Hãy dùng thang máy", []string{"✅"}, []string{"thang máy"}, 0.5},
		{"both", "Hãy dùng thang máy", []string{"✅"}, []string{"thang máy"}, 0.0},
		{"nothing expected", "anything", nil, nil, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, detail := m.CalculateFaithfulness(tt.response, tt.expected, tt.forbidden)
			if got != tt.want {
				t.Errorf("CalculateFaithfulness() = %v (%s), want %v", got, detail, tt.want)
			}
		})
	}
}

func TestCalculateSlotAccuracy(t *testing.T) {
	m := NewMetricsCalculator()
	state := &models.ConversationState{
		EmergencyTypes: []models.Category{models.CategoryFireRescue},
		Phone:          "0912345678",
		Location:       models.Location{Address: "123 Nguyễn Huệ", District: "Quận 1"},
		AffectedPeople: models.AffectedPeople{Total: 3, Injured: 3},
		TicketID:       "TD-20261017-093000-0001",
	}

	exp := Expectation{
		Categories:       []models.Category{models.CategoryFireRescue},
		Phone:            "0912345678",
		LocationContains: []string{"nguyễn huệ", "Quận 1"},
		Injured:          3,
		Ticket:           true,
	}
	got, wrong := m.CalculateSlotAccuracy(state, exp)
	if got != 1.0 || len(wrong) != 0 {
		t.Errorf("CalculateSlotAccuracy() = %v, wrong %v", got, wrong)
	}

	exp.Phone = "0900000000"
	exp.Categories = append(exp.Categories, models.CategoryMedical)
	got, wrong = m.CalculateSlotAccuracy(state, exp)
	if want := 5.0 / 7.0; got != want {
		t.Errorf("CalculateSlotAccuracy() = %v, want %v", got, want)
	}
	if len(wrong) != 2 {
		t.Errorf("wrong = %v, want phone and category", wrong)
	}

	if got, _ := m.CalculateSlotAccuracy(nil, Expectation{Ticket: true}); got != 0 {
		t.Errorf("nil state accuracy = %v, want 0", got)
	}
}

func TestEvaluate(t *testing.T) {
	m := NewMetricsCalculator()
	s := Scenario{
		ID: "x", Name: "x",
		Expect: Expectation{Phone: "0912345678", ExpectedInResponse: []string{"✅"}},
	}

	pass := m.Evaluate(s, &models.ConversationState{Phone: "0912345678"}, "✅ done")
	if !pass.Passed() || pass.OverallScore != 1.0 {
		t.Errorf("Evaluate() = %+v, want PASS", pass)
	}

	fail := m.Evaluate(s, &models.ConversationState{}, "✅ done")
	if fail.Passed() {
		t.Errorf("Evaluate() = %+v, want FAIL", fail)
	}
}

func TestBuiltInScenarios(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range All() {
		if s.ID == "" || len(s.Turns) == 0 {
			t.Errorf("scenario %q is incomplete", s.Name)
		}
		if seen[s.ID] {
			t.Errorf("duplicate scenario id %s", s.ID)
		}
		seen[s.ID] = true

		got, ok := ByID(s.ID)
		if !ok || got.Name != s.Name {
			t.Errorf("ByID(%s) = %v, %v", s.ID, got.Name, ok)
		}
	}
	if _, ok := ByID("missing"); ok {
		t.Error("ByID(missing) should fail")
	}
}
