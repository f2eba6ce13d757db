// ABOUTME: Tests for step selection and the collection prompts
// ABOUTME: Covers priority order, the confirmation loop, and lookup precedence
package dialogue

import (
	"strings"
	"testing"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

func stateWith(fn func(s *models.ConversationState)) *models.ConversationState {
	s := models.NewConversationState("s1", time.Unix(0, 0))
	fn(s)
	return s
}

func complete(s *models.ConversationState) {
	s.EmergencyTypes = []models.Category{models.CategoryMedical}
	s.FirstAidShown = true
	s.Location = models.Location{Address: "12 Lê Lợi", City: "Huế", IsComplete: true}
	s.Phone = "0912345678"
	s.AffectedPeople.Total = 2
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		state     *models.ConversationState
		sig       Signals
		want      models.Step
		wantReset bool
	}{
		{"empty asks emergency", stateWith(func(*models.ConversationState) {}), Signals{}, models.StepAskEmergency, false},
		{"location before type still asks type", stateWith(func(s *models.ConversationState) {
			s.Location = models.Location{Address: "1 A", City: "Huế", IsComplete: true}
		}), Signals{}, models.StepAskEmergency, false},
		{"type known shows first aid", stateWith(func(s *models.ConversationState) {
			s.EmergencyTypes = []models.Category{models.CategoryFireRescue}
		}), Signals{}, models.StepFirstAid, false},
		{"first aid shown asks location", stateWith(func(s *models.ConversationState) {
			s.EmergencyTypes = []models.Category{models.CategoryFireRescue}
			s.FirstAidShown = true
		}), Signals{}, models.StepAskLocation, false},
		{"location complete asks phone", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.Phone = ""
		}), Signals{}, models.StepAskPhone, false},
		{"phone known asks people", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.AffectedPeople.Total = 0
		}), Signals{}, models.StepAskPeople, false},
		{"all slots shows summary", stateWith(complete), Signals{}, models.StepConfirm, false},
		{"confirming finalizes", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.ConfirmationShown = true
		}), Signals{Reply: ReplyConfirm}, models.StepFinalize, false},
		{"correcting re-shows summary", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.ConfirmationShown = true
		}), Signals{Reply: ReplyCorrect}, models.StepConfirm, true},
		{"correction that removed a slot asks for it", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.ConfirmationShown = true
			s.Location.IsComplete = false
			s.Location.City = ""
		}), Signals{Reply: ReplyConfirm}, models.StepAskLocation, true},
		{"lookup wins", stateWith(func(s *models.ConversationState) {
			complete(s)
			s.ConfirmationShown = true
		}), Signals{Lookup: true, Reply: ReplyConfirm}, models.StepLookup, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, tt.sig)
			if got.Step != tt.want {
				t.Errorf("Decide() step = %s, want %s", got.Step, tt.want)
			}
			if got.ResetConfirmation != tt.wantReset {
				t.Errorf("Decide() reset = %v, want %v", got.ResetConfirmation, tt.wantReset)
			}
		})
	}
}

func TestDecide_IsPure(t *testing.T) {
	s := stateWith(complete)
	s.ConfirmationShown = true
	before := *s
	Decide(s, Signals{Reply: ReplyCorrect})
	if s.ConfirmationShown != before.ConfirmationShown || s.CurrentStep != before.CurrentStep {
		t.Error("Decide() mutated its input")
	}
}

func TestPrompt_Location(t *testing.T) {
	tests := []struct {
		loc  models.Location
		want string
	}{
		{models.Location{}, promptLocationFull},
		{models.Location{Address: "1 A"}, promptLocationWardCity},
		{models.Location{Address: "1 A", Ward: "Phường 2"}, promptLocationCity},
		{models.Location{Address: "1 A", Ward: "Phường 2", City: "Huế"}, promptLocationReconfirm},
	}
	for _, tt := range tests {
		s := stateWith(func(s *models.ConversationState) { s.Location = tt.loc })
		if got := Prompt(models.StepAskLocation, s); got != tt.want {
			t.Errorf("Prompt(location %+v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestPrompt_PeopleByCategory(t *testing.T) {
	tests := []struct {
		types []models.Category
		want  string
	}{
		{[]models.Category{models.CategoryFireRescue, models.CategoryMedical}, promptPeopleMedical},
		{[]models.Category{models.CategoryFireRescue}, promptPeopleFire},
		{[]models.Category{models.CategorySecurity}, promptPeople},
	}
	for _, tt := range tests {
		s := stateWith(func(s *models.ConversationState) { s.EmergencyTypes = tt.types })
		if got := Prompt(models.StepAskPeople, s); got != tt.want {
			t.Errorf("Prompt(people %v) = %q, want %q", tt.types, got, tt.want)
		}
	}
}

func TestPrompt_PhoneShowsValidationError(t *testing.T) {
	s := stateWith(func(s *models.ConversationState) {
		s.PhoneValidationError = true
		s.PhoneError = "Đầu số 011 không hợp lệ"
	})
	got := Prompt(models.StepAskPhone, s)
	if !strings.HasPrefix(got, "⚠️ Đầu số 011") || !strings.HasSuffix(got, promptPhone) {
		t.Errorf("Prompt(phone) = %q", got)
	}
}
