// ABOUTME: Tests for model-backed extraction and its fallback routing
// ABOUTME: Uses a scripted completer in place of the OpenAI client
package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/models"
)

type scriptedCompleter struct {
	reply string
	err   error
	block bool
	last  llm.CompletionRequest
	calls int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.calls++
	s.last = req
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func newState() *models.ConversationState {
	return models.NewConversationState("s1", time.Unix(0, 0))
}

func TestExtract_ModelPath(t *testing.T) {
	c := &scriptedCompleter{reply: `{"location":{"address":" 12 Lê Lợi "},"phone":"0912 345 678","emergencyTypes":["fire_rescue"],"priority":"critical"}`}
	e := New(c, keywords.MustDefault())

	u, src := e.Extract(context.Background(), "cháy ở 12 Lê Lợi, gọi 0912 345 678", newState())
	if src != SourceModel {
		t.Fatalf("Extract() source = %s, want model", src)
	}
	if u.Location.Address != "12 Lê Lợi" {
		t.Errorf("address = %q", u.Location.Address)
	}
	if u.Phone == nil || *u.Phone != "0912345678" {
		t.Errorf("phone = %v, want normalized 0912345678", u.Phone)
	}
	if len(u.EmergencyTypes) != 1 || u.EmergencyTypes[0] != models.CategoryFireRescue {
		t.Errorf("types = %v", u.EmergencyTypes)
	}
	if u.Priority != models.PriorityCritical {
		t.Errorf("priority = %q", u.Priority)
	}
	if len(u.Messages) != 1 || u.Messages[0].Role != models.RoleReporter {
		t.Errorf("messages = %+v, want the reporter message", u.Messages)
	}
	if c.last.Schema == nil || c.last.SchemaName != "extracted_info" {
		t.Error("expected a schema-constrained request")
	}
}

func TestExtract_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		c    *scriptedCompleter
	}{
		{"error", &scriptedCompleter{err: llm.ErrUnavailable}},
		{"malformed", &scriptedCompleter{reply: "Tôi không chắc"}},
		{"unknown category", &scriptedCompleter{reply: `{"emergencyTypes":["FLOOD"]}`}},
		{"count out of range", &scriptedCompleter{reply: `{"affectedPeople":{"total":-2}}`}},
		{"timeout", &scriptedCompleter{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.c, keywords.MustDefault(), WithTimeout(20*time.Millisecond))
			u, src := e.Extract(context.Background(), "Nhà tôi bị cháy", newState())
			if src != SourceFallback {
				t.Fatalf("Extract() source = %s, want fallback", src)
			}
			if len(u.EmergencyTypes) != 1 || u.EmergencyTypes[0] != models.CategoryFireRescue {
				t.Errorf("fallback types = %v", u.EmergencyTypes)
			}
		})
	}
}

func TestExtract_NilCompleter(t *testing.T) {
	e := New(nil, keywords.MustDefault())
	_, src := e.Extract(context.Background(), "xin chào", newState())
	if src != SourceFallback {
		t.Errorf("Extract() source = %s, want fallback", src)
	}
}

func TestExtract_InvalidPhone(t *testing.T) {
	c := &scriptedCompleter{reply: `{"phone":"0123456789"}`}
	e := New(c, keywords.MustDefault())

	u, _ := e.Extract(context.Background(), "0123456789", newState())
	if u.Phone != nil {
		t.Errorf("invalid phone must not be set, got %q", *u.Phone)
	}
	if u.PhoneValidationError == nil || !*u.PhoneValidationError {
		t.Error("expected phone validation error flag")
	}
	if u.PhoneError == nil || !strings.Contains(*u.PhoneError, "012") {
		t.Errorf("phone error = %v", u.PhoneError)
	}
}

func TestExtract_EchoedPhoneIgnored(t *testing.T) {
	state := newState()
	state.Phone = "0912345678"
	state.PhoneValidationError = true

	c := &scriptedCompleter{reply: `{"phone":"+84 912 345 678"}`}
	u, _ := New(c, keywords.MustDefault()).Extract(context.Background(), "ok", state)
	if u.Phone != nil {
		t.Errorf("echoed phone should be dropped, got %q", *u.Phone)
	}
	if u.PhoneValidationError == nil || *u.PhoneValidationError {
		t.Error("stale error flag should be cleared")
	}
}

func TestExtract_KeepsExistingDescription(t *testing.T) {
	state := newState()
	state.Description = "Cháy nhà"

	c := &scriptedCompleter{reply: `{"description":"Khói nhiều"}`}
	u, _ := New(c, keywords.MustDefault()).Extract(context.Background(), "khói nhiều", state)
	if u.Description != "" {
		t.Errorf("description = %q, want empty", u.Description)
	}
}

func TestBuildPrompt(t *testing.T) {
	state := newState()
	state.Phone = "0912345678"
	state.Messages = append(state.Messages, models.Message{Role: models.RoleOperator, Text: "Có bao nhiêu người bị ảnh hưởng?"})

	p := buildPrompt("3", state)
	for _, want := range []string{`"3"`, "0912345678", "Có bao nhiêu người bị ảnh hưởng?", "Quy tắc"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestFieldsValidate(t *testing.T) {
	total := 3
	ok := Fields{EmergencyTypes: []string{"MEDICAL"}, Priority: "high", AffectedPeople: &PeopleFields{Total: &total}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	bad := Fields{Priority: "URGENT"}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() should reject unknown priority")
	}
}

func TestSchemaListsCategories(t *testing.T) {
	s := Schema()
	items := s.Properties["emergencyTypes"].Items
	if items == nil || len(items.Enum) != len(models.AllCategories) {
		t.Fatalf("emergencyTypes enum = %+v", items)
	}
}

func TestExtract_PhoneErrorSurvivesMessageWithoutNumber(t *testing.T) {
	state := newState()
	state.PhoneValidationError = true
	state.PhoneError = "Số điện thoại không hợp lệ"

	c := &scriptedCompleter{reply: `{"location":{"district":"Quận 3"}}`}
	u, _ := New(c, keywords.MustDefault()).Extract(context.Background(), "Quận 3", state)
	if u.PhoneValidationError != nil || u.PhoneError != nil {
		t.Errorf("error flag should be untouched, got %v / %v", u.PhoneValidationError, u.PhoneError)
	}

	c = &scriptedCompleter{reply: `{"phone":"0912345678"}`}
	u, _ = New(c, keywords.MustDefault()).Extract(context.Background(), "0912345678", state)
	if u.PhoneValidationError == nil || *u.PhoneValidationError {
		t.Error("a valid number should clear the error flag")
	}
	if u.Phone == nil || *u.Phone != "0912345678" {
		t.Errorf("phone = %v", u.Phone)
	}
}
