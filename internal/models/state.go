// ABOUTME: ConversationState is the per-session record the intake engine owns
// ABOUTME: Holds collected slots, flow flags, transcript, and derived outputs
package models

import (
	"slices"
	"strings"
	"time"
)

// Category is an emergency category; a session accumulates a set of them
type Category string

const (
	CategoryFireRescue Category = "FIRE_RESCUE"
	CategoryMedical    Category = "MEDICAL"
	CategorySecurity   Category = "SECURITY"
)

// AllCategories lists every known category in canonical order
var AllCategories = []Category{CategoryFireRescue, CategoryMedical, CategorySecurity}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return slices.Contains(AllCategories, c)
}

// DisplayName returns the Vietnamese label used in summaries
func (c Category) DisplayName() string {
	switch c {
	case CategoryFireRescue:
		return "PCCC & Cứu nạn cứu hộ"
	case CategoryMedical:
		return "Cấp cứu y tế"
	case CategorySecurity:
		return "An ninh"
	}
	return string(c)
}

// ParseCategory accepts loose spellings like "fire-rescue" or " medical "
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return c, c.Valid()
}

// Priority is the ticket priority
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Role identifies who wrote a transcript message
type Role string

const (
	RoleReporter Role = "reporter"
	RoleOperator Role = "operator"
)

// Message is one transcript entry
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Location is the incident address, filled in fragments
type Location struct {
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Ward       string `json:"ward,omitempty" yaml:"ward,omitempty"`
	District   string `json:"district,omitempty" yaml:"district,omitempty"`
	City       string `json:"city,omitempty" yaml:"city,omitempty"`
	IsComplete bool   `json:"isComplete" yaml:"is_complete"`
}

// Complete reports whether the fragments are enough to dispatch:
// an address, a city, and a ward or city.
func (l Location) Complete() bool {
	return l.Address != "" && (l.Ward != "" || l.City != "") && l.City != ""
}

// String joins the non-empty fragments with ", "
func (l Location) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Address, l.Ward, l.District, l.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// AffectedPeople counts people who need help
type AffectedPeople struct {
	Total    int `json:"total" yaml:"total"`
	Injured  int `json:"injured" yaml:"injured"`
	Critical int `json:"critical" yaml:"critical"`
}

// SupportRequired is the set of forces to dispatch
type SupportRequired struct {
	Police         bool `json:"police" yaml:"police"`
	Ambulance      bool `json:"ambulance" yaml:"ambulance"`
	FireDepartment bool `json:"fireDepartment" yaml:"fire_department"`
	Rescue         bool `json:"rescue" yaml:"rescue"`
}

// SupportOverrides holds explicit reporter corrections; nil means "derive from categories"
type SupportOverrides struct {
	Police         *bool `json:"police,omitempty" yaml:"police,omitempty"`
	Ambulance      *bool `json:"ambulance,omitempty" yaml:"ambulance,omitempty"`
	FireDepartment *bool `json:"fireDepartment,omitempty" yaml:"fire_department,omitempty"`
	Rescue         *bool `json:"rescue,omitempty" yaml:"rescue,omitempty"`
}

// Empty reports whether no override is set
func (o SupportOverrides) Empty() bool {
	return o.Police == nil && o.Ambulance == nil && o.FireDepartment == nil && o.Rescue == nil
}

// ConversationState is one intake session
type ConversationState struct {
	SessionID string `json:"sessionId" yaml:"session_id"`
	UserID    string `json:"userId,omitempty" yaml:"user_id,omitempty"`

	Location             Location         `json:"location" yaml:"location"`
	EmergencyTypes       []Category       `json:"emergencyTypes" yaml:"emergency_types"`
	Phone                string           `json:"phone,omitempty" yaml:"phone,omitempty"`
	PhoneValidationError bool             `json:"phoneValidationError" yaml:"phone_validation_error"`
	PhoneError           string           `json:"phoneError,omitempty" yaml:"phone_error,omitempty"`
	AffectedPeople       AffectedPeople   `json:"affectedPeople" yaml:"affected_people"`
	SupportRequired      SupportRequired  `json:"supportRequired" yaml:"support_required"`
	SupportOverrides     SupportOverrides `json:"supportOverrides" yaml:"support_overrides"`
	Priority             Priority         `json:"priority" yaml:"priority"`
	Description          string           `json:"description,omitempty" yaml:"description,omitempty"`
	ReporterName         string           `json:"reporterName,omitempty" yaml:"reporter_name,omitempty"`

	CurrentStep        Step `json:"currentStep,omitempty" yaml:"current_step,omitempty"`
	ConfirmationShown  bool `json:"confirmationShown" yaml:"confirmation_shown"`
	UserConfirmed      bool `json:"userConfirmed" yaml:"user_confirmed"`
	FirstAidShown      bool `json:"firstAidShown" yaml:"first_aid_shown"`
	ShouldCreateTicket bool `json:"shouldCreateTicket" yaml:"should_create_ticket"`
	Completed          bool `json:"completed" yaml:"completed"`

	Messages []Message `json:"messages" yaml:"messages"`

	TicketInfo       *TicketInfo `json:"ticketInfo,omitempty" yaml:"ticket_info,omitempty"`
	FirstAidGuidance string      `json:"firstAidGuidance,omitempty" yaml:"first_aid_guidance,omitempty"`
	Response         string      `json:"response,omitempty" yaml:"response,omitempty"`
	TicketID         string      `json:"ticketId,omitempty" yaml:"ticket_id,omitempty"`

	Version   int64     `json:"version" yaml:"version"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
	ExpiresAt time.Time `json:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
}

// NewConversationState returns an empty session with HIGH priority
func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID:      sessionID,
		EmergencyTypes: []Category{},
		Messages:       []Message{},
		Priority:       PriorityHigh,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasCategory reports whether c has been collected
func (s *ConversationState) HasCategory(c Category) bool {
	return slices.Contains(s.EmergencyTypes, c)
}

// SecurityOnly reports whether the only known category is SECURITY
func (s *ConversationState) SecurityOnly() bool {
	return len(s.EmergencyTypes) == 1 && s.EmergencyTypes[0] == CategorySecurity
}

// MandatorySatisfied reports whether all four mandatory slots are collected
func (s *ConversationState) MandatorySatisfied() bool {
	return len(s.EmergencyTypes) > 0 &&
		s.Phone != "" &&
		s.Location.IsComplete &&
		s.AffectedPeople.Total > 0
}

// LastOperatorMessage returns the most recent operator question, if any
func (s *ConversationState) LastOperatorMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleOperator {
			return s.Messages[i].Text
		}
	}
	return ""
}

// ReporterMessages returns the reporter's own words in order
func (s *ConversationState) ReporterMessages() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == RoleReporter {
			out = append(out, m.Text)
		}
	}
	return out
}

// Clone returns a deep copy so callers never alias cached state
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.EmergencyTypes = slices.Clone(s.EmergencyTypes)
	if c.EmergencyTypes == nil {
		c.EmergencyTypes = []Category{}
	}
	c.Messages = slices.Clone(s.Messages)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.SupportOverrides = SupportOverrides{
		Police:         clonePtr(s.SupportOverrides.Police),
		Ambulance:      clonePtr(s.SupportOverrides.Ambulance),
		FireDepartment: clonePtr(s.SupportOverrides.FireDepartment),
		Rescue:         clonePtr(s.SupportOverrides.Rescue),
	}
	if s.TicketInfo != nil {
		info := s.TicketInfo.Clone()
		c.TicketInfo = &info
	}
	return &c
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
