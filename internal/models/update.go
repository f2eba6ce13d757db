// ABOUTME: Update is a partial patch against ConversationState produced by one step
// ABOUTME: Nil pointers and empty strings mean "not provided" so reducers can merge per field
package models

// LocationPatch carries address fragments; empty strings are ignored
type LocationPatch struct {
	Address  string `json:"address,omitempty"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
}

// Empty reports whether no fragment is set
func (p LocationPatch) Empty() bool {
	return p.Address == "" && p.Ward == "" && p.District == "" && p.City == ""
}

// PeoplePatch carries affected-people counts; nil means "not mentioned"
type PeoplePatch struct {
	Total    *int `json:"total,omitempty"`
	Injured  *int `json:"injured,omitempty"`
	Critical *int `json:"critical,omitempty"`
}

// Empty reports whether no count is set
func (p PeoplePatch) Empty() bool {
	return p.Total == nil && p.Injured == nil && p.Critical == nil
}

// FlowPatch carries flow-control flags
type FlowPatch struct {
	CurrentStep        *Step `json:"currentStep,omitempty"`
	ConfirmationShown  *bool `json:"confirmationShown,omitempty"`
	UserConfirmed      *bool `json:"userConfirmed,omitempty"`
	FirstAidShown      *bool `json:"firstAidShown,omitempty"`
	ShouldCreateTicket *bool `json:"shouldCreateTicket,omitempty"`
	Completed          *bool `json:"completed,omitempty"`
}

// Update is one partial change to a session
type Update struct {
	UserID string `json:"userId,omitempty"`

	Location       LocationPatch    `json:"location,omitempty"`
	EmergencyTypes []Category       `json:"emergencyTypes,omitempty"`
	People         PeoplePatch      `json:"affectedPeople,omitempty"`
	Support        SupportOverrides `json:"supportRequired,omitempty"`
	Priority       Priority         `json:"priority,omitempty"`
	Description    string           `json:"description,omitempty"`
	ReporterName   string           `json:"reporterName,omitempty"`

	// Phone must already be validated and normalized when set
	Phone                *string `json:"phone,omitempty"`
	PhoneValidationError *bool   `json:"phoneValidationError,omitempty"`
	PhoneError           *string `json:"phoneError,omitempty"`

	Messages []Message `json:"messages,omitempty"`
	Flow     FlowPatch `json:"flow,omitempty"`

	TicketInfo       *TicketInfo `json:"ticketInfo,omitempty"`
	FirstAidGuidance *string     `json:"firstAidGuidance,omitempty"`
	Response         *string     `json:"response,omitempty"`
	TicketID         string      `json:"ticketId,omitempty"`
}

// HasSlots reports whether the update touches any collected slot
func (u Update) HasSlots() bool {
	return !u.Location.Empty() ||
		len(u.EmergencyTypes) > 0 ||
		!u.People.Empty() ||
		!u.Support.Empty() ||
		u.Phone != nil
}
