// ABOUTME: Pure per-field reducers that merge an Update into a ConversationState
// ABOUTME: Scalars last-write-wins, categories union, nested objects merge by key, messages append
package session

import (
	"slices"

	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/phone"
)

// Apply returns a new state with every update merged in order; the input is never mutated.
// Once the reporter has confirmed, slot fields and the ticket payload are frozen.
// A phone that fails validation is ignored so the stored number is always dialable.
func Apply(state *models.ConversationState, updates ...models.Update) *models.ConversationState {
	next := state.Clone()
	for _, u := range updates {
		applyOne(next, u)
	}
	return next
}

func applyOne(s *models.ConversationState, u models.Update) {
	frozen := s.UserConfirmed

	if u.UserID != "" {
		s.UserID = u.UserID
	}

	if !frozen {
		mergeLocation(&s.Location, u.Location)
		s.EmergencyTypes = unionCategories(s.EmergencyTypes, u.EmergencyTypes)
		mergePeople(&s.AffectedPeople, u.People)
		mergeOverrides(&s.SupportOverrides, u.Support)
		s.SupportRequired = DeriveSupport(s.EmergencyTypes, s.SupportOverrides)

		if u.Phone != nil {
			if res := phone.Validate(*u.Phone); res.IsValid {
				s.Phone = res.Normalized
			}
		}
		if u.PhoneValidationError != nil {
			s.PhoneValidationError = *u.PhoneValidationError
		}
		if u.PhoneError != nil {
			s.PhoneError = *u.PhoneError
		}
		if u.Priority.Valid() {
			s.Priority = u.Priority
		}
		if u.Description != "" {
			s.Description = u.Description
		}
		if u.ReporterName != "" {
			s.ReporterName = u.ReporterName
		}
	}

	s.Messages = append(s.Messages, u.Messages...)
	mergeFlow(s, u.Flow)

	if u.TicketInfo != nil && (!frozen || s.TicketInfo == nil) {
		info := u.TicketInfo.Clone()
		s.TicketInfo = &info
	}
	if u.FirstAidGuidance != nil {
		s.FirstAidGuidance = *u.FirstAidGuidance
	}
	if u.Response != nil {
		s.Response = *u.Response
	}
	if u.TicketID != "" {
		s.TicketID = u.TicketID
	}
}

func mergeLocation(loc *models.Location, p models.LocationPatch) {
	if p.Address != "" {
		loc.Address = p.Address
	}
	if p.Ward != "" {
		loc.Ward = p.Ward
	}
	if p.District != "" {
		loc.District = p.District
	}
	if p.City != "" {
		loc.City = p.City
	}
	loc.IsComplete = loc.Complete()
}

// unionCategories keeps the set sorted in canonical order and drops unknown values
func unionCategories(have, add []models.Category) []models.Category {
	out := make([]models.Category, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		if slices.Contains(have, c) || slices.Contains(add, c) {
			out = append(out, c)
		}
	}
	return out
}

func mergePeople(p *models.AffectedPeople, patch models.PeoplePatch) {
	if patch.Injured != nil {
		p.Injured = *patch.Injured
	}
	if patch.Critical != nil {
		p.Critical = *patch.Critical
	}
	if patch.Total != nil {
		p.Total = *patch.Total
		return
	}
	if p.Total == 0 && (patch.Injured != nil || patch.Critical != nil) {
		p.Total = p.Injured + p.Critical
	}
}

func mergeOverrides(o *models.SupportOverrides, patch models.SupportOverrides) {
	if patch.Police != nil {
		o.Police = models.Ptr(*patch.Police)
	}
	if patch.Ambulance != nil {
		o.Ambulance = models.Ptr(*patch.Ambulance)
	}
	if patch.FireDepartment != nil {
		o.FireDepartment = models.Ptr(*patch.FireDepartment)
	}
	if patch.Rescue != nil {
		o.Rescue = models.Ptr(*patch.Rescue)
	}
}

func mergeFlow(s *models.ConversationState, f models.FlowPatch) {
	if f.CurrentStep != nil {
		s.CurrentStep = *f.CurrentStep
	}
	if f.ConfirmationShown != nil {
		s.ConfirmationShown = *f.ConfirmationShown
	}
	if f.UserConfirmed != nil {
		s.UserConfirmed = *f.UserConfirmed
	}
	if f.FirstAidShown != nil {
		s.FirstAidShown = *f.FirstAidShown
	}
	if f.ShouldCreateTicket != nil {
		s.ShouldCreateTicket = *f.ShouldCreateTicket
	}
	if f.Completed != nil {
		s.Completed = *f.Completed
	}
}

// DeriveSupport maps categories to forces, then applies explicit overrides key by key
func DeriveSupport(types []models.Category, o models.SupportOverrides) models.SupportRequired {
	var sr models.SupportRequired
	for _, c := range types {
		switch c {
		case models.CategorySecurity:
			sr.Police = true
		case models.CategoryMedical:
			sr.Ambulance = true
		case models.CategoryFireRescue:
			sr.FireDepartment = true
			sr.Rescue = true
		}
	}
	if o.Police != nil {
		sr.Police = *o.Police
	}
	if o.Ambulance != nil {
		sr.Ambulance = *o.Ambulance
	}
	if o.FireDepartment != nil {
		sr.FireDepartment = *o.FireDepartment
	}
	if o.Rescue != nil {
		sr.Rescue = *o.Rescue
	}
	return sr
}
