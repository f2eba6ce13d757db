// ABOUTME: UserMemory is the long-term record for an authenticated reporter
// ABOUTME: Read at session start to prefill phone/name; updated only by the ticket store
package models

import (
	"time"
)

// MaxRecentTickets caps how many ticket summaries a memory keeps
const MaxRecentTickets = 10

// TicketSummary is the short form of a past ticket kept in user memory
type TicketSummary struct {
	TicketID       string       `json:"ticketId"`
	Status         TicketStatus `json:"status"`
	EmergencyTypes []Category   `json:"emergencyTypes"`
	Location       string       `json:"location"`
	Date           time.Time    `json:"date"`
}

// UserMemory is keyed by user id
type UserMemory struct {
	UserID        string          `json:"userId"`
	Name          string          `json:"name,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	RecentTickets []TicketSummary `json:"recentTickets,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// RecordTicket puts a ticket at the front of RecentTickets, replacing any older entry
// with the same id, and remembers the reporter's name and phone when provided.
func (m *UserMemory) RecordTicket(t Ticket) {
	summary := TicketSummary{
		TicketID:       t.ID,
		Status:         t.Status,
		EmergencyTypes: t.Info.EmergencyTypes,
		Location:       t.Info.Location,
		Date:           t.CreatedAt,
	}

	kept := make([]TicketSummary, 0, len(m.RecentTickets)+1)
	kept = append(kept, summary)
	for _, s := range m.RecentTickets {
		if s.TicketID != t.ID {
			kept = append(kept, s)
		}
	}
	if len(kept) > MaxRecentTickets {
		kept = kept[:MaxRecentTickets]
	}
	m.RecentTickets = kept

	if t.Info.Reporter.Phone != "" {
		m.Phone = t.Info.Reporter.Phone
	}
	if name := t.Info.Reporter.Name; name != "" && name != UnknownReporter {
		m.Name = name
	}
	m.UpdatedAt = time.Now()
}

// UnknownReporter is the placeholder name used when the reporter never gave one
const UnknownReporter = "Chưa xác định"
