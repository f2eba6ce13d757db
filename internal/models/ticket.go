// ABOUTME: Ticket payload produced on finalization and the stored ticket record
// ABOUTME: Ticket ids follow TD-YYYYMMDD-HHMMSS-XXXX
package models

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the dispatch status tracked by the ticket store
type TicketStatus string

const (
	TicketUrgent     TicketStatus = "URGENT"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketResolved   TicketStatus = "RESOLVED"
	TicketCancelled  TicketStatus = "CANCELLED"
)

// Reporter identifies who filed the ticket
type Reporter struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
}

// TicketInfo is the finalized payload handed to the ticket store
type TicketInfo struct {
	SessionID       string          `json:"sessionId" yaml:"session_id"`
	Location        string          `json:"location" yaml:"location"`
	LocationDetail  Location        `json:"locationDetail" yaml:"location_detail"`
	EmergencyType   Category        `json:"emergencyType,omitempty" yaml:"emergency_type,omitempty"`
	EmergencyTypes  []Category      `json:"emergencyTypes" yaml:"emergency_types"`
	Description     string          `json:"description" yaml:"description"`
	Reporter        Reporter        `json:"reporter" yaml:"reporter"`
	AffectedPeople  AffectedPeople  `json:"affectedPeople" yaml:"affected_people"`
	SupportRequired SupportRequired `json:"supportRequired" yaml:"support_required"`
	Priority        Priority        `json:"priority" yaml:"priority"`
	CreatedAt       time.Time       `json:"createdAt" yaml:"created_at"`
}

// Clone returns a deep copy
func (t TicketInfo) Clone() TicketInfo {
	t.EmergencyTypes = slices.Clone(t.EmergencyTypes)
	return t
}

// Ticket is a persisted ticket
type Ticket struct {
	ID        string       `json:"ticketId"`
	UserID    string       `json:"userId,omitempty"`
	Status    TicketStatus `json:"status"`
	Info      TicketInfo   `json:"info"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TicketIDPattern matches a full ticket id anywhere in text
var TicketIDPattern = regexp.MustCompile(`TD-\d{8}-\d{6}-[A-Z0-9]{4}`)

// NewTicketID generates an id like TD-20261017-143005-7F3A
func NewTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:4]
	return fmt.Sprintf("TD-%s-%s", now.Format("20060102-150405"), suffix)
}
