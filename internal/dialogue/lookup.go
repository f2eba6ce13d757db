// ABOUTME: Answers questions about previously filed tickets for signed-in reporters
// ABOUTME: Reads the ticket store and the reporter's memory; never writes either
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

// TicketLookup fetches a stored ticket; nil when absent
type TicketLookup interface {
	Get(ctx context.Context, id string) (*models.Ticket, error)
}

// UserMemories fetches a reporter's long-term memory; nil when absent
type UserMemories interface {
	Get(ctx context.Context, userID string) (*models.UserMemory, error)
}

const (
	lookupLoginRequired = "Để xem lịch sử phiếu và trạng thái xử lý, bạn cần đăng nhập vào hệ thống.\n\n" +
		"Nếu bạn cần báo cáo tình huống khẩn cấp mới, vui lòng mô tả tình huống của bạn."
	lookupNoTickets = "Bạn chưa có phiếu khẩn cấp nào trong hệ thống.\n\n" +
		"Nếu bạn cần báo cáo tình huống khẩn cấp, vui lòng mô tả tình huống và địa điểm."
	lookupUnavailable = "Xin lỗi, không thể tra cứu thông tin phiếu lúc này. Vui lòng thử lại sau."

	recentShown = 5
)

var statusLabels = map[models.TicketStatus]string{
	models.TicketUrgent:     "🔴 Khẩn cấp - Đang điều động",
	models.TicketInProgress: "🟡 Đang xử lý",
	models.TicketResolved:   "✅ Đã giải quyết",
	models.TicketCancelled:  "⚫ Đã hủy",
}

var statusIcons = map[models.TicketStatus]string{
	models.TicketUrgent:     "🔴",
	models.TicketInProgress: "🟡",
	models.TicketResolved:   "✅",
	models.TicketCancelled:  "⚫",
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("02/01/2006 15:04")
}

// lookup answers a past-ticket question for the session's user
func (e *Engine) lookup(ctx context.Context, state *models.ConversationState, message string) string {
	if state.UserID == "" || e.memories == nil {
		return lookupLoginRequired
	}

	mem, err := e.memories.Get(ctx, state.UserID)
	if err != nil {
		e.logger.Warn("failed to load user memory", "user_id", state.UserID, "error", err)
		return lookupUnavailable
	}
	if mem == nil {
		mem = &models.UserMemory{UserID: state.UserID}
	}

	if id := models.TicketIDPattern.FindString(strings.ToUpper(message)); id != "" {
		return e.describeTicket(ctx, id, mem)
	}
	return e.recentTickets(ctx, mem)
}

func (e *Engine) describeTicket(ctx context.Context, id string, mem *models.UserMemory) string {
	var t *models.Ticket
	if e.tickets != nil {
		var err error
		if t, err = e.tickets.Get(ctx, id); err != nil {
			e.logger.Warn("ticket lookup failed", "ticket_id", id, "error", err)
			return lookupUnavailable
		}
	}
	// another reporter's ticket reads as missing
	if t == nil || t.UserID != mem.UserID {
		return fmt.Sprintf("Không tìm thấy phiếu **%s**. Vui lòng kiểm tra lại mã phiếu.\n\nCác phiếu gần đây của bạn:\n%s",
			id, shortList(mem.RecentTickets))
	}

	names := make([]string, 0, len(t.Info.EmergencyTypes))
	for _, c := range t.Info.EmergencyTypes {
		names = append(names, c.DisplayName())
	}
	typeNames := strings.Join(names, ", ")
	if typeNames == "" {
		typeNames = "N/A"
	}
	location := t.Info.Location
	if location == "" {
		location = "N/A"
	}
	status := statusLabels[t.Status]
	if status == "" {
		status = string(t.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **PHIẾU %s**\n\n", t.ID)
	fmt.Fprintf(&b, "**Trạng thái:** %s\n", status)
	fmt.Fprintf(&b, "**Loại:** %s\n", typeNames)
	fmt.Fprintf(&b, "**Địa điểm:** %s\n", location)
	fmt.Fprintf(&b, "**Thời gian tạo:** %s", formatDate(t.CreatedAt))
	if t.Status == models.TicketResolved {
		fmt.Fprintf(&b, "\n**Thời gian xử lý xong:** %s", formatDate(t.UpdatedAt))
	}
	b.WriteString("\n\nBạn có cần hỗ trợ gì thêm không?")
	return b.String()
}

func (e *Engine) recentTickets(ctx context.Context, mem *models.UserMemory) string {
	recent := mem.RecentTickets
	if len(recent) == 0 {
		return lookupNoTickets
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **PHIẾU KHẨN CẤP CỦA BẠN** (%d phiếu)\n\n", len(recent))
	for i, s := range recent {
		if i == recentShown {
			break
		}
		status := s.Status
		// the memory copy can lag behind the store
		if e.tickets != nil {
			if t, err := e.tickets.Get(ctx, s.TicketID); err == nil && t != nil {
				status = t.Status
			}
		}
		icon := statusIcons[status]
		if icon == "" {
			icon = "⚪"
		}
		location := s.Location
		if location == "" {
			location = "N/A"
		}
		fmt.Fprintf(&b, "%s **%s** - %s\n   %s (%s)\n\n", icon, s.TicketID, status, location, formatDate(s.Date))
	}
	if len(recent) > recentShown {
		fmt.Fprintf(&b, "... và %d phiếu khác\n\n", len(recent)-recentShown)
	}
	b.WriteString("Để xem chi tiết, hãy nhập mã phiếu (ví dụ: \"Trạng thái phiếu TD-xxx\").\n")
	b.WriteString("Hoặc nếu bạn cần báo cáo tình huống mới, vui lòng mô tả.")
	return b.String()
}

func shortList(tickets []models.TicketSummary) string {
	if len(tickets) == 0 {
		return "Không có phiếu nào."
	}
	lines := make([]string, 0, 3)
	for i, t := range tickets {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", t.TicketID, t.Status, formatDate(t.Date)))
	}
	return strings.Join(lines, "\n")
}
