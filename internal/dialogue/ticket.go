// ABOUTME: Ticket payload assembly and the confirmation summary shown before finalization
// ABOUTME: Both read only the collected state, never the raw transcript
package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

const defaultDescription = "Báo cáo qua tổng đài 112"

// BuildTicketInfo assembles the finalized payload from state
func BuildTicketInfo(state *models.ConversationState, now time.Time) models.TicketInfo {
	info := models.TicketInfo{
		SessionID:      state.SessionID,
		Location:       state.Location.String(),
		LocationDetail: state.Location,
		EmergencyTypes: append([]models.Category(nil), state.EmergencyTypes...),
		Description:    state.Description,
		Reporter: models.Reporter{
			Name:  state.ReporterName,
			Phone: state.Phone,
		},
		AffectedPeople:  state.AffectedPeople,
		SupportRequired: state.SupportRequired,
		Priority:        state.Priority,
		CreatedAt:       now,
	}

	if len(info.EmergencyTypes) > 0 {
		info.EmergencyType = info.EmergencyTypes[0]
	}
	if info.Description == "" {
		info.Description = defaultDescription
	}
	if info.Reporter.Name == "" {
		info.Reporter.Name = models.UnknownReporter
	}
	if info.AffectedPeople.Total <= 0 {
		info.AffectedPeople.Total = 1
	}
	if !info.Priority.Valid() {
		info.Priority = models.PriorityHigh
	}
	return info
}

// Summary renders the confirmation message
func Summary(state *models.ConversationState) string {
	names := make([]string, 0, len(state.EmergencyTypes))
	for _, c := range state.EmergencyTypes {
		names = append(names, c.DisplayName())
	}

	var b strings.Builder
	b.WriteString("📋 **XÁC NHẬN THÔNG TIN PHIẾU KHẨN CẤP:**\n\n")
	fmt.Fprintf(&b, "• **Địa điểm:** %s\n", state.Location.String())
	fmt.Fprintf(&b, "• **Loại tình huống:** %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "• **Số điện thoại:** %s\n", state.Phone)
	fmt.Fprintf(&b, "• **Số người bị ảnh hưởng:** %d người\n\n", state.AffectedPeople.Total)
	fmt.Fprintf(&b, "🚨 **Lực lượng sẽ điều động:** %s\n\n", forces(state.SupportRequired))
	b.WriteString(`⚠️ **Vui lòng xác nhận thông tin trên đã chính xác?** (Trả lời "Đúng" hoặc "Xác nhận" để tạo phiếu khẩn cấp)`)
	return b.String()
}

func forces(sr models.SupportRequired) string {
	var out []string
	if sr.Police {
		out = append(out, "Công an")
	}
	if sr.FireDepartment {
		out = append(out, "Cứu hỏa")
	}
	if sr.Ambulance {
		out = append(out, "Cấp cứu")
	}
	// fire crews already carry rescue equipment
	if sr.Rescue && !sr.FireDepartment {
		out = append(out, "Cứu hộ")
	}
	if len(out) == 0 {
		return "Lực lượng cứu hộ"
	}
	return strings.Join(out, ", ")
}
