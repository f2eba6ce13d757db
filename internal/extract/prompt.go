// ABOUTME: Extraction prompt: the raw message, a snapshot of known fields, and the last question
// ABOUTME: Rules keep the model from repeating known data or inventing phone numbers
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/emergency-intake/internal/models"
)

const systemPrompt = `Bạn là hệ thống trích xuất thông tin cho tổng đài khẩn cấp 112.
Chỉ trả về một đối tượng JSON theo schema được cung cấp, không thêm lời giải thích.`

const rules = `Quy tắc:
1. CHỈ trích xuất thông tin MỚI xuất hiện trực tiếp trong tin nhắn.
2. KHÔNG lặp lại thông tin trong "Thông tin đã thu thập".
3. Tin nhắn chỉ có địa chỉ thì chỉ trả về location; chỉ có số điện thoại thì chỉ trả về phone.
4. Không có thông tin mới thì trả về {}.
5. Nếu câu hỏi vừa rồi hỏi số người và câu trả lời là một con số, đặt vào affectedPeople.total.
6. emergencyTypes: trộm/cướp/đánh nhau/gây rối → SECURITY; cháy/nổ/mắc kẹt/đuối nước/sập → FIRE_RESCUE; tai nạn/bị thương/bất tỉnh/cấp cứu → MEDICAL. Có thể nhiều loại.
7. Số điện thoại: giữ nguyên như người dùng viết; không bao giờ lấy từ "Thông tin đã thu thập".
8. supportRequired chỉ điền khi người dùng nói rõ cần hoặc không cần một lực lượng.`

type snapshot struct {
	Location       models.Location       `json:"location"`
	EmergencyTypes []models.Category     `json:"emergencyTypes"`
	Phone          string                `json:"phone,omitempty"`
	AffectedPeople models.AffectedPeople `json:"affectedPeople"`
}

func buildPrompt(message string, state *models.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tin nhắn người dùng: %q\n", message)

	if state != nil {
		snap, _ := json.MarshalIndent(snapshot{
			Location:       state.Location,
			EmergencyTypes: state.EmergencyTypes,
			Phone:          state.Phone,
			AffectedPeople: state.AffectedPeople,
		}, "", "  ")
		fmt.Fprintf(&b, "\nThông tin đã thu thập:\n%s\n", snap)

		if q := state.LastOperatorMessage(); q != "" {
			fmt.Fprintf(&b, "\nCâu hỏi vừa được hỏi: %q\n", q)
		}
	}

	b.WriteString("\n")
	b.WriteString(rules)
	return b.String()
}
