// ABOUTME: Fixed Vietnamese questions for each collection step
// ABOUTME: Location and people questions vary only by which sub-fields or categories are present
package dialogue

import (
	"github.com/harper/emergency-intake/internal/models"
)

const (
	promptEmergency = "Chuyện gì đang xảy ra? Có ai bị thương không?"
	promptPhone     = "Cho tôi số điện thoại để lực lượng cứu hộ liên hệ."

	promptLocationFull      = "Bạn đang ở đâu? Cho tôi địa chỉ đầy đủ (số nhà hoặc điểm mốc, tên đường, phường/xã, tỉnh/thành phố)."
	promptLocationWardCity  = "Phường/xã nào? Tỉnh/thành phố nào?"
	promptLocationWard      = "Phường hoặc xã nào?"
	promptLocationCity      = "Tỉnh hoặc thành phố nào?"
	promptLocationReconfirm = "Vui lòng xác nhận lại địa chỉ đầy đủ."

	promptPeopleMedical = "Có bao nhiêu người bị thương? Có ai nguy kịch không?"
	promptPeopleFire    = "Có bao nhiêu người bị ảnh hưởng? Có ai bị mắc kẹt không?"
	promptPeople        = "Có bao nhiêu người cần trợ giúp?"
)

// Prompt renders the question for a collection step
func Prompt(step models.Step, state *models.ConversationState) string {
	switch step {
	case models.StepAskEmergency:
		return promptEmergency
	case models.StepAskLocation:
		return locationPrompt(state.Location)
	case models.StepAskPhone:
		if state.PhoneValidationError && state.PhoneError != "" {
			return "⚠️ " + state.PhoneError + "\n\n" + promptPhone
		}
		return promptPhone
	case models.StepAskPeople:
		switch {
		case state.HasCategory(models.CategoryMedical):
			return promptPeopleMedical
		case state.HasCategory(models.CategoryFireRescue):
			return promptPeopleFire
		}
		return promptPeople
	}
	return ""
}

func locationPrompt(loc models.Location) string {
	switch {
	case loc.Address == "":
		return promptLocationFull
	case loc.Ward == "" && loc.City == "":
		return promptLocationWardCity
	case loc.City == "":
		return promptLocationCity
	case loc.Ward == "":
		return promptLocationWard
	}
	return promptLocationReconfirm
}
