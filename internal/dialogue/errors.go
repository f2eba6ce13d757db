// ABOUTME: Sentinel errors and the fixed apology returned when a turn cannot be committed
package dialogue

import "errors"

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConfirmed    = errors.New("session has no confirmed ticket")
	ErrTicketID        = errors.New("ticket id is required")
)

// FallbackResponse is shown whenever a turn could not be processed or saved
const FallbackResponse = "Xin lỗi, hệ thống đang gặp sự cố. Vui lòng thử lại."
