// ABOUTME: Classifies the reporter's reply to the confirmation summary
// ABOUTME: Keyword fast path first; a schema-constrained model call only for unclear replies
package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
)

const classifyTimeout = 10 * time.Second

type confirmation struct {
	IsConfirming bool `json:"isConfirming"`
	IsCorrection bool `json:"isCorrection"`
}

var confirmationSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"isConfirming": {Type: jsonschema.Boolean, Description: "Người dùng đồng ý với thông tin"},
		"isCorrection": {Type: jsonschema.Boolean, Description: "Người dùng đang sửa hoặc phản đối thông tin"},
	},
	Required: []string{"isConfirming", "isCorrection"},
}

// Classifier decides whether a reply accepts the summary
type Classifier struct {
	completer llm.Completer
	tables    *keywords.Tables
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClassifier creates a Classifier. A nil completer disables the slow path.
func NewClassifier(completer llm.Completer, tables *keywords.Tables, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		completer: completer,
		tables:    tables,
		timeout:   classifyTimeout,
		logger:    logger,
	}
}

// FastConfirm reports whether text is a plain affirmative with no negation word
func (c *Classifier) FastConfirm(text string) bool {
	for _, neg := range c.tables.NegationKeywords {
		if keywords.ContainsWord(text, neg) {
			return false
		}
	}
	for _, kw := range c.tables.ConfirmKeywords {
		if keywords.ContainsWord(text, kw) {
			return true
		}
	}
	return false
}

// Classify returns ReplyConfirm or ReplyCorrect. Model failures count as a correction
// so nothing is filed without a clear yes.
func (c *Classifier) Classify(ctx context.Context, text string) ReplyKind {
	if c.FastConfirm(text) {
		return ReplyConfirm
	}
	if c.completer == nil {
		return ReplyCorrect
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.completer.Complete(callCtx, llm.CompletionRequest{
		System: "Bạn phân loại câu trả lời của người dùng cho tổng đài khẩn cấp 112.",
		Prompt: "Người dùng vừa được hỏi xác nhận thông tin. Họ trả lời: \"" + text + "\"\n\n" +
			"Họ có đang xác nhận (đồng ý với thông tin) hay đang sửa/phản đối?",
		Schema:     confirmationSchema,
		SchemaName: "confirmation_check",
	})
	if err != nil {
		c.logger.Warn("confirmation check failed", "error", err)
		return ReplyCorrect
	}

	var res confirmation
	if err := llm.DecodeJSON(raw, &res); err != nil {
		c.logger.Warn("confirmation check unreadable", "error", err)
		return ReplyCorrect
	}
	if res.IsConfirming && !res.IsCorrection {
		return ReplyConfirm
	}
	return ReplyCorrect
}
