// ABOUTME: Retrieval-grounded first-aid guidance for the reported categories
// ABOUTME: Builds a query from the reporter's words, retrieves chunks, and filters the model's answer
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/models"
)

const (
	// GenericGuidance is used whenever nothing grounded can be said
	GenericGuidance = "Vui lòng giữ bình tĩnh và chờ lực lượng chức năng đến xử lý."
	// SecurityGuidance is the fixed answer for security-only incidents
	SecurityGuidance = "Vui lòng giữ bình tĩnh và chờ lực lượng công an đến xử lý."

	// DefaultTopK is how many chunks are handed to the model
	DefaultTopK = 3

	maxSteps           = 5
	maxQueryRunes      = 300
	guidanceTimeout    = 20 * time.Second
	noGuidanceSentinel = "NONE"
)

// Searcher finds reference chunks for a query within categories
type Searcher interface {
	Search(ctx context.Context, query string, categories []models.Category, k int) ([]models.ScoredChunk, error)
}

// Guide synthesizes first-aid guidance
type Guide struct {
	completer llm.Completer
	searcher  Searcher
	tables    *keywords.Tables
	topK      int
	timeout   time.Duration
	logger    *slog.Logger
}

// GuideOption configures a Guide
type GuideOption func(*Guide)

// WithTopK sets how many chunks are retrieved
func WithTopK(k int) GuideOption {
	return func(g *Guide) {
		if k > 0 {
			g.topK = k
		}
	}
}

// WithGuideLogger sets the logger
func WithGuideLogger(l *slog.Logger) GuideOption {
	return func(g *Guide) { g.logger = l }
}

// NewGuide creates a Guide. Without a completer or searcher it always returns GenericGuidance.
func NewGuide(completer llm.Completer, searcher Searcher, tables *keywords.Tables, opts ...GuideOption) *Guide {
	g := &Guide{
		completer: completer,
		searcher:  searcher,
		tables:    tables,
		topK:      DefaultTopK,
		timeout:   guidanceTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Synthesize returns guidance for state. It never fails; every problem
// degrades to GenericGuidance.
func (g *Guide) Synthesize(ctx context.Context, state *models.ConversationState) string {
	if state.SecurityOnly() {
		return SecurityGuidance
	}
	if len(state.EmergencyTypes) == 0 || g.completer == nil || g.searcher == nil {
		return GenericGuidance
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	query := g.Query(state)
	chunks, err := g.searcher.Search(ctx, query, searchCategories(state.EmergencyTypes), g.topK)
	if err != nil {
		g.logger.Warn("guidance retrieval failed", "error", err)
		return GenericGuidance
	}
	if len(chunks) == 0 {
		g.logger.Debug("no reference material matched", "query", query)
		return GenericGuidance
	}

	raw, err := g.completer.Complete(ctx, llm.CompletionRequest{
		System:      guidanceSystem,
		Prompt:      guidancePrompt(state, chunks),
		Temperature: 0.1,
	})
	if err != nil {
		g.logger.Warn("guidance generation failed", "error", err)
		return GenericGuidance
	}

	out := FilterGuidance(raw)
	if out == "" || strings.EqualFold(strings.Trim(out, " .\"'"), noGuidanceSentinel) {
		return GenericGuidance
	}
	return out
}

// Query builds the retrieval query: salient keywords from the reporter's own words,
// else the trimmed description, else the generic query for each category
func (g *Guide) Query(state *models.ConversationState) string {
	said := keywords.Normalize(strings.Join(state.ReporterMessages(), " "))

	var found []string
	seen := make(map[string]bool)
	for _, c := range searchCategories(state.EmergencyTypes) {
		for _, kw := range g.tables.Guidance[c].Keywords {
			if !seen[kw] && strings.Contains(said, kw) {
				seen[kw] = true
				found = append(found, kw)
			}
		}
	}
	if len(found) > 0 {
		return strings.Join(found, " ")
	}

	if d := strings.TrimSpace(state.Description); d != "" {
		return truncateRunes(d, maxQueryRunes)
	}

	parts := make([]string, 0, len(state.EmergencyTypes))
	for _, c := range state.EmergencyTypes {
		if q := g.tables.Guidance[c].Query; q != "" {
			parts = append(parts, q)
		}
	}
	return strings.Join(parts, " ")
}

// searchCategories is the reported set plus MEDICAL, in canonical order
func searchCategories(types []models.Category) []models.Category {
	out := make([]models.Category, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		if c == models.CategoryMedical {
			out = append(out, c)
			continue
		}
		for _, t := range types {
			if t == c {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

const guidanceSystem = "Bạn là tổng đài viên 112 đang cung cấp hướng dẫn xử lý ban đầu cho tình huống khẩn cấp."

func guidancePrompt(state *models.ConversationState, chunks []models.ScoredChunk) string {
	var refs strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			refs.WriteString("\n\n")
		}
		fmt.Fprintf(&refs, "[Tài liệu %d - %s]:\n%s", i+1, ch.Chunk.SourceName, ch.Chunk.Content)
	}

	types := make([]string, len(state.EmergencyTypes))
	for i, c := range state.EmergencyTypes {
		types[i] = string(c)
	}
	desc := strings.TrimSpace(state.Description)
	if desc == "" {
		desc = "Không có mô tả chi tiết"
	}

	return fmt.Sprintf(`**TÌNH HUỐNG:**
Loại: %s
Mô tả: %s

**TÀI LIỆU THAM KHẢO:**
%s

**QUY TẮC BẮT BUỘC:**
1. CHỈ sử dụng thông tin CÓ TRONG tài liệu tham khảo phía trên.
2. KHÔNG tự bịa ra hoặc suy luận thông tin không có trong tài liệu.
3. KHÔNG ghi nguồn trích dẫn hay tên tài liệu.
4. KHÔNG khuyên gọi 113, 114, 115 hay đến cơ sở y tế: người dùng đang liên hệ qua hệ thống này và lực lượng chức năng sẽ đến.
5. Nếu tài liệu KHÔNG đề cập đến tình huống này, chỉ trả lời đúng một từ: %s
6. Nếu có hướng dẫn phù hợp: danh sách đánh số (1., 2., 3.), ngắn gọn, tối đa %d bước.

Hãy cung cấp hướng dẫn xử lý ban đầu:`, strings.Join(types, ", "), desc, refs.String(), noGuidanceSentinel, maxSteps)
}

var (
	disallowed = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[Nguồn:.*?\]`),
		regexp.MustCompile(`(?im)Nguồn:.*$`),
		regexp.MustCompile(`(?i)\[Tài liệu.*?\]`),
		regexp.MustCompile(`(?i)Gọi.*?(113|114|115|cấp cứu|cứu hỏa|công an).*?\.`),
		regexp.MustCompile(`(?i)Di chuyển.*?cơ sở y tế.*?\.`),
		regexp.MustCompile(`(?i)Đến.*?(bệnh viện|phòng khám|cơ sở y tế).*?\.`),
		regexp.MustCompile(`(?i)Liên hệ.*?(bác sĩ|y tế|cấp cứu).*?\.`),
	}
	numberedStep = regexp.MustCompile(`^\s*\d+[.)](?:\s+|$)`)
)

// FilterGuidance strips citations and redirecting advice, drops steps left empty,
// renumbers what remains, and keeps at most five steps
func FilterGuidance(text string) string {
	for _, re := range disallowed {
		text = re.ReplaceAllString(text, "")
	}

	var out []string
	step := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if loc := numberedStep.FindStringIndex(line); loc != nil {
			body := strings.TrimSpace(line[loc[1]:])
			if body == "" {
				continue
			}
			step++
			if step > maxSteps {
				break
			}
			line = fmt.Sprintf("%d. %s", step, body)
		}
		if strings.TrimSpace(line) == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
