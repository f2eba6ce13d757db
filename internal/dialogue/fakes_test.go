// ABOUTME: Test doubles for the model, retrieval, ticket store, and user memory
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/emergency-intake/internal/extract"
	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/session"
)

// fakeModel answers by request kind: extraction replies are consumed in order
type fakeModel struct {
	mu sync.Mutex

	extractions  []string
	extractErr   error
	blockExtract bool
	confirm      string
	guidance     string

	calls map[string]int
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		confirm:  `{"isConfirming":false,"isCorrection":true}`,
		guidance: "1. Rời khỏi khu vực có khói.\n2. Dùng khăn ướt che mũi.",
		calls:    make(map[string]int),
	}
}

func (f *fakeModel) queue(replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions = append(f.extractions, replies...)
}

func (f *fakeModel) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeModel) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	kind := req.SchemaName
	if kind == "" {
		kind = "guidance"
	}
	f.calls[kind]++

	switch kind {
	case "extracted_info":
		if f.blockExtract {
			f.mu.Unlock()
			<-ctx.Done()
			return "", ctx.Err()
		}
		defer f.mu.Unlock()
		if f.extractErr != nil {
			return "", f.extractErr
		}
		if len(f.extractions) == 0 {
			return "{}", nil
		}
		next := f.extractions[0]
		f.extractions = f.extractions[1:]
		return next, nil
	case "confirmation_check":
		defer f.mu.Unlock()
		return f.confirm, nil
	}
	defer f.mu.Unlock()
	return f.guidance, nil
}

type fakeSearcher struct {
	mu         sync.Mutex
	chunks     []models.ScoredChunk
	err        error
	calls      int
	categories []models.Category
	query      string
}

func (f *fakeSearcher) Search(_ context.Context, query string, categories []models.Category, k int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.query = query
	f.categories = categories
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > k {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

func defaultChunks() []models.ScoredChunk {
	return []models.ScoredChunk{{
		Chunk: models.DocumentChunk{
			ID:         "chunk_1",
			Content:    "Khi có cháy, rời khỏi khu vực có khói và dùng khăn ướt che mũi.",
			SourceName: "FIRE_RESCUE/chay.md",
			Category:   models.CategoryFireRescue,
		},
		Score: 0.9,
	}}
}

type fakeTickets map[string]*models.Ticket

func (f fakeTickets) Get(_ context.Context, id string) (*models.Ticket, error) {
	return f[id], nil
}

type fakeMemories map[string]*models.UserMemory

func (f fakeMemories) Get(_ context.Context, userID string) (*models.UserMemory, error) {
	return f[userID], nil
}

// failingCheckpointer loads nothing and refuses every write
type failingCheckpointer struct{}

func (failingCheckpointer) Load(context.Context, string) (*models.ConversationState, error) {
	return nil, nil
}

func (failingCheckpointer) Save(context.Context, *models.ConversationState) error {
	return errors.New("disk full")
}

func (failingCheckpointer) Delete(context.Context, string) error { return nil }

type harness struct {
	engine   *Engine
	model    *fakeModel
	searcher *fakeSearcher
	store    *session.Store
}

type harnessOption func(*Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	return newHarnessWith(t, session.NewMemoryCheckpointer(), opts...)
}

func newHarnessWith(t *testing.T, cp session.Checkpointer, opts ...harnessOption) *harness {
	t.Helper()

	model := newFakeModel()
	searcher := &fakeSearcher{chunks: defaultChunks()}
	tables := keywords.MustDefault()
	store := session.NewStore(cp)

	deps := Deps{
		Store:      store,
		Extractor:  extract.New(model, tables),
		Classifier: NewClassifier(model, tables, nil),
		Guide:      NewGuide(model, searcher, tables),
		Tables:     tables,
		Now:        func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	engine, err := NewEngine(deps)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return &harness{engine: engine, model: model, searcher: searcher, store: store}
}

func (h *harness) turn(t *testing.T, sessionID, message string) TurnResult {
	t.Helper()
	res, err := h.engine.ProcessTurn(context.Background(), TurnInput{SessionID: sessionID, Message: message})
	if err != nil {
		t.Fatalf("ProcessTurn(%q) error = %v", message, err)
	}
	if res.Response == "" {
		t.Fatalf("ProcessTurn(%q) returned an empty response", message)
	}
	return res
}

func (h *harness) state(t *testing.T, sessionID string) *models.ConversationState {
	t.Helper()
	s, err := h.engine.Session(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	return s
}

// fakeCreator hands out sequential ticket ids
type fakeCreator struct {
	created []models.Ticket
	err     error
}

func (f *fakeCreator) Create(_ context.Context, userID string, info models.TicketInfo) (*models.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := models.Ticket{
		ID:     fmt.Sprintf("TD-20261017-093000-%04d", len(f.created)+1),
		UserID: userID,
		Status: models.TicketUrgent,
		Info:   info.Clone(),
	}
	f.created = append(f.created, t)
	return &t, nil
}

// confirm stores a session whose ticket has been accepted
func (h *harness) confirm(t *testing.T, sessionID string) {
	t.Helper()
	info := models.TicketInfo{
		SessionID:      sessionID,
		Location:       "12 Lê Lợi, Quận 1, Hồ Chí Minh",
		EmergencyType:  models.CategoryFireRescue,
		EmergencyTypes: []models.Category{models.CategoryFireRescue},
		Reporter:       models.Reporter{Name: models.UnknownReporter, Phone: "0912345678"},
		Priority:       models.PriorityHigh,
	}
	_, err := h.store.Merge(context.Background(), sessionID, models.Update{
		UserID:         "u1",
		EmergencyTypes: []models.Category{models.CategoryFireRescue},
		Phone:          models.Ptr("0912345678"),
		TicketInfo:     &info,
		Flow: models.FlowPatch{
			UserConfirmed:      models.Ptr(true),
			ShouldCreateTicket: models.Ptr(true),
			CurrentStep:        models.Ptr(models.StepFinalize),
		},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
}
