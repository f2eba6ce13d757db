// ABOUTME: Engine runs one intake turn: load, extract, route, run one step, commit
// ABOUTME: Turns for the same session are serialized; every turn returns a response string
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harper/emergency-intake/internal/extract"
	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/observability"
	"github.com/harper/emergency-intake/internal/phone"
	"github.com/harper/emergency-intake/internal/session"
)

const (
	// DefaultTurnTimeout bounds the model work of a single turn
	DefaultTurnTimeout = 45 * time.Second

	commitTimeout = 10 * time.Second

	finalizingResponse = "✅ Đang tạo phiếu khẩn cấp..."
	guidanceHeader     = "🩹 **HƯỚNG DẪN SƠ CỨU:**\n"
)

// TurnInput is one inbound reporter message
type TurnInput struct {
	Message   string           `json:"message"`
	SessionID string           `json:"sessionId"`
	Context   []models.Message `json:"context,omitempty"`
	UserID    string           `json:"userId,omitempty"`
}

// TurnResult is what the caller shows and acts on
type TurnResult struct {
	Response           string             `json:"response"`
	TicketInfo         *models.TicketInfo `json:"ticketInfo,omitempty"`
	ShouldCreateTicket bool               `json:"shouldCreateTicket"`
	FirstAidGuidance   string             `json:"firstAidGuidance,omitempty"`
	Step               models.Step        `json:"step,omitempty"`
}

// Deps are the collaborators of an Engine. Tickets and Memories are optional.
type Deps struct {
	Store      *session.Store
	Extractor  *extract.Extractor
	Classifier *Classifier
	Guide      *Guide
	Tables     *keywords.Tables
	Tickets    TicketLookup
	Memories   UserMemories

	Logger      *slog.Logger
	Now         func() time.Time
	TurnTimeout time.Duration
}

// Engine orchestrates intake turns
type Engine struct {
	store      *session.Store
	extractor  *extract.Extractor
	classifier *Classifier
	guide      *Guide
	tables     *keywords.Tables
	tickets    TicketLookup
	memories   UserMemories

	logger      *slog.Logger
	now         func() time.Time
	turnTimeout time.Duration
}

// NewEngine validates deps and returns an Engine
func NewEngine(d Deps) (*Engine, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("engine requires a session store")
	case d.Extractor == nil:
		return nil, errors.New("engine requires an extractor")
	case d.Classifier == nil:
		return nil, errors.New("engine requires a confirmation classifier")
	case d.Guide == nil:
		return nil, errors.New("engine requires a guide")
	case d.Tables == nil:
		return nil, errors.New("engine requires keyword tables")
	}

	e := &Engine{
		store:       d.Store,
		extractor:   d.Extractor,
		classifier:  d.Classifier,
		guide:       d.Guide,
		tables:      d.Tables,
		tickets:     d.Tickets,
		memories:    d.Memories,
		logger:      d.Logger,
		now:         d.Now,
		turnTimeout: d.TurnTimeout,
	}
	if e.logger == nil {
		e.logger = observability.Logger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.turnTimeout <= 0 {
		e.turnTimeout = DefaultTurnTimeout
	}
	return e, nil
}

// ProcessTurn handles one reporter message. On a persistence failure the result
// still carries FallbackResponse and the error wraps session.ErrCheckpoint.
func (e *Engine) ProcessTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return TurnResult{Response: FallbackResponse}, ErrSessionRequired
	}

	ctx = observability.WithSession(ctx, in.SessionID, uuid.NewString())
	logger := observability.LoggerFromContext(ctx)
	start := e.now()

	unlock := e.store.Lock(in.SessionID)
	defer unlock()

	state, err := e.store.Get(ctx, in.SessionID)
	if err != nil {
		logger.Error("failed to load session", "error", err)
		return TurnResult{Response: FallbackResponse}, err
	}

	var seed []models.Update
	if state == nil || state.Completed {
		if state != nil {
			// a filed ticket ends the session; the next message starts a new report
			if err := e.store.Clear(ctx, in.SessionID); err != nil {
				logger.Error("failed to reset completed session", "error", err)
				return TurnResult{Response: FallbackResponse}, err
			}
		}
		seed = []models.Update{e.seed(ctx, in)}
		state = session.Apply(models.NewConversationState(in.SessionID, start), seed...)
	}

	turnCtx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	var (
		decision models.RoutingDecision
		stepped  []models.Update
	)
	if state.UserConfirmed {
		decision = models.RoutingDecision{Step: state.CurrentStep}
		stepped = []models.Update{e.reporterMessage(in.Message), e.say(frozenResponse(state))}
	} else {
		decision, stepped = e.turn(turnCtx, logger, state, in.Message)
	}
	if turnCtx.Err() != nil {
		logger.Warn("turn timed out, keeping transcript only", "error", turnCtx.Err())
		decision = models.RoutingDecision{Step: state.CurrentStep}
		stepped = []models.Update{e.reporterMessage(in.Message), e.say(FallbackResponse)}
	}
	updates := append(seed, stepped...)

	commitCtx, commitCancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer commitCancel()

	next, err := e.store.Merge(commitCtx, in.SessionID, updates...)
	if err != nil {
		logger.Error("failed to commit turn", "step", decision.Step, "error", err)
		return TurnResult{Response: FallbackResponse}, fmt.Errorf("process turn: %w", err)
	}

	logger.Info("turn processed",
		"step", decision.Step,
		"version", next.Version,
		"duration_ms", e.now().Sub(start).Milliseconds())

	return TurnResult{
		Response:           next.Response,
		TicketInfo:         next.TicketInfo,
		ShouldCreateTicket: next.ShouldCreateTicket,
		FirstAidGuidance:   next.FirstAidGuidance,
		Step:               decision.Step,
	}, nil
}

// turn extracts, routes, and runs exactly one step against an open session
func (e *Engine) turn(ctx context.Context, logger *slog.Logger, state *models.ConversationState, message string) (models.RoutingDecision, []models.Update) {
	sig := Signals{Lookup: e.tables.IsLookup(message)}
	awaiting := state.ConfirmationShown && !state.UserConfirmed

	var extracted models.Update
	switch {
	case sig.Lookup:
		extracted = e.reporterMessage(message)
	case awaiting && e.classifier.FastConfirm(message):
		// a plain "yes" carries no slot data
		sig.Reply = ReplyConfirm
		extracted = e.reporterMessage(message)
	default:
		var src extract.Source
		extracted, src = e.extractor.Extract(ctx, message, state)
		logger.Debug("extracted", "source", src, "slots", extracted.HasSlots())
		if awaiting {
			sig.Reply = e.classifier.Classify(ctx, message)
		}
	}

	projected := session.Apply(state, extracted)
	decision := Decide(projected, sig)
	logger.Debug("routed", "step", decision.Step, "reply", sig.Reply, "reset_confirmation", decision.ResetConfirmation)

	return decision, []models.Update{extracted, e.runStep(ctx, decision, projected, message)}
}

// runStep renders the chosen step as one update
func (e *Engine) runStep(ctx context.Context, d models.RoutingDecision, state *models.ConversationState, message string) models.Update {
	var u models.Update
	if d.ResetConfirmation {
		u.Flow.ConfirmationShown = models.Ptr(false)
		state = session.Apply(state, u)
	}

	var text string
	switch d.Step {
	case models.StepLookup:
		text = e.lookup(ctx, state, message)

	case models.StepFirstAid:
		guidance := e.guide.Synthesize(ctx, state)
		shown := session.Apply(state, models.Update{Flow: models.FlowPatch{FirstAidShown: models.Ptr(true)}})
		next := Decide(shown, Signals{})

		u.FirstAidGuidance = models.Ptr(guidance)
		u.Flow.FirstAidShown = models.Ptr(true)
		u.Flow.CurrentStep = models.Ptr(next.Step)
		text = guidanceHeader + guidance + "\n\n" + e.render(&u, next.Step, shown)

	case models.StepFinalize:
		info := BuildTicketInfo(state, e.now())
		u.TicketInfo = &info
		u.FirstAidGuidance = models.Ptr(e.guide.Synthesize(ctx, state))
		u.Flow.UserConfirmed = models.Ptr(true)
		u.Flow.ShouldCreateTicket = models.Ptr(true)
		u.Flow.CurrentStep = models.Ptr(models.StepFinalize)
		text = finalizingResponse

	default:
		u.Flow.CurrentStep = models.Ptr(d.Step)
		text = e.render(&u, d.Step, state)
	}

	u.Response = models.Ptr(text)
	u.Messages = []models.Message{{Role: models.RoleOperator, Text: text, Timestamp: e.now()}}
	return u
}

// render returns the text for a collection or confirmation step
func (e *Engine) render(u *models.Update, step models.Step, state *models.ConversationState) string {
	if step == models.StepConfirm {
		u.Flow.ConfirmationShown = models.Ptr(true)
		return Summary(state)
	}
	return Prompt(step, state)
}

// CompleteTicket records the id the ticket store assigned, closes the session,
// and returns guidance computed against the finalized state
func (e *Engine) CompleteTicket(ctx context.Context, sessionID, ticketID string) (string, error) {
	if strings.TrimSpace(ticketID) == "" {
		return "", ErrTicketID
	}
	ctx = observability.WithSession(ctx, sessionID, uuid.NewString())

	unlock := e.store.Lock(sessionID)
	defer unlock()

	state, err := e.confirmedSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("complete ticket %s: %w", ticketID, err)
	}
	return e.complete(ctx, state, ticketID)
}

// confirmedSession loads a session that has an accepted ticket. Callers hold the session lock.
func (e *Engine) confirmedSession(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	if !state.UserConfirmed || state.TicketInfo == nil {
		return nil, ErrNotConfirmed
	}
	return state, nil
}

func (e *Engine) complete(ctx context.Context, state *models.ConversationState, ticketID string) (string, error) {
	guidance := e.guide.Synthesize(ctx, state)
	text := fmt.Sprintf("✅ Đã tạo phiếu khẩn cấp **%s**. Lực lượng chức năng đang được điều động.\n\n%s%s",
		ticketID, guidanceHeader, guidance)

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	_, err := e.store.Merge(commitCtx, state.SessionID, models.Update{
		TicketID:         ticketID,
		FirstAidGuidance: models.Ptr(guidance),
		Response:         models.Ptr(text),
		Messages:         []models.Message{{Role: models.RoleOperator, Text: text, Timestamp: e.now()}},
		Flow: models.FlowPatch{
			CurrentStep:        models.Ptr(models.StepCompleted),
			ShouldCreateTicket: models.Ptr(false),
			Completed:          models.Ptr(true),
		},
	})
	if err != nil {
		return "", fmt.Errorf("complete ticket %s: %w", ticketID, err)
	}

	observability.LoggerFromContext(ctx).Info("ticket completed", "ticket_id", ticketID)
	return guidance, nil
}

// ClearSession deletes a session
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	unlock := e.store.Lock(sessionID)
	defer unlock()
	return e.store.Clear(ctx, sessionID)
}

// Session returns a copy of the stored session
func (e *Engine) Session(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return state, nil
}

// seed prepares a brand-new session: user link, remembered contact details,
// and any transcript carried over from another channel
func (e *Engine) seed(ctx context.Context, in TurnInput) models.Update {
	u := models.Update{UserID: in.UserID}

	for _, m := range in.Context {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = e.now()
		}
		if m.Role != models.RoleOperator {
			m.Role = models.RoleReporter
		}
		u.Messages = append(u.Messages, m)
	}

	if in.UserID == "" || e.memories == nil {
		return u
	}
	mem, err := e.memories.Get(ctx, in.UserID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to load user memory", "error", err)
		return u
	}
	if mem == nil {
		return u
	}
	if res := phone.Validate(mem.Phone); res.IsValid {
		u.Phone = models.Ptr(res.Normalized)
	}
	if mem.Name != "" && mem.Name != models.UnknownReporter {
		u.ReporterName = mem.Name
	}
	return u
}

func (e *Engine) reporterMessage(text string) models.Update {
	return models.Update{Messages: []models.Message{{Role: models.RoleReporter, Text: text, Timestamp: e.now()}}}
}

func (e *Engine) say(text string) models.Update {
	return models.Update{
		Response: models.Ptr(text),
		Messages: []models.Message{{Role: models.RoleOperator, Text: text, Timestamp: e.now()}},
	}
}

func frozenResponse(state *models.ConversationState) string {
	return fmt.Sprintf("Phiếu khẩn cấp của bạn đang được tạo. Lực lượng chức năng sẽ liên hệ qua số %s.", state.Phone)
}
