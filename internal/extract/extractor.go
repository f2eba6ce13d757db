// ABOUTME: Extractor turns one reporter message into a state Update
// ABOUTME: Tries the language model first and falls back to keyword patterns on any failure
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/phone"
)

// Source records which path produced an extraction
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// DefaultTimeout bounds one model extraction call
const DefaultTimeout = 15 * time.Second

// Extractor pulls slot values out of free text
type Extractor struct {
	completer llm.Completer
	tables    *keywords.Tables
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// Option configures an Extractor
type Option func(*Extractor)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithClock sets the clock used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor. A nil completer means fallback only.
func New(completer llm.Completer, tables *keywords.Tables, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		tables:    tables,
		logger:    slog.Default(),
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the update for message. It never fails: model errors,
// timeouts, and invalid replies all route to the pattern fallback.
// The reporter message is always part of the update.
func (e *Extractor) Extract(ctx context.Context, message string, state *models.ConversationState) (models.Update, Source) {
	fields, source := e.fields(ctx, message, state)

	u := buildUpdate(fields, state)
	u.Messages = append(u.Messages, models.Message{
		Role:      models.RoleReporter,
		Text:      message,
		Timestamp: e.now(),
	})
	return u, source
}

func (e *Extractor) fields(ctx context.Context, message string, state *models.ConversationState) (Fields, Source) {
	if e.completer == nil {
		return Fallback(message, state, e.tables), SourceFallback
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.completer.Complete(callCtx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(message, state),
		Schema:      Schema(),
		SchemaName:  "extracted_info",
		Temperature: 0.1,
	})
	if err != nil {
		e.logger.Warn("extraction model call failed, using fallback", "error", err)
		return Fallback(message, state, e.tables), SourceFallback
	}

	var f Fields
	if err := llm.DecodeJSON(raw, &f); err != nil {
		e.logger.Warn("extraction reply unreadable, using fallback", "error", err)
		return Fallback(message, state, e.tables), SourceFallback
	}
	if err := f.Validate(); err != nil {
		e.logger.Warn("extraction reply invalid, using fallback", "error", err)
		return Fallback(message, state, e.tables), SourceFallback
	}
	return f, SourceModel
}

// buildUpdate converts extracted fields into a patch, validating the phone here
// so the reducer only ever sees dialable numbers
func buildUpdate(f Fields, state *models.ConversationState) models.Update {
	var u models.Update
	if state == nil {
		state = &models.ConversationState{}
	}

	if loc := f.Location; loc != nil {
		u.Location = models.LocationPatch{
			Address:  strings.TrimSpace(loc.Address),
			Ward:     strings.TrimSpace(loc.Ward),
			District: strings.TrimSpace(loc.District),
			City:     strings.TrimSpace(loc.City),
		}
	}

	for _, name := range f.EmergencyTypes {
		if c, ok := models.ParseCategory(name); ok {
			u.EmergencyTypes = append(u.EmergencyTypes, c)
		}
	}

	applyPhone(&u, strings.TrimSpace(f.Phone), state)

	if p := f.AffectedPeople; p != nil {
		u.People = models.PeoplePatch{Total: p.Total, Injured: p.Injured, Critical: p.Critical}
	}
	if s := f.SupportRequired; s != nil {
		u.Support = models.SupportOverrides{
			Police:         s.Police,
			Ambulance:      s.Ambulance,
			FireDepartment: s.FireDepartment,
			Rescue:         s.Rescue,
		}
	}

	if p := models.Priority(strings.ToUpper(strings.TrimSpace(f.Priority))); p.Valid() {
		u.Priority = p
	}
	if d := strings.TrimSpace(f.Description); d != "" && state.Description == "" {
		u.Description = d
	}
	u.ReporterName = strings.TrimSpace(f.ReporterName)

	return u
}

// applyPhone validates a candidate number. The error flag is only cleared by a
// number that validates; a message without one leaves it for the phone prompt.
func applyPhone(u *models.Update, candidate string, state *models.ConversationState) {
	if candidate == "" {
		return
	}
	res := phone.Validate(candidate)
	if res.IsValid {
		// the model sometimes echoes the stored number back
		if res.Normalized == state.Phone {
			if state.PhoneValidationError {
				u.PhoneValidationError = models.Ptr(false)
				u.PhoneError = models.Ptr("")
			}
			return
		}
		u.Phone = models.Ptr(res.Normalized)
		u.PhoneValidationError = models.Ptr(false)
		u.PhoneError = models.Ptr("")
		return
	}
	u.PhoneValidationError = models.Ptr(true)
	u.PhoneError = models.Ptr(res.Error)
}
