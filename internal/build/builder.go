// Package build orchestrates one exam build end to end: matrix template
// to slot list, bank assignment, optional AI synthesis for slots the
// bank cannot fill, totals reconciliation and persistence.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoclieu/examgen/internal/ai"
	"github.com/hoclieu/examgen/internal/exam"
)

// EventType identifies a build progress event.
type EventType string

const (
	EventSlotAssigned EventType = "slot_assigned"
	EventSlotUnmet    EventType = "slot_unmet"
	EventSynthesized  EventType = "synthesized"
	EventSynthFailed  EventType = "synth_failed"
	EventDone         EventType = "done"
)

// Event is one step of build progress, streamed to observers.
type Event struct {
	Type   EventType `json:"type"`
	QNo    int       `json:"qno,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// EventFunc receives progress events during a build. It is called
// synchronously from the build goroutine and must not block.
type EventFunc func(Event)

// Request describes one exam build.
type Request struct {
	Template     exam.Template `json:"template"`
	TemplateName string        `json:"template_name,omitempty"` // loader name, kept for re-export
	Scope        exam.Scope    `json:"scope"`
	Seed         int64         `json:"seed,omitempty"`       // 0 means exam.DefaultSeed
	Synthesize   bool          `json:"synthesize,omitempty"` // ask AI for unmet slots
}

// Result is a finished build: the filled slot list plus everything the
// exporters and the API need to render it.
type Result struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Template  string      `json:"template,omitempty"` // loader name of the matrix template
	Scope     exam.Scope  `json:"scope"`
	Seed      int64       `json:"seed"`
	Slots     []exam.Slot `json:"slots"`
	Warnings  []string    `json:"warnings"`
	PointDiff float64     `json:"point_diff"` // computed minus target, 0 when within tolerance
	CreatedAt time.Time   `json:"created_at"`
}

// Unmet returns the qnos of slots that could not be bound to a bank
// question (synthesized content does not clear this flag).
func (r *Result) Unmet() []int {
	var qnos []int
	for _, s := range r.Slots {
		if s.QuestionID == "" {
			qnos = append(qnos, s.QNo)
		}
	}
	return qnos
}

// Config holds the Builder's dependencies.
type Config struct {
	Synth   *ai.Synthesizer // nil disables AI fallback
	Store   Store           // nil falls back to an in-memory store
	OnEvent EventFunc       // nil disables progress events
}

// Builder runs exam builds. It holds no per-build state and is safe for
// concurrent use; each Build works on its own slot list.
type Builder struct {
	synth   *ai.Synthesizer
	store   Store
	onEvent EventFunc
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	onEvent := cfg.OnEvent
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Builder{
		synth:   cfg.Synth,
		store:   store,
		onEvent: onEvent,
	}
}

// Build generates slots from the template, assigns bank questions,
// optionally synthesizes content for unmet slots, reconciles totals and
// persists the result. Coverage shortfalls and point mismatches are
// warnings on the Result, never errors.
func (b *Builder) Build(ctx context.Context, req Request, bank *exam.Bank) (*Result, error) {
	return b.BuildWithEvents(ctx, req, bank, b.onEvent)
}

// BuildWithEvents is Build with a per-call event sink, for callers that
// stream progress to one client (the websocket endpoint).
func (b *Builder) BuildWithEvents(ctx context.Context, req Request, bank *exam.Bank, onEvent EventFunc) (*Result, error) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	tpl := req.Template
	if len(tpl.Lessons) == 0 {
		return nil, fmt.Errorf("template %q has no lesson rows", tpl.Title)
	}

	seed := req.Seed
	if seed == 0 {
		seed = exam.DefaultSeed
	}

	slots := exam.BuildSlots(tpl, tpl.PointsPerType)
	warnings := exam.Assign(slots, bank, req.Scope, seed)

	slog.Info("slots assigned",
		"template", tpl.Title,
		"slots", len(slots),
		"unmet", len(warnings),
		"seed", seed,
	)

	for i := range slots {
		if slots[i].QuestionID != "" {
			onEvent(Event{Type: EventSlotAssigned, QNo: slots[i].QNo, Detail: slots[i].QuestionID})
			continue
		}
		onEvent(Event{Type: EventSlotUnmet, QNo: slots[i].QNo})
		if req.Synthesize {
			b.synthesizeSlot(ctx, req, &slots[i], onEvent)
		}
	}

	diff, ok := exam.CheckTotal(tpl, tpl.PointsPerType, tpl.TotalPoints)
	if !ok {
		warnings = append(warnings, fmt.Sprintf(
			"Tổng điểm tính được lệch mục tiêu %.2f điểm (mục tiêu %.2f)", diff, tpl.TotalPoints))
	}

	res := &Result{
		Title:     tpl.Title,
		Template:  req.TemplateName,
		Scope:     req.Scope,
		Seed:      seed,
		Slots:     slots,
		Warnings:  warnings,
		PointDiff: diff,
		CreatedAt: time.Now(),
	}

	id, err := b.store.SaveBuild(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("save build: %w", err)
	}
	res.ID = id

	onEvent(Event{Type: EventDone, Detail: id})
	return res, nil
}

func (b *Builder) synthesizeSlot(ctx context.Context, req Request, s *exam.Slot, onEvent EventFunc) {
	if b.synth == nil {
		return
	}

	q, err := b.synth.Synthesize(ctx, ai.SynthRequest{
		Grade:   req.Scope.Grade,
		Subject: req.Scope.Subject,
		Topic:   s.Topic,
		Lesson:  s.Lesson,
		YCCD:    s.YCCD,
		QType:   s.QType,
		Level:   s.Level,
		Points:  s.Points,
	})
	if err != nil {
		// content stays blank; the slot remains reported as unmet
		slog.Warn("synthesis failed", "qno", s.QNo, "error", err)
		onEvent(Event{Type: EventSynthFailed, QNo: s.QNo, Detail: err.Error()})
		return
	}

	s.Stem = q.Stem
	s.Options = q.Options
	s.Answer = q.Answer
	s.MarkingGuide = q.MarkingGuide
	onEvent(Event{Type: EventSynthesized, QNo: s.QNo})
}
