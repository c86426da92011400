// Package engine orchestrates the weekly cycle: load the record, apply a
// pure transition, persist best-effort, append an event. The persisted and
// in-memory record may diverge after a failed write; the in-memory value
// stays authoritative for the session and the failure is only logged.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"focusline/internal/assistant"
	"focusline/internal/config"
	"focusline/internal/domain"
	"focusline/internal/events"
	"focusline/internal/plan"
	"focusline/internal/store"
	"focusline/internal/view"
	"focusline/internal/week"
)

var (
	// ErrNotFound reports a priority or step id that matches nothing.
	// Pure mutators tolerate dangling ids as no-ops; the engine surfaces
	// them for operations that would otherwise spend a model call or
	// return a misleading success.
	ErrNotFound = errors.New("not found")
	// ErrGenerationInFlight guards duplicate concurrent step generation
	// for the same priority.
	ErrGenerationInFlight = errors.New("step generation already in progress for this priority")
)

type Engine struct {
	DB        *sql.DB
	Store     store.Store
	Events    events.Writer
	Assistant assistant.Gateway
	Config    *config.Config
	Now       func() time.Time
	Log       *slog.Logger

	mu         sync.Mutex
	generating map[string]bool
}

func New(db *sql.DB, cfg *config.Config, gw assistant.Gateway) *Engine {
	return &Engine{
		DB:         db,
		Store:      store.Store{DB: db},
		Events:     events.Writer{DB: db},
		Assistant:  gw,
		Config:     cfg,
		Now:        time.Now,
		Log:        slog.Default(),
		generating: map[string]bool{},
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Engine) key() string {
	if e.Config != nil && e.Config.Storage.Key != "" {
		return e.Config.Storage.Key
	}
	return store.DefaultKey
}

// Rules returns the configured retrospective window.
func (e *Engine) Rules() view.Rules {
	if e.Config != nil && e.Config.Retrospective.Window == config.WindowToSunday {
		return view.WeekendRules()
	}
	return view.DefaultRules()
}

// Load returns the current record, defaulting when nothing usable is
// stored. A row that existed but could not be used is warned about; a
// first run with no row at all stays quiet.
func (e *Engine) Load(ctx context.Context) domain.UserData {
	rec, _, err := e.Store.Load(ctx, e.key())
	if err != nil {
		e.log().Warn("falling back to default record", "key", e.key(), "error", err)
	}
	return rec
}

// Snapshot is the record plus the view the weekly cycle selects for it.
type Snapshot struct {
	Record domain.UserData `json:"record"`
	View   view.View       `json:"view"`
	Today  string          `json:"today"`
}

// Snapshot evaluates the state machine against the current record and
// clock.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	rec := e.Load(ctx)
	now := e.now()
	v := e.Rules().Select(
		rec.Role,
		now.Weekday(),
		week.SameWeek(rec.LastPrioritySetDate, now),
		week.SameWeek(rec.LastRetrospectiveDate, now),
	)
	return Snapshot{Record: rec, View: v, Today: now.Format(time.RFC3339)}
}

// persist writes the record through and appends the transition event.
// Both are best-effort: a failure is logged, never raised, so a full disk
// or locked database degrades durability rather than breaking the
// session.
func (e *Engine) persist(ctx context.Context, rec domain.UserData, evtType, entityID string, payload events.Payload) {
	if err := e.Store.Save(ctx, e.key(), rec); err != nil {
		e.log().Warn("record write failed; in-memory state remains authoritative", "err", err)
	}
	if err := e.Events.Append(ctx, evtType, entityID, payload); err != nil {
		e.log().Warn("event append failed", "type", evtType, "err", err)
	}
}

// SetRole records the user's work role, completing first-time setup.
func (e *Engine) SetRole(ctx context.Context, role string) (domain.UserData, error) {
	if role == "" {
		return domain.UserData{}, errors.New("role is required")
	}
	rec := e.Load(ctx)
	rec.Role = role
	e.persist(ctx, rec, events.TypeRoleSet, "", events.Payload{"role": role})
	return rec, nil
}

// SetPriorities establishes the weekly plan.
func (e *Engine) SetPriorities(ctx context.Context, texts []string) (domain.UserData, error) {
	rec := e.Load(ctx)
	if rec.Role == "" {
		return rec, errors.New("a role is required before planning the week")
	}
	rec = plan.SetPriorities(rec, texts, e.now())
	if len(rec.Priorities) == 0 {
		return rec, errors.New("at least one non-empty priority is required")
	}
	e.persist(ctx, rec, events.TypePrioritiesSet, "", events.Payload{
		"count": len(rec.Priorities),
	})
	return rec, nil
}

// GenerateSteps asks the assistant to break one priority into actionable
// steps and swaps them in wholesale. The record is untouched when the
// backend fails. Generation is single-flight per priority id: the HTTP
// surface is concurrent, and two simultaneous generations for the same
// priority would race to overwrite each other.
func (e *Engine) GenerateSteps(ctx context.Context, priorityID string) (domain.Priority, error) {
	rec := e.Load(ctx)
	p := rec.FindPriority(priorityID)
	if p == nil {
		return domain.Priority{}, ErrNotFound
	}

	e.mu.Lock()
	if e.generating == nil {
		e.generating = map[string]bool{}
	}
	if e.generating[priorityID] {
		e.mu.Unlock()
		return domain.Priority{}, ErrGenerationInFlight
	}
	e.generating[priorityID] = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.generating, priorityID)
		e.mu.Unlock()
	}()

	steps, err := e.Assistant.BreakdownPriority(ctx, rec.Role, p.Text)
	if err != nil {
		return domain.Priority{}, err
	}

	// Re-load: toggles may have landed while the backend was thinking.
	rec = e.Load(ctx)
	rec = plan.ApplySteps(rec, priorityID, steps)
	updated := rec.FindPriority(priorityID)
	if updated == nil {
		// The plan was replaced mid-flight; drop the stale result.
		return domain.Priority{}, ErrNotFound
	}
	e.persist(ctx, rec, events.TypeStepsGenerated, priorityID, events.Payload{
		"steps": len(steps),
	})
	return *updated, nil
}

// TogglePriority flips one priority's completion. Unknown ids are a
// silent no-op, matching the data model's tolerance policy.
func (e *Engine) TogglePriority(ctx context.Context, priorityID string) domain.UserData {
	rec := plan.TogglePriority(e.Load(ctx), priorityID)
	e.persist(ctx, rec, events.TypePriorityToggled, priorityID, nil)
	return rec
}

// ToggleStep flips one step and ratchets the owning priority.
func (e *Engine) ToggleStep(ctx context.Context, priorityID, stepID string) domain.UserData {
	rec := plan.ToggleStep(e.Load(ctx), priorityID, stepID)
	e.persist(ctx, rec, events.TypeStepToggled, stepID, events.Payload{
		"priority_id": priorityID,
	})
	return rec
}

// ArchiveWeek closes a fully completed week.
func (e *Engine) ArchiveWeek(ctx context.Context) (domain.UserData, error) {
	rec := e.Load(ctx)
	completed := rec.CompletedTexts()
	rec, err := plan.ArchiveWeek(rec, e.now())
	if err != nil {
		return rec, err
	}
	e.persist(ctx, rec, events.TypeWeekArchived, "", events.Payload{
		"completed": completed,
	})
	return rec, nil
}

// Motivation fetches the congratulatory message for a completed week.
// Read-only: archiving is a separate, deliberate action.
func (e *Engine) Motivation(ctx context.Context) (string, error) {
	rec := e.Load(ctx)
	return e.Assistant.MotivationalFeedback(ctx, rec.Role, rec.CompletedTexts())
}

// CompleteRetrospective runs the Friday flow: derive achievements and
// blockages from the record, append the user's blockage narrative, fetch
// advice, then carry the chosen texts into the next week. The blockage
// narrative is forwarded to the assistant only, never stored. When the
// assistant fails, the record is left exactly as it was.
func (e *Engine) CompleteRetrospective(ctx context.Context, carryOverTexts []string, blockagesText string) (string, domain.UserData, error) {
	rec := e.Load(ctx)
	blockages := rec.UncompletedTexts()
	if blockagesText != "" {
		blockages = append(blockages, blockagesText)
	}
	advice, err := e.Assistant.WeeklyAdvice(ctx, rec.Role, rec.PriorityTexts(), rec.CompletedTexts(), blockages)
	if err != nil {
		return "", rec, err
	}
	rec = plan.CompleteRetrospective(rec, carryOverTexts, e.now())
	e.persist(ctx, rec, events.TypeRetroCompleted, "", events.Payload{
		"carried_over": len(rec.Priorities),
	})
	return advice, rec, nil
}
