// Package plan contains the pure transition functions over the persisted
// weekly record. Every function takes the record by value and returns a
// new one; persistence is the caller's job. Mutations addressing an id
// that matches nothing return the record unchanged; callers treat
// dangling references as a no-op, not an error.
package plan

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"focusline/internal/domain"
)

// ErrWeekIncomplete is returned by ArchiveWeek when at least one priority
// is still open (or no plan exists at all).
var ErrWeekIncomplete = errors.New("week has uncompleted priorities")

// SetPriorities replaces the whole weekly plan with one fresh priority per
// input text and stamps the plan date. Blank texts are dropped.
func SetPriorities(rec domain.UserData, texts []string, now time.Time) domain.UserData {
	priorities := make([]domain.Priority, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		priorities = append(priorities, domain.Priority{
			ID:   uuid.New().String(),
			Text: text,
		})
	}
	rec.Priorities = priorities
	ts := now.Format(time.RFC3339)
	rec.LastPrioritySetDate = &ts
	return rec
}

// ApplySteps replaces the actionable steps of one priority wholesale with
// fresh entries built from stepTexts. Partial regeneration is not a thing:
// either the full set is swapped in or nothing changes. An empty stepTexts
// produces an empty non-nil slice, recording that generation ran.
func ApplySteps(rec domain.UserData, priorityID string, stepTexts []string) domain.UserData {
	rec.Priorities = clonePriorities(rec.Priorities)
	p := rec.FindPriority(priorityID)
	if p == nil {
		return rec
	}
	steps := make([]domain.ActionableStep, 0, len(stepTexts))
	for _, text := range stepTexts {
		steps = append(steps, domain.ActionableStep{
			ID:   uuid.New().String(),
			Text: text,
		})
	}
	p.ActionableSteps = steps
	return rec
}

// TogglePriority flips completion on exactly one priority. Steps are left
// alone.
func TogglePriority(rec domain.UserData, priorityID string) domain.UserData {
	rec.Priorities = clonePriorities(rec.Priorities)
	if p := rec.FindPriority(priorityID); p != nil {
		p.IsCompleted = !p.IsCompleted
	}
	return rec
}

// ToggleStep flips completion on exactly one step, then ratchets the
// owning priority: once every step is done the priority is marked done,
// and un-checking a step afterwards never reverts it. The rule only fires
// in the completing direction.
func ToggleStep(rec domain.UserData, priorityID, stepID string) domain.UserData {
	rec.Priorities = clonePriorities(rec.Priorities)
	p := rec.FindPriority(priorityID)
	if p == nil {
		return rec
	}
	found := false
	for i := range p.ActionableSteps {
		if p.ActionableSteps[i].ID == stepID {
			p.ActionableSteps[i].IsCompleted = !p.ActionableSteps[i].IsCompleted
			found = true
			break
		}
	}
	if !found {
		return rec
	}
	p.IsCompleted = p.IsCompleted || allStepsCompleted(p.ActionableSteps)
	return rec
}

// ArchiveWeek closes out a fully completed week: priorities are cleared,
// the retrospective date is stamped, and the plan date is reset so the
// next view is the Monday setup. A week with open priorities is rejected.
func ArchiveWeek(rec domain.UserData, now time.Time) (domain.UserData, error) {
	if !rec.AllCompleted() {
		return rec, ErrWeekIncomplete
	}
	rec.Priorities = []domain.Priority{}
	ts := now.Format(time.RFC3339)
	rec.LastRetrospectiveDate = &ts
	rec.LastPrioritySetDate = nil
	return rec, nil
}

// CompleteRetrospective replaces the plan with fresh incomplete priorities
// built from the carry-over texts and stamps the retrospective date. The
// plan date is stamped only when something was carried over; an empty
// carry-over leaves next week unplanned. Blockage narrative is the
// caller's to forward to the assistant; it is never stored.
func CompleteRetrospective(rec domain.UserData, carryOverTexts []string, now time.Time) domain.UserData {
	priorities := make([]domain.Priority, 0, len(carryOverTexts))
	for _, text := range carryOverTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		priorities = append(priorities, domain.Priority{
			ID:   uuid.New().String(),
			Text: text,
		})
	}
	rec.Priorities = priorities
	ts := now.Format(time.RFC3339)
	rec.LastRetrospectiveDate = &ts
	if len(priorities) > 0 {
		rec.LastPrioritySetDate = &ts
	} else {
		rec.LastPrioritySetDate = nil
	}
	return rec
}

func allStepsCompleted(steps []domain.ActionableStep) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if !s.IsCompleted {
			return false
		}
	}
	return true
}

// clonePriorities deep-copies the priority slice so mutators never alias
// the caller's record.
func clonePriorities(in []domain.Priority) []domain.Priority {
	out := make([]domain.Priority, len(in))
	copy(out, in)
	for i := range out {
		if out[i].ActionableSteps != nil {
			steps := make([]domain.ActionableStep, len(out[i].ActionableSteps))
			copy(steps, out[i].ActionableSteps)
			out[i].ActionableSteps = steps
		}
	}
	return out
}
