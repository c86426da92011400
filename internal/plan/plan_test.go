package plan

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"focusline/internal/domain"
)

var testNow = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) // Monday

func TestSetPriorities(t *testing.T) {
	rec := domain.Default()
	rec = SetPriorities(rec, []string{"Ship v2", "  ", "Hire reviewer"}, testNow)
	if len(rec.Priorities) != 2 {
		t.Fatalf("expected 2 priorities, got %d", len(rec.Priorities))
	}
	if rec.LastPrioritySetDate == nil || *rec.LastPrioritySetDate != testNow.Format(time.RFC3339) {
		t.Fatalf("plan date not stamped: %v", rec.LastPrioritySetDate)
	}
	for _, p := range rec.Priorities {
		if p.ID == "" || p.IsCompleted || p.ActionableSteps != nil {
			t.Fatalf("fresh priority malformed: %+v", p)
		}
	}
	// ids are unique
	if rec.Priorities[0].ID == rec.Priorities[1].ID {
		t.Fatal("priority ids must be unique")
	}
}

func TestApplyStepsReplacesWholesale(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID

	rec = ApplySteps(rec, id, []string{"Write design doc", "Get review"})
	steps := rec.Priorities[0].ActionableSteps
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	firstIDs := []string{steps[0].ID, steps[1].ID}

	// regeneration replaces the full set with fresh ids
	rec = ApplySteps(rec, id, []string{"Draft announcement"})
	steps = rec.Priorities[0].ActionableSteps
	if len(steps) != 1 {
		t.Fatalf("expected replacement set of 1, got %d", len(steps))
	}
	if steps[0].ID == firstIDs[0] || steps[0].ID == firstIDs[1] {
		t.Fatal("regenerated steps must get fresh ids")
	}
}

func TestApplyStepsEmptyResultIsRecorded(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, nil)
	if rec.Priorities[0].ActionableSteps == nil {
		t.Fatal("empty generation should leave an empty non-nil slice")
	}
	if len(rec.Priorities[0].ActionableSteps) != 0 {
		t.Fatal("expected zero steps")
	}
}

func TestUnknownIDsAreSilentNoOps(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, []string{"a", "b"})

	before := rec
	cases := []struct {
		name    string
		mutated domain.UserData
	}{
		{"ApplySteps", ApplySteps(rec, "nope", []string{"x"})},
		{"TogglePriority", TogglePriority(rec, "nope")},
		{"ToggleStep priority", ToggleStep(rec, "nope", rec.Priorities[0].ActionableSteps[0].ID)},
		{"ToggleStep step", ToggleStep(rec, id, "nope")},
	}
	for _, tc := range cases {
		if !reflect.DeepEqual(tc.mutated, before) {
			t.Fatalf("%s with dangling id should not change the record", tc.name)
		}
	}
}

func TestTogglePriority(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = TogglePriority(rec, id)
	if !rec.Priorities[0].IsCompleted {
		t.Fatal("expected priority completed")
	}
	rec = TogglePriority(rec, id)
	if rec.Priorities[0].IsCompleted {
		t.Fatal("expected priority reopened; direct toggles have no ratchet")
	}
}

func TestToggleStepIdempotence(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, []string{"a", "b"})
	stepID := rec.Priorities[0].ActionableSteps[0].ID

	before := rec
	rec = ToggleStep(rec, id, stepID)
	rec = ToggleStep(rec, id, stepID)
	if !reflect.DeepEqual(rec, before) {
		t.Fatalf("double toggle should restore the record bit for bit\nbefore: %+v\nafter:  %+v", before, rec)
	}
}

func TestStepCompletionRatchet(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, []string{"a", "b"})
	s1 := rec.Priorities[0].ActionableSteps[0].ID
	s2 := rec.Priorities[0].ActionableSteps[1].ID

	rec = ToggleStep(rec, id, s1)
	if rec.Priorities[0].IsCompleted {
		t.Fatal("one of two steps done should not complete the priority")
	}
	rec = ToggleStep(rec, id, s2)
	if !rec.Priorities[0].IsCompleted {
		t.Fatal("all steps done should auto-complete the priority")
	}
	// unchecking a step must not revert the priority
	rec = ToggleStep(rec, id, s1)
	if rec.Priorities[0].ActionableSteps[0].IsCompleted {
		t.Fatal("step should be unchecked")
	}
	if !rec.Priorities[0].IsCompleted {
		t.Fatal("ratchet violated: priority reverted when a step was unchecked")
	}
}

func TestTogglePriorityLeavesStepsAlone(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, []string{"a"})
	rec = TogglePriority(rec, id)
	if rec.Priorities[0].ActionableSteps[0].IsCompleted {
		t.Fatal("priority toggle must not touch steps")
	}
}

func TestArchiveWeek(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2", "Hire"}, testNow)

	// open priorities: rejected
	if _, err := ArchiveWeek(rec, testNow); !errors.Is(err, ErrWeekIncomplete) {
		t.Fatalf("expected ErrWeekIncomplete, got %v", err)
	}

	// empty plan: also rejected, there is nothing to archive
	if _, err := ArchiveWeek(domain.Default(), testNow); !errors.Is(err, ErrWeekIncomplete) {
		t.Fatalf("expected ErrWeekIncomplete for empty plan, got %v", err)
	}

	for _, p := range rec.Priorities {
		rec = TogglePriority(rec, p.ID)
	}
	later := testNow.Add(96 * time.Hour)
	archived, err := ArchiveWeek(rec, later)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(archived.Priorities) != 0 {
		t.Fatal("archive should clear priorities")
	}
	if archived.LastPrioritySetDate != nil {
		t.Fatal("archive should reset the plan date")
	}
	if archived.LastRetrospectiveDate == nil || *archived.LastRetrospectiveDate != later.Format(time.RFC3339) {
		t.Fatalf("retrospective date not stamped: %v", archived.LastRetrospectiveDate)
	}
}

func TestCompleteRetrospective(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2", "Hire"}, testNow)
	oldIDs := map[string]bool{rec.Priorities[0].ID: true, rec.Priorities[1].ID: true}

	friday := time.Date(2024, 1, 12, 17, 0, 0, 0, time.UTC)
	out := CompleteRetrospective(rec, []string{"Hire"}, friday)
	if len(out.Priorities) != 1 {
		t.Fatalf("expected 1 carried-over priority, got %d", len(out.Priorities))
	}
	carried := out.Priorities[0]
	if carried.IsCompleted || carried.ActionableSteps != nil {
		t.Fatalf("carry-over must be fresh and incomplete: %+v", carried)
	}
	if oldIDs[carried.ID] {
		t.Fatal("carry-over must get a fresh id")
	}
	ts := friday.Format(time.RFC3339)
	if out.LastRetrospectiveDate == nil || *out.LastRetrospectiveDate != ts {
		t.Fatalf("retro date not stamped: %v", out.LastRetrospectiveDate)
	}
	if out.LastPrioritySetDate == nil || *out.LastPrioritySetDate != ts {
		t.Fatalf("plan date should be stamped for non-empty carry-over: %v", out.LastPrioritySetDate)
	}

	// empty carry-over leaves next week unplanned
	out = CompleteRetrospective(rec, nil, friday)
	if len(out.Priorities) != 0 {
		t.Fatal("expected no priorities")
	}
	if out.LastPrioritySetDate != nil {
		t.Fatal("plan date must be nil when nothing was carried over")
	}
	if out.LastRetrospectiveDate == nil {
		t.Fatal("retro date must still be stamped")
	}
}

func TestMutatorsDoNotAliasInput(t *testing.T) {
	rec := SetPriorities(domain.Default(), []string{"Ship v2"}, testNow)
	id := rec.Priorities[0].ID
	rec = ApplySteps(rec, id, []string{"a"})
	stepID := rec.Priorities[0].ActionableSteps[0].ID

	snapshot := rec
	_ = ToggleStep(rec, id, stepID)
	_ = TogglePriority(rec, id)
	_ = ApplySteps(rec, id, []string{"b"})
	if !reflect.DeepEqual(rec, snapshot) {
		t.Fatal("mutators must not modify the input record in place")
	}
}

func TestEndToEndWeek(t *testing.T) {
	rec := domain.Default()
	rec.Role = "Engineer"

	now1 := testNow
	rec = SetPriorities(rec, []string{"Ship v2"}, now1)
	if len(rec.Priorities) != 1 || *rec.LastPrioritySetDate != now1.Format(time.RFC3339) {
		t.Fatalf("after set: %+v", rec)
	}
	id := rec.Priorities[0].ID

	rec = ApplySteps(rec, id, []string{"Write design doc", "Get review"})
	if n := len(rec.Priorities[0].ActionableSteps); n != 2 {
		t.Fatalf("expected 2 steps, got %d", n)
	}
	for _, s := range rec.Priorities[0].ActionableSteps {
		rec = ToggleStep(rec, id, s.ID)
	}
	if !rec.Priorities[0].IsCompleted {
		t.Fatal("priority should auto-complete")
	}

	now2 := now1.Add(24 * time.Hour)
	rec, err := ArchiveWeek(rec, now2)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(rec.Priorities) != 0 || rec.LastPrioritySetDate != nil {
		t.Fatalf("after archive: %+v", rec)
	}
	if *rec.LastRetrospectiveDate != now2.Format(time.RFC3339) {
		t.Fatalf("retro date: %v", *rec.LastRetrospectiveDate)
	}
}
