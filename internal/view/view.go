// Package view holds the weekly-cycle state machine: a pure decision
// function from (role, day of week, two per-week flags) to the screen the
// interface should present. Nothing here reads the clock; callers inject
// the current day so the machine stays deterministic under test.
package view

import "time"

type View string

const (
	Welcome             View = "welcome"
	MondaySetup         View = "monday"
	Dashboard           View = "dashboard"
	FridayRetrospective View = "friday"
)

// Rules parameterizes the retrospective window. The original cycle offers
// the retrospective on the literal weekday Friday only; skipping it means
// the dashboard for the rest of the week, with no make-up day. A broader
// window (Friday through Sunday) can be configured instead.
type Rules struct {
	RetroDays []time.Weekday
}

// DefaultRules returns the Friday-only retrospective window.
func DefaultRules() Rules {
	return Rules{RetroDays: []time.Weekday{time.Friday}}
}

// WeekendRules returns the broadened Friday-through-Sunday window.
func WeekendRules() Rules {
	return Rules{RetroDays: []time.Weekday{time.Friday, time.Saturday, time.Sunday}}
}

// Select maps the current situation to a view. Rules are evaluated in
// order; the first match wins:
//  1. no role yet -> Welcome
//  2. retrospective day, plan set this week, retro not yet done -> FridayRetrospective
//  3. plan set this week -> Dashboard
//  4. otherwise -> MondaySetup (whatever the actual weekday)
func (r Rules) Select(role string, day time.Weekday, prioritiesSetThisWeek, retrospectiveDoneThisWeek bool) View {
	if role == "" {
		return Welcome
	}
	if r.isRetroDay(day) && prioritiesSetThisWeek && !retrospectiveDoneThisWeek {
		return FridayRetrospective
	}
	if prioritiesSetThisWeek {
		return Dashboard
	}
	return MondaySetup
}

func (r Rules) isRetroDay(day time.Weekday) bool {
	for _, d := range r.RetroDays {
		if d == day {
			return true
		}
	}
	return false
}

// Select applies DefaultRules.
func Select(role string, day time.Weekday, prioritiesSetThisWeek, retrospectiveDoneThisWeek bool) View {
	return DefaultRules().Select(role, day, prioritiesSetThisWeek, retrospectiveDoneThisWeek)
}
