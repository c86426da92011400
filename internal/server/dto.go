package server

import (
	"focusline/internal/domain"
	"focusline/internal/events"
)

type SetRoleRequest struct {
	Role string `json:"role" example:"Staff Engineer"`
}

type SetPrioritiesRequest struct {
	Priorities []string `json:"priorities" example:"[\"Ship the v2 migration\"]"`
}

type RetrospectiveRequest struct {
	CarryOver []string `json:"carry_over,omitempty"`
	Blockages string   `json:"blockages,omitempty"`
}

type StepResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
}

type PriorityResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
	// nil means steps were never generated; an empty array means
	// generation ran and produced nothing.
	ActionableSteps []StepResponse `json:"actionable_steps"`
}

type RecordResponse struct {
	Role                  string             `json:"role"`
	Priorities            []PriorityResponse `json:"priorities"`
	LastPrioritySetDate   *string            `json:"last_priority_set_date"`
	LastRetrospectiveDate *string            `json:"last_retrospective_date"`
}

type StateResponse struct {
	View   string         `json:"view" example:"dashboard"`
	Today  string         `json:"today" example:"2024-01-08"`
	Record RecordResponse `json:"record"`
}

type RetrospectiveResponse struct {
	Advice string         `json:"advice"`
	Record RecordResponse `json:"record"`
}

type MotivationResponse struct {
	Message string `json:"message"`
}

type EventResponse struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	EntityID string         `json:"entity_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

func stepResponses(steps []domain.ActionableStep) []StepResponse {
	if steps == nil {
		return nil
	}
	out := make([]StepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, StepResponse{ID: s.ID, Text: s.Text, IsCompleted: s.IsCompleted})
	}
	return out
}

func priorityResponse(p domain.Priority) PriorityResponse {
	return PriorityResponse{
		ID:              p.ID,
		Text:            p.Text,
		IsCompleted:     p.IsCompleted,
		ActionableSteps: stepResponses(p.ActionableSteps),
	}
}

func recordResponse(rec domain.UserData) RecordResponse {
	priorities := make([]PriorityResponse, 0, len(rec.Priorities))
	for _, p := range rec.Priorities {
		priorities = append(priorities, priorityResponse(p))
	}
	return RecordResponse{
		Role:                  rec.Role,
		Priorities:            priorities,
		LastPrioritySetDate:   rec.LastPrioritySetDate,
		LastRetrospectiveDate: rec.LastRetrospectiveDate,
	}
}

func eventResponse(e events.Event) EventResponse {
	return EventResponse{
		ID:       e.ID,
		TS:       e.TS,
		Type:     e.Type,
		EntityID: e.EntityID,
		Payload:  e.Payload,
	}
}
