// Package assistant is the boundary to the text-generation backend. Three
// operations, one round trip each, independently failable. Any backend or
// decoding failure surfaces as ErrUnavailable with a fixed per-operation
// message; callers leave their state untouched and let the user retry.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("assistant unavailable")

// Gateway is the contract the engine consumes. Tests substitute a stub.
type Gateway interface {
	// BreakdownPriority asks for 3-5 short imperative steps toward the
	// priority. The backend's count is not enforced; callers must handle
	// an empty list.
	BreakdownPriority(ctx context.Context, role, priority string) ([]string, error)
	// WeeklyAdvice asks for retrospective advice given the week's
	// priorities, what was achieved, and what blocked the rest.
	WeeklyAdvice(ctx context.Context, role string, priorities, achieved, blockages []string) (string, error)
	// MotivationalFeedback asks for a congratulatory message once every
	// priority is complete.
	MotivationalFeedback(ctx context.Context, role string, completed []string) (string, error)
}

// Service implements Gateway over a chat-completions Client.
type Service struct {
	Client *Client
}

func NewService(client *Client) *Service {
	return &Service{Client: client}
}

type breakdownPayload struct {
	ActionableSteps []string `json:"actionable_steps"`
}

type advicePayload struct {
	Advice string `json:"advice"`
}

type motivationPayload struct {
	Message string `json:"message"`
}

func (s *Service) BreakdownPriority(ctx context.Context, role, priority string) ([]string, error) {
	raw, err := s.Client.Complete(ctx, breakdownSystem, buildBreakdownPrompt(role, priority))
	if err != nil {
		return nil, unavailable("could not generate steps", err)
	}
	var payload breakdownPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, unavailable("could not generate steps", err)
	}
	if payload.ActionableSteps == nil {
		payload.ActionableSteps = []string{}
	}
	return payload.ActionableSteps, nil
}

func (s *Service) WeeklyAdvice(ctx context.Context, role string, priorities, achieved, blockages []string) (string, error) {
	raw, err := s.Client.Complete(ctx, adviceSystem, buildAdvicePrompt(role, priorities, achieved, blockages))
	if err != nil {
		return "", unavailable("could not generate weekly advice", err)
	}
	var payload advicePayload
	if err := decodeJSON(raw, &payload); err != nil {
		return "", unavailable("could not generate weekly advice", err)
	}
	return payload.Advice, nil
}

func (s *Service) MotivationalFeedback(ctx context.Context, role string, completed []string) (string, error) {
	raw, err := s.Client.Complete(ctx, motivationSystem, buildMotivationPrompt(role, completed))
	if err != nil {
		return "", unavailable("could not generate feedback", err)
	}
	var payload motivationPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return "", unavailable("could not generate feedback", err)
	}
	return payload.Message, nil
}

func unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %v", msg, ErrUnavailable, err)
}

// decodeJSON parses the model's reply, tolerating markdown code fences
// around the JSON object.
func decodeJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	return json.Unmarshal([]byte(raw), v)
}
