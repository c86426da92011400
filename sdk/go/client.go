package focuslinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Focusline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Step is one actionable step of a priority.
type Step struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
}

// Priority is one of the week's goals. ActionableSteps is nil until
// steps have been generated.
type Priority struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	IsCompleted     bool   `json:"is_completed"`
	ActionableSteps []Step `json:"actionable_steps"`
}

// Record is the full weekly planning state.
type Record struct {
	Role                  string     `json:"role"`
	Priorities            []Priority `json:"priorities"`
	LastPrioritySetDate   *string    `json:"last_priority_set_date"`
	LastRetrospectiveDate *string    `json:"last_retrospective_date"`
}

// State pairs the record with the view the weekly cycle selects for it.
type State struct {
	View   string `json:"view"`
	Today  string `json:"today"`
	Record Record `json:"record"`
}

// Retrospective is the result of completing the Friday flow.
type Retrospective struct {
	Advice string `json:"advice"`
	Record Record `json:"record"`
}

// Event is a log entry.
type Event struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	EntityID string         `json:"entity_id"`
	Payload  map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// State returns the current record and selected view.
func (c *Client) State(ctx context.Context) (State, error) {
	var resp State
	err := c.do(ctx, http.MethodGet, "v0/state", nil, &resp)
	return resp, err
}

// SetRole records the user's work role.
func (c *Client) SetRole(ctx context.Context, role string) (Record, error) {
	var resp Record
	err := c.do(ctx, http.MethodPut, "v0/role", map[string]any{"role": role}, &resp)
	return resp, err
}

// SetPriorities replaces this week's plan.
func (c *Client) SetPriorities(ctx context.Context, priorities []string) (Record, error) {
	var resp Record
	err := c.do(ctx, http.MethodPut, "v0/priorities", map[string]any{"priorities": priorities}, &resp)
	return resp, err
}

// GenerateSteps asks the assistant to break a priority into steps.
func (c *Client) GenerateSteps(ctx context.Context, priorityID string) (Priority, error) {
	var resp Priority
	endpoint := fmt.Sprintf("v0/priorities/%s/steps", url.PathEscape(priorityID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// TogglePriority flips a priority's completion.
func (c *Client) TogglePriority(ctx context.Context, priorityID string) (Record, error) {
	var resp Record
	endpoint := fmt.Sprintf("v0/priorities/%s/toggle", url.PathEscape(priorityID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// ToggleStep flips a step's completion.
func (c *Client) ToggleStep(ctx context.Context, priorityID, stepID string) (Record, error) {
	var resp Record
	endpoint := fmt.Sprintf("v0/priorities/%s/steps/%s/toggle", url.PathEscape(priorityID), url.PathEscape(stepID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// CompleteRetrospective runs the Friday flow.
func (c *Client) CompleteRetrospective(ctx context.Context, carryOver []string, blockages string) (Retrospective, error) {
	body := map[string]any{
		"carry_over": carryOver,
		"blockages":  blockages,
	}
	var resp Retrospective
	err := c.do(ctx, http.MethodPost, "v0/retrospective", body, &resp)
	return resp, err
}

// ArchiveWeek closes a fully completed week.
func (c *Client) ArchiveWeek(ctx context.Context) (Record, error) {
	var resp Record
	err := c.do(ctx, http.MethodPost, "v0/archive", nil, &resp)
	return resp, err
}

// Motivation fetches the congratulatory message for completed work.
func (c *Client) Motivation(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodGet, "v0/motivation", nil, &resp)
	return resp.Message, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int, evtType string) ([]Event, error) {
	endpoint := "v0/events"
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if evtType != "" {
		params.Set("type", evtType)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
