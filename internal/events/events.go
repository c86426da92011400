// Package events appends an audit trail of accepted weekly-cycle
// transitions. The log is advisory: the persisted record is the source of
// truth, the events exist for `fl log tail` and the retrospective.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeRoleSet         = "role.set"
	TypePrioritiesSet   = "priorities.set"
	TypeStepsGenerated  = "steps.generated"
	TypePriorityToggled = "priority.toggled"
	TypeStepToggled     = "step.toggled"
	TypeWeekArchived    = "week.archived"
	TypeRetroCompleted  = "retrospective.completed"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

type Event struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	EntityID string         `json:"entity_id,omitempty"`
	Payload  map[string]any `json:"payload"`
}

func (w Writer) Append(ctx context.Context, evtType, entityID string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx,
		`INSERT INTO events(ts, type, entity_id, payload_json) VALUES (?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, nullable(entityID), string(data))
	return err
}

// Latest returns up to n most recent events, newest first, optionally
// filtered by type.
func (w Writer) Latest(ctx context.Context, n int, evtType string) ([]Event, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id, ts, type, COALESCE(entity_id,''), payload_json FROM events`
	args := []any{}
	if evtType != "" {
		query += ` WHERE type=?`
		args = append(args, evtType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, n)

	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var payload string
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityID, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			e.Payload = map[string]any{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
