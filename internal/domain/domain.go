package domain

// SchemaVersion is bumped when the persisted record shape changes in an
// incompatible way. A stored record with a different version is discarded
// and replaced by the default record.
const SchemaVersion = 1

type ActionableStep struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
}

// Priority is a single focus item for the week. ActionableSteps is nil
// until step generation has run; a generated-but-empty result is an empty
// non-nil slice, so "never generated" stays distinguishable.
type Priority struct {
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	IsCompleted     bool             `json:"is_completed"`
	ActionableSteps []ActionableStep `json:"actionable_steps"`
}

// UserData is the single persisted aggregate. Dates are RFC3339 strings;
// nil means the event has never happened. Invariant: Priorities non-empty
// implies LastPrioritySetDate non-nil.
type UserData struct {
	SchemaVersion         int        `json:"schema_version"`
	Role                  string     `json:"role,omitempty"`
	Priorities            []Priority `json:"priorities"`
	LastPrioritySetDate   *string    `json:"last_priority_set_date,omitempty"`
	LastRetrospectiveDate *string    `json:"last_retrospective_date,omitempty"`
}

// Default returns the pristine record used before first-time setup and
// whenever a stored record cannot be trusted.
func Default() UserData {
	return UserData{SchemaVersion: SchemaVersion, Priorities: []Priority{}}
}

// FindPriority returns the priority with the given id, or nil.
func (u UserData) FindPriority(id string) *Priority {
	for i := range u.Priorities {
		if u.Priorities[i].ID == id {
			return &u.Priorities[i]
		}
	}
	return nil
}

// CompletedTexts returns the texts of all completed priorities.
func (u UserData) CompletedTexts() []string {
	var out []string
	for _, p := range u.Priorities {
		if p.IsCompleted {
			out = append(out, p.Text)
		}
	}
	return out
}

// UncompletedTexts returns the texts of all priorities still open.
func (u UserData) UncompletedTexts() []string {
	var out []string
	for _, p := range u.Priorities {
		if !p.IsCompleted {
			out = append(out, p.Text)
		}
	}
	return out
}

// PriorityTexts returns the texts of all priorities in order.
func (u UserData) PriorityTexts() []string {
	out := make([]string, 0, len(u.Priorities))
	for _, p := range u.Priorities {
		out = append(out, p.Text)
	}
	return out
}

// AllCompleted reports whether the week has priorities and every one of
// them is done.
func (u UserData) AllCompleted() bool {
	if len(u.Priorities) == 0 {
		return false
	}
	for _, p := range u.Priorities {
		if !p.IsCompleted {
			return false
		}
	}
	return true
}
