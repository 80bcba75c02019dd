// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits enforced by the task-storage service.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Task represents a single task owned by one user.
// ID, CreatedAt and UpdatedAt are assigned by the storage service.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// timeLayouts are accepted for created_at/updated_at. The storage service
// may omit the zone offset, in which case UTC is assumed.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// UnmarshalJSON accepts the task id as either a JSON string or a number,
// and timestamps with or without a zone offset.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		ID        json.RawMessage `json:"id"`
		CreatedAt string          `json:"created_at"`
		UpdatedAt string          `json:"updated_at"`
		*alias
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if t.CreatedAt, err = parseTimestamp(aux.CreatedAt); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTimestamp(aux.UpdatedAt); err != nil {
		return fmt.Errorf("updated_at: %w", err)
	}
	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		t.ID = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &t.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		t.ID = n.String()
	}
	return nil
}

// Filter selects which of the owner's tasks are listed.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter parses a filter name. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("invalid filter: %s", s)
	}
}

// Status returns the value sent as the status query parameter.
// FilterAll sends nothing.
func (f Filter) Status() string {
	if f == FilterAll {
		return ""
	}
	return string(f)
}

// Matches reports whether t belongs in a listing under f.
func (f Filter) Matches(t Task) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// ListOptions controls a List call. Zero Limit uses the service default.
type ListOptions struct {
	Filter Filter
	Offset int
	Limit  int
}

// ListResult is one page of tasks.
type ListResult struct {
	Tasks  []Task `json:"tasks"`
	Total  int    `json:"total"`
	Offset int    `json:"skip"`
	Limit  int    `json:"limit"`
}

// CreateInput is the body of a create call.
type CreateInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the input against the storage service's field limits.
func (in CreateInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	return validateDescription(in.Description)
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Empty reports whether the update changes nothing.
func (in UpdateInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Completed == nil
}

// Validate checks the provided fields against the field limits.
func (in UpdateInput) Validate() error {
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	return validateDescription(in.Description)
}

// Apply returns t with the provided fields changed.
func (in UpdateInput) Apply(t Task) Task {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	return t
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return Errorf(KindValidation, "title required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return Errorf(KindValidation, "title longer than %d characters", MaxTitleLen)
	}
	return nil
}

func validateDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > MaxDescriptionLen {
		return Errorf(KindValidation, "description longer than %d characters", MaxDescriptionLen)
	}
	return nil
}

// String returns a pointer to s, for building inputs.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building inputs.
func Bool(b bool) *bool { return &b }
