package viewmodel

import (
	"context"
	"fmt"

	"tasklink/internal/service"
)

// Intent is a user action dispatched from the presentation layer.
type Intent interface {
	intent()
}

// ChangeFilter selects a different filter.
type ChangeFilter struct{ Filter service.Filter }

// Reload re-lists under the current filter.
type Reload struct{}

// Create adds a task.
type Create struct{ Input service.CreateInput }

// Update edits a task.
type Update struct {
	ID    string
	Patch service.UpdateInput
}

// Toggle flips a task's completed flag.
type Toggle struct{ ID string }

// Delete removes a task.
type Delete struct{ ID string }

func (ChangeFilter) intent() {}
func (Reload) intent()       {}
func (Create) intent()       {}
func (Update) intent()       {}
func (Toggle) intent()       {}
func (Delete) intent()       {}

// Dispatch runs the intent and returns the resulting snapshot. A failed
// mutation returns its error alongside the unchanged snapshot.
func (m *TaskList) Dispatch(ctx context.Context, in Intent) (Snapshot, error) {
	var err error
	switch in := in.(type) {
	case ChangeFilter:
		err = m.SetFilter(ctx, in.Filter)
	case Reload:
		err = m.Load(ctx)
	case Create:
		_, err = m.CreateTask(ctx, in.Input)
	case Update:
		_, err = m.UpdateTask(ctx, in.ID, in.Patch)
	case Toggle:
		_, err = m.ToggleTask(ctx, in.ID)
	case Delete:
		err = m.DeleteTask(ctx, in.ID)
	default:
		err = fmt.Errorf("unknown intent %T", in)
	}
	return m.Snapshot(), err
}
