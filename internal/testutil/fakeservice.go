// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"tasklink/internal/service"
)

// Page size limits mirrored from the task-storage service.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// FakeService is an in-memory implementation of service.Service for testing.
// It behaves like the task-storage service: ids and timestamps are assigned
// on create, listings are newest first, and tasks of other owners are
// invisible.
type FakeService struct {
	mu     sync.Mutex
	tasks  map[string][]service.Task // ownerID -> tasks, oldest first
	nextID int
	clock  time.Time

	// ListHook, if set, is called at the start of List with the options.
	// Tests use it to hold a response back.
	ListHook func(ctx context.Context, opts service.ListOptions)

	// ListCalls records the options of every List call.
	ListCalls []service.ListOptions

	// Error injection for testing
	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	ToggleErr error
	DeleteErr error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tasks: make(map[string][]service.Task),
		clock: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}
}

// AddTask adds a task directly, bypassing validation, and returns it.
func (f *FakeService) AddTask(ownerID, title string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.newTask(ownerID, title, nil)
	t.Completed = completed
	f.tasks[ownerID] = append(f.tasks[ownerID], t)
	return t
}

// Tasks returns a copy of the owner's stored tasks, oldest first.
func (f *FakeService) Tasks(ownerID string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks[ownerID]))
	copy(out, f.tasks[ownerID])
	return out
}

func (f *FakeService) newTask(ownerID, title string, desc *string) service.Task {
	f.nextID++
	f.clock = f.clock.Add(time.Minute)
	return service.Task{
		ID:          strconv.Itoa(f.nextID),
		OwnerID:     ownerID,
		Title:       title,
		Description: desc,
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
}

// List implements service.Service.
func (f *FakeService) List(ctx context.Context, ownerID string, opts service.ListOptions) (service.ListResult, error) {
	f.mu.Lock()
	f.ListCalls = append(f.ListCalls, opts)
	hook := f.ListHook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, opts)
	}
	if f.ListErr != nil {
		return service.ListResult{}, f.ListErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored := f.tasks[ownerID]
	var matched []service.Task
	for i := len(stored) - 1; i >= 0; i-- {
		if opts.Filter.Matches(stored[i]) {
			matched = append(matched, stored[i])
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]service.Task, end-start)
	copy(page, matched[start:end])
	return service.ListResult{
		Tasks:  page,
		Total:  len(matched),
		Offset: opts.Offset,
		Limit:  limit,
	}, nil
}

// Get implements service.Service.
func (f *FakeService) Get(ctx context.Context, ownerID, taskID string) (service.Task, error) {
	if f.GetErr != nil {
		return service.Task{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(ownerID, taskID)
	if i < 0 {
		return service.Task{}, notFound(taskID)
	}
	return f.tasks[ownerID][i], nil
}

// Create implements service.Service.
func (f *FakeService) Create(ctx context.Context, ownerID string, in service.CreateInput) (service.Task, error) {
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.newTask(ownerID, in.Title, in.Description)
	f.tasks[ownerID] = append(f.tasks[ownerID], t)
	return t, nil
}

// Update implements service.Service.
func (f *FakeService) Update(ctx context.Context, ownerID, taskID string, in service.UpdateInput) (service.Task, error) {
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(ownerID, taskID)
	if i < 0 {
		return service.Task{}, notFound(taskID)
	}
	t := in.Apply(f.tasks[ownerID][i])
	f.clock = f.clock.Add(time.Minute)
	t.UpdatedAt = f.clock
	f.tasks[ownerID][i] = t
	return t, nil
}

// Toggle implements service.Service.
func (f *FakeService) Toggle(ctx context.Context, ownerID, taskID string) (service.Task, error) {
	if f.ToggleErr != nil {
		return service.Task{}, f.ToggleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(ownerID, taskID)
	if i < 0 {
		return service.Task{}, notFound(taskID)
	}
	t := f.tasks[ownerID][i]
	t.Completed = !t.Completed
	f.clock = f.clock.Add(time.Minute)
	t.UpdatedAt = f.clock
	f.tasks[ownerID][i] = t
	return t, nil
}

// Delete implements service.Service.
func (f *FakeService) Delete(ctx context.Context, ownerID, taskID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(ownerID, taskID)
	if i < 0 {
		return notFound(taskID)
	}
	tasks := f.tasks[ownerID]
	f.tasks[ownerID] = append(tasks[:i], tasks[i+1:]...)
	return nil
}

func (f *FakeService) find(ownerID, taskID string) int {
	for i, t := range f.tasks[ownerID] {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func notFound(taskID string) error {
	return &service.Error{Kind: service.KindNotFound, Status: 404, Message: "Task " + taskID + " not found"}
}
