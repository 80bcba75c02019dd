// Package viewmodel keeps the signed-in user's local task collection in step
// with the task-storage service.
//
// Only the initial Load and filter changes issue a List call. Mutations
// patch the local collection from the entity the server returns, and leave
// it untouched on failure. Listing responses are applied in completion
// order behind a request sequence number, so a response to a superseded
// request never overwrites newer state.
package viewmodel

import (
	"context"
	"log/slog"
	"sync"

	"tasklink/internal/service"
)

// DefaultPageSize is the limit sent with every List call.
const DefaultPageSize = 100

// State is the phase of the current load cycle.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Snapshot is a read-only copy of the view-model state.
type Snapshot struct {
	State  State
	Filter service.Filter
	Tasks  []service.Task
	// Total is the server's count for the active filter.
	Total int
	// Err is a human-readable message when State is Failed.
	Err string
	// PendingCount and CompletedCount are computed from Tasks only, that
	// is the currently loaded page, not the server's totals.
	PendingCount   int
	CompletedCount int
}

// TaskList is the view-model for one owner's task list. Mutating calls are
// expected from a single control flow; Snapshot may be called from anywhere.
type TaskList struct {
	svc      service.Service
	ownerID  string
	pageSize int
	page     int
	logger   *slog.Logger

	mu     sync.Mutex
	filter service.Filter
	state  State
	tasks  []service.Task
	total  int
	errMsg string
	seq    uint64
}

// Option configures a TaskList.
type Option func(*TaskList)

// WithPageSize sets the limit sent with List calls.
func WithPageSize(n int) Option {
	return func(m *TaskList) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithPage selects the 1-based page of results to load.
func WithPage(page int) Option {
	return func(m *TaskList) {
		if page > 1 {
			m.page = page - 1
		}
	}
}

// WithFilter sets the initial filter.
func WithFilter(f service.Filter) Option {
	return func(m *TaskList) { m.filter = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *TaskList) { m.logger = l }
}

// New creates a view-model for ownerID backed by svc.
func New(svc service.Service, ownerID string, opts ...Option) *TaskList {
	m := &TaskList{
		svc:      svc,
		ownerID:  ownerID,
		pageSize: DefaultPageSize,
		filter:   service.FilterAll,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Load lists tasks under the current filter. It is the initial mount.
func (m *TaskList) Load(ctx context.Context) error {
	m.mu.Lock()
	f := m.filter
	m.mu.Unlock()
	return m.SetFilter(ctx, f)
}

// SetFilter makes f the active filter and issues exactly one List call for
// it. If another SetFilter starts before this one's response arrives, the
// response is discarded and nil is returned.
func (m *TaskList) SetFilter(ctx context.Context, f service.Filter) error {
	m.mu.Lock()
	m.filter = f
	m.seq++
	seq := m.seq
	m.state = Loading
	m.errMsg = ""
	m.mu.Unlock()

	res, err := m.svc.List(ctx, m.ownerID, service.ListOptions{
		Filter: f,
		Offset: m.page * m.pageSize,
		Limit:  m.pageSize,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		m.logger.Debug("Discarding stale task listing",
			slog.String("filter", string(f)), slog.Uint64("seq", seq), slog.Uint64("current", m.seq))
		return nil
	}
	if err != nil {
		m.state = Failed
		m.errMsg = failureMessage(err)
		m.tasks = nil
		m.total = 0
		return err
	}
	m.state = Loaded
	m.tasks = m.owned(res.Tasks)
	m.total = res.Total
	return nil
}

// CreateTask creates a task and, once the server confirms it, puts it at
// the front of the collection.
func (m *TaskList) CreateTask(ctx context.Context, in service.CreateInput) (service.Task, error) {
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	t, err := m.svc.Create(ctx, m.ownerID, in)
	if err != nil {
		return service.Task{}, err
	}
	if err := m.checkOwner(t); err != nil {
		return service.Task{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]service.Task, 0, len(m.tasks)+1)
	tasks = append(tasks, t)
	m.tasks = append(tasks, m.tasks...)
	m.total++
	return t, nil
}

// UpdateTask applies a partial update and replaces the local entry.
func (m *TaskList) UpdateTask(ctx context.Context, id string, patch service.UpdateInput) (service.Task, error) {
	if err := patch.Validate(); err != nil {
		return service.Task{}, err
	}
	t, err := m.svc.Update(ctx, m.ownerID, id, patch)
	if err != nil {
		return service.Task{}, err
	}
	return t, m.replace(t)
}

// ToggleTask flips a task's completed flag and replaces the local entry.
func (m *TaskList) ToggleTask(ctx context.Context, id string) (service.Task, error) {
	t, err := m.svc.Toggle(ctx, m.ownerID, id)
	if err != nil {
		return service.Task{}, err
	}
	return t, m.replace(t)
}

// DeleteTask deletes a task and removes it from the collection.
func (m *TaskList) DeleteTask(ctx context.Context, id string) error {
	if err := m.svc.Delete(ctx, m.ownerID, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
			if m.total > 0 {
				m.total--
			}
			break
		}
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (m *TaskList) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		State:  m.state,
		Filter: m.filter,
		Tasks:  make([]service.Task, len(m.tasks)),
		Total:  m.total,
		Err:    m.errMsg,
	}
	copy(s.Tasks, m.tasks)
	for _, t := range s.Tasks {
		if t.Completed {
			s.CompletedCount++
		} else {
			s.PendingCount++
		}
	}
	return s
}

// OwnerID returns the owner the view-model lists tasks for.
func (m *TaskList) OwnerID() string { return m.ownerID }

func (m *TaskList) replace(t service.Task) error {
	if err := m.checkOwner(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			return nil
		}
	}
	return nil
}

func (m *TaskList) checkOwner(t service.Task) error {
	if t.OwnerID == "" || t.OwnerID != m.ownerID {
		return service.Errorf(service.KindRequestFailed, "task %s belongs to another user", t.ID)
	}
	return nil
}

// owned drops any task that does not belong to the owner, including tasks
// with no owner at all.
func (m *TaskList) owned(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.OwnerID == "" || t.OwnerID != m.ownerID {
			continue
		}
		out = append(out, t)
	}
	return out
}

func failureMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "failed to fetch tasks"
}
