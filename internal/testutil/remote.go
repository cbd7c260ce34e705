package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskflow-backend/internal/task/domain"
)

// Remote op names used by FakeRemote counters and failure scripts
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpGet    = "get"
	OpList   = "list"
)

// UpdateCall records one Update invocation
type UpdateCall struct {
	ID     string
	Update domain.RemoteUpdate
}

// FakeRemote is an in-memory task list with call counters and scripted failures
type FakeRemote struct {
	mu       sync.Mutex
	tasks    map[string]*domain.RemoteTask
	nextID   int
	calls    map[string]int
	queued   map[string][]error
	sticky   map[string]error
	updates  []UpdateCall
	DateOnly bool // mimic a provider that drops the time of day
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		tasks:  make(map[string]*domain.RemoteTask),
		calls:  make(map[string]int),
		queued: make(map[string][]error),
		sticky: make(map[string]error),
	}
}

// FailNext queues errors returned by the next calls to op, in order
func (f *FakeRemote) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[op] = append(f.queued[op], errs...)
}

// FailAlways makes every call to op fail until cleared with a nil error
func (f *FakeRemote) FailAlways(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.sticky, op)
		return
	}
	f.sticky[op] = err
}

// Calls returns how many times op was invoked
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Updates returns every recorded Update call
func (f *FakeRemote) Updates() []UpdateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UpdateCall(nil), f.updates...)
}

// Put stores or replaces a remote entry directly
func (f *FakeRemote) Put(task domain.RemoteTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := task
	f.tasks[task.ID] = &copied
}

// Entry returns a copy of the stored entry, or nil
func (f *FakeRemote) Entry(id string) *domain.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		copied := *t
		return &copied
	}
	return nil
}

// Remove deletes an entry behind the caller's back
func (f *FakeRemote) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
}

// Len returns the number of stored entries
func (f *FakeRemote) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// begin counts the call and returns a scripted failure; callers hold f.mu
func (f *FakeRemote) begin(op string) error {
	f.calls[op]++
	if q := f.queued[op]; len(q) > 0 {
		f.queued[op] = q[1:]
		if q[0] != nil {
			return q[0]
		}
	}
	return f.sticky[op]
}

func (f *FakeRemote) Create(ctx context.Context, title, notes string, due time.Time, status domain.TaskStatus) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreate); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	due = due.UTC()
	if f.DateOnly {
		due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	}
	f.tasks[id] = &domain.RemoteTask{
		ID:          id,
		Title:       title,
		Notes:       notes,
		Status:      status.RemoteStatus(),
		Due:         &due,
		DueDateOnly: f.DateOnly,
	}
	return id, nil
}

func (f *FakeRemote) Update(ctx context.Context, id string, update domain.RemoteUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, UpdateCall{ID: id, Update: update})
	if err := f.begin(OpUpdate); err != nil {
		return err
	}
	task, ok := f.tasks[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, domain.ErrRemoteNotFound)
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Notes != nil {
		task.Notes = *update.Notes
	}
	if update.Due != nil {
		due := update.Due.UTC()
		task.Due = &due
	}
	if update.Status != nil {
		task.Status = update.Status.RemoteStatus()
	}
	return nil
}

func (f *FakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpDelete); err != nil {
		return err
	}
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, domain.ErrRemoteNotFound)
	}
	delete(f.tasks, id)
	return nil
}

func (f *FakeRemote) Get(ctx context.Context, id string) (*domain.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpGet); err != nil {
		return nil, err
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, domain.ErrRemoteNotFound)
	}
	copied := *task
	return &copied, nil
}

func (f *FakeRemote) List(ctx context.Context, showCompleted bool) ([]*domain.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpList); err != nil {
		return nil, err
	}
	var out []*domain.RemoteTask
	for _, t := range f.tasks {
		if !showCompleted && t.IsCompleted() {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}
