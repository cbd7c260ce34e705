package repository

import (
	"context"
	"errors"
	"time"

	"taskflow-backend/internal/task/domain"
)

// ErrNotFound is returned by single-field updates when the row does not exist
var ErrNotFound = errors.New("record not found")

// TaskFilter narrows task listings. Zero values mean "no filter".
type TaskFilter struct {
	WorkID           string
	Status           *domain.TaskStatus
	DueBefore        *time.Time
	DueAfter         *time.Time
	ExcludeCompleted bool
	HasRemote        bool
	// Query is a fuzzy title search applied after the store query
	Query string
}

// WorkRepository defines the interface for work data access
type WorkRepository interface {
	// Create creates a work item together with any attached tasks
	Create(ctx context.Context, work *domain.Work) error

	// FindByID finds a work item, optionally loading its tasks in schedule order
	FindByID(ctx context.Context, id string, withTasks bool) (*domain.Work, error)

	// List returns work items, newest first
	List(ctx context.Context, status *domain.WorkStatus) ([]*domain.Work, error)

	// UpdateStatus sets the work status
	UpdateStatus(ctx context.Context, id string, status domain.WorkStatus) error

	// MarkCompleted completes the work unless it already is; false means nothing changed
	MarkCompleted(ctx context.Context, id string) (bool, error)

	// Delete deletes a work item and its tasks
	Delete(ctx context.Context, id string) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *domain.Task) error

	// FindByID finds a task by its ID
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// FindByRemoteID finds a task by its mirror ID
	FindByRemoteID(ctx context.Context, remoteID string) (*domain.Task, error)

	// List returns tasks ordered by due date (nulls first), then creation order
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Update saves every field of an existing task
	Update(ctx context.Context, task *domain.Task) error

	// UpdateStatus sets the task status
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error

	// UpdateDueDate sets or clears the due date
	UpdateDueDate(ctx context.Context, id string, due *time.Time) error

	// UpdateRemoteID sets or clears the mirror ID
	UpdateRemoteID(ctx context.Context, id string, remoteID *string) error

	// ClaimRemoteID stores remoteID only while the mirror ID still equals expected
	// (nil or empty: no mirror). False means another writer got there first.
	ClaimRemoteID(ctx context.Context, id string, expected *string, remoteID string) (bool, error)

	// MarkCompleted completes the task unless it already is; false means nothing changed
	MarkCompleted(ctx context.Context, id string) (bool, error)

	// IncrementSnooze atomically bumps the snooze counter
	IncrementSnooze(ctx context.Context, id string) error

	// Delete deletes a task by ID
	Delete(ctx context.Context, id string) error
}
