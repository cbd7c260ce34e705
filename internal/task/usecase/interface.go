package usecase

import (
	"context"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
)

// RemoteTaskProvider mirrors tasks onto an external task list
type RemoteTaskProvider interface {
	Create(ctx context.Context, title, notes string, due time.Time, status domain.TaskStatus) (string, error)
	Update(ctx context.Context, id string, update domain.RemoteUpdate) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.RemoteTask, error)
	List(ctx context.Context, showCompleted bool) ([]*domain.RemoteTask, error)
}

// SchedulingEngine keeps tasks and their remote mirrors consistent
type SchedulingEngine interface {
	// EnsureScheduled creates a mirror unless a live one already exists
	EnsureScheduled(ctx context.Context, taskID string) (*domain.Task, error)

	// ScheduleQuietly is EnsureScheduled without the TaskScheduled notification
	ScheduleQuietly(ctx context.Context, taskID string) (*domain.Task, error)

	// Reschedule pushes a new due date to the mirror, then stores it locally
	Reschedule(ctx context.Context, taskID string, due time.Time) (*domain.Task, error)

	// Complete finishes a task and advances its work to the next one
	Complete(ctx context.Context, taskID string) (*CompletionResult, error)

	// SyncFromRemote pulls completion and due-date drift from the mirror
	SyncFromRemote(ctx context.Context, taskID string) (*SyncResult, error)

	// DeleteMirror removes the remote entry and forgets its id
	DeleteMirror(ctx context.Context, taskID string) error

	// SetDueDateManager wires the manager used for drift handling
	SetDueDateManager(dm DueDateManager)
}

// DueDateManager owns every due-date change
type DueDateManager interface {
	SetDueDate(ctx context.Context, taskID string, due time.Time, source domain.DueSource) error
	Snooze(ctx context.Context, taskID string, days int) (*domain.Task, error)
	// RecordSnooze bumps the snooze counter and fires the advisory when due
	RecordSnooze(ctx context.Context, taskID string) (*domain.Task, error)
	Normalize(due time.Time) time.Time
	ResolveConflict(local, remote *time.Time, source domain.DueSource) *time.Time
	BulkSet(ctx context.Context, dues map[string]time.Time) BulkResult
	AutoAssign(ctx context.Context, workID string, start *time.Time, spacingDays int) (BulkResult, error)
	ConfirmSchedule(ctx context.Context, workID string, dues map[string]time.Time) (BulkResult, error)
}

// WorkUsecase is the entry point for work and task lifecycle operations
type WorkUsecase interface {
	CreateWork(ctx context.Context, input CreateWorkInput) (*domain.Work, error)
	CreateTask(ctx context.Context, workID string, input CreateTaskInput) (*domain.Task, error)
	GetWork(ctx context.Context, workID string) (*domain.Work, error)
	ListWorks(ctx context.Context, status *string) ([]*domain.Work, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) (*domain.Task, error)
	UpdateWorkStatus(ctx context.Context, workID, status string) (*domain.Work, error)
	PublishWork(ctx context.Context, workID string, scheduleFirst bool) (*PublishResult, error)
	DeleteTask(ctx context.Context, taskID string) error
	DeleteWork(ctx context.Context, workID string) error
}

// CreateTaskInput describes a task to attach to a work
type CreateTaskInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// CreateWorkInput describes a work and its initial tasks
type CreateWorkInput struct {
	Title          string            `json:"title" binding:"required"`
	Description    string            `json:"description,omitempty"`
	CompletionHint *string           `json:"completion_hint,omitempty"`
	Tasks          []CreateTaskInput `json:"tasks,omitempty"`
	AutoDueDates   bool              `json:"auto_due_dates,omitempty"`
}

// CompletionResult reports what a Complete call changed
type CompletionResult struct {
	Task          *domain.Task `json:"task"`
	Next          *domain.Task `json:"next,omitempty"`
	WorkCompleted bool         `json:"work_completed"`
	// AlreadyCompleted is set when the task was done before the call
	AlreadyCompleted bool `json:"already_completed"`
}

// SyncResult reports drift pulled from a mirror
type SyncResult struct {
	Task          *domain.Task      `json:"task"`
	Completion    *CompletionResult `json:"completion,omitempty"`
	DueChanged    bool              `json:"due_changed"`
	Snoozed       bool              `json:"snoozed"`
	MirrorMissing bool              `json:"mirror_missing"`
	Changes       []string          `json:"changes,omitempty"`
}

// PublishResult reports the outcome of publishing a work
type PublishResult struct {
	Work  *domain.Work `json:"work"`
	First *domain.Task `json:"first,omitempty"`
}

// AdvisoryPolicy decides which snoozes past the threshold trigger an advisory
type AdvisoryPolicy int

const (
	// AdvisoryEverySnooze nags on every snooze at or above the threshold
	AdvisoryEverySnooze AdvisoryPolicy = iota
	// AdvisoryOnCrossing fires only on the snooze that reaches the threshold
	AdvisoryOnCrossing
)

// SnoozeAdvisoryThreshold is the snooze count that starts advisories
const SnoozeAdvisoryThreshold = 3

// ParseAdvisoryPolicy reads "every" or "crossing"; anything else is AdvisoryEverySnooze
func ParseAdvisoryPolicy(value string) AdvisoryPolicy {
	if value == "crossing" {
		return AdvisoryOnCrossing
	}
	return AdvisoryEverySnooze
}
