package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
)

// ConflictTolerance is how far apart two due dates may be and still count as equal
const ConflictTolerance = 60 * time.Second

// BulkResult maps task id to the outcome of its update; nil means applied
type BulkResult map[string]error

// Succeeded lists the ids whose update applied locally, sorted
func (r BulkResult) Succeeded() []string {
	var ids []string
	for id, err := range r {
		if err == nil || IsStale(err) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Failed returns the entries that did not apply at all
func (r BulkResult) Failed() map[string]error {
	failed := make(map[string]error)
	for id, err := range r {
		if err != nil && !IsStale(err) {
			failed[id] = err
		}
	}
	return failed
}

type dueDateManager struct {
	workRepo repository.WorkRepository
	taskRepo repository.TaskRepository
	engine   SchedulingEngine
	notifier notification.Notifier
	policy   AdvisoryPolicy
	now      func() time.Time
}

// NewDueDateManager creates a manager that mirrors changes through engine
func NewDueDateManager(
	workRepo repository.WorkRepository,
	taskRepo repository.TaskRepository,
	engine SchedulingEngine,
	notifier notification.Notifier,
	policy AdvisoryPolicy,
) DueDateManager {
	return &dueDateManager{
		workRepo: workRepo,
		taskRepo: taskRepo,
		engine:   engine,
		notifier: notification.Safe(notifier),
		policy:   policy,
		now:      time.Now,
	}
}

func (m *dueDateManager) SetDueDate(ctx context.Context, taskID string, due time.Time, source domain.DueSource) error {
	task, err := m.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	log.Printf("[DueDates] Setting due date for task %s to %s (source: %s)", taskID, due.UTC().Format(time.RFC3339), source)

	if source == domain.SourceSync {
		// Value came from the mirror; pushing it back would be a no-op round trip
		utc := due.UTC()
		return m.taskRepo.UpdateDueDate(ctx, taskID, &utc)
	}

	_, err = m.engine.Reschedule(ctx, taskID, due)
	return err
}

func (m *dueDateManager) Snooze(ctx context.Context, taskID string, days int) (*domain.Task, error) {
	if days <= 0 {
		days = 1
	}
	task, err := m.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	base := m.now().UTC()
	if task.DueDate != nil {
		base = *task.DueDate
	}
	newDue := base.AddDate(0, 0, days)
	log.Printf("[DueDates] Snoozing task %s by %d day(s) to %s", taskID, days, newDue.Format(time.RFC3339))

	setErr := m.SetDueDate(ctx, taskID, newDue, domain.SourceSnooze)
	if setErr != nil && !IsStale(setErr) {
		return nil, setErr
	}

	// Counted even when the mirror is stale: the snooze is a local intent
	updated, err := m.RecordSnooze(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return updated, setErr
}

func (m *dueDateManager) RecordSnooze(ctx context.Context, taskID string) (*domain.Task, error) {
	if err := m.taskRepo.IncrementSnooze(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, err
	}

	task, err := m.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if m.shouldAdvise(task.SnoozeCount) {
		work, err := m.workRepo.FindByID(ctx, task.WorkID, false)
		if err != nil {
			log.Printf("[DueDates] Failed to load work %s for advisory: %v", task.WorkID, err)
		}
		log.Printf("[DueDates] Task %s snoozed %d times, sending advisory", task.ID, task.SnoozeCount)
		m.notifier.SnoozeAdvisory(ctx, work, task)
	}
	return task, nil
}

func (m *dueDateManager) shouldAdvise(count int) bool {
	if m.policy == AdvisoryOnCrossing {
		return count == SnoozeAdvisoryThreshold
	}
	return count >= SnoozeAdvisoryThreshold
}

func (m *dueDateManager) Normalize(due time.Time) time.Time {
	now := m.now()
	if due.Before(now.Add(-24 * time.Hour)) {
		log.Printf("[DueDates] Due date %s is in the past, adjusting to tomorrow", due.Format(time.RFC3339))
		return now.Add(24 * time.Hour)
	}
	return due
}

func (m *dueDateManager) ResolveConflict(local, remote *time.Time, source domain.DueSource) *time.Time {
	return resolveConflict(local, remote, source)
}

func resolveConflict(local, remote *time.Time, source domain.DueSource) *time.Time {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}

	diff := local.Sub(*remote)
	if diff < 0 {
		diff = -diff
	}
	if diff < ConflictTolerance {
		return local
	}
	if source == domain.SourceSync {
		return remote
	}
	return local
}

func (m *dueDateManager) BulkSet(ctx context.Context, dues map[string]time.Time) BulkResult {
	return m.applyAll(ctx, dues, domain.SourceBulk)
}

func (m *dueDateManager) applyAll(ctx context.Context, dues map[string]time.Time, source domain.DueSource) BulkResult {
	ids := make([]string, 0, len(dues))
	for id := range dues {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make(BulkResult, len(dues))
	for _, id := range ids {
		result[id] = m.SetDueDate(ctx, id, dues[id], source)
	}
	if failed := result.Failed(); len(failed) > 0 {
		log.Printf("[DueDates] %s update: %d of %d failed", source, len(failed), len(dues))
	}
	return result
}

func (m *dueDateManager) AutoAssign(ctx context.Context, workID string, start *time.Time, spacingDays int) (BulkResult, error) {
	work, err := m.workRepo.FindByID(ctx, workID, false)
	if err != nil {
		return nil, err
	}
	if work == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkNotFound, workID)
	}
	if spacingDays <= 0 {
		spacingDays = 1
	}

	open, err := m.taskRepo.List(ctx, repository.TaskFilter{WorkID: workID, ExcludeCompleted: true})
	if err != nil {
		return nil, err
	}

	current := domain.DefaultDueDate(m.now())
	if start != nil {
		current = start.UTC()
	}

	result := make(BulkResult)
	for _, task := range open {
		if task.DueDate != nil {
			continue
		}
		log.Printf("[DueDates] Auto-assigning due date %s to task %s", current.Format(time.RFC3339), task.ID)
		result[task.ID] = m.SetDueDate(ctx, task.ID, current, domain.SourceAuto)
		current = current.AddDate(0, 0, spacingDays)
	}
	return result, nil
}

func (m *dueDateManager) ConfirmSchedule(ctx context.Context, workID string, dues map[string]time.Time) (BulkResult, error) {
	work, err := m.workRepo.FindByID(ctx, workID, true)
	if err != nil {
		return nil, err
	}
	if work == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkNotFound, workID)
	}

	owned := make(map[string]bool, len(work.Tasks))
	for _, t := range work.Tasks {
		owned[t.ID] = true
	}

	accepted := make(map[string]time.Time, len(dues))
	result := make(BulkResult)
	for id, due := range dues {
		if !owned[id] {
			result[id] = fmt.Errorf("%w: task %s does not belong to work %s", ErrInvalidInput, id, workID)
			continue
		}
		accepted[id] = m.Normalize(due)
	}
	for id, err := range m.applyAll(ctx, accepted, domain.SourceUserConfirmed) {
		result[id] = err
	}
	return result, nil
}
