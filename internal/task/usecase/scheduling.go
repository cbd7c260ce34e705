package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
)

type schedulingEngine struct {
	workRepo repository.WorkRepository
	taskRepo repository.TaskRepository
	remote   RemoteTaskProvider
	notifier notification.Notifier
	dueDates DueDateManager
	now      func() time.Time
}

// NewSchedulingEngine creates the engine. The notifier is wrapped so delivery errors are only logged.
func NewSchedulingEngine(
	workRepo repository.WorkRepository,
	taskRepo repository.TaskRepository,
	remote RemoteTaskProvider,
	notifier notification.Notifier,
) SchedulingEngine {
	return &schedulingEngine{
		workRepo: workRepo,
		taskRepo: taskRepo,
		remote:   remote,
		notifier: notification.Safe(notifier),
		now:      time.Now,
	}
}

func (e *schedulingEngine) SetDueDateManager(dm DueDateManager) {
	e.dueDates = dm
}

func (e *schedulingEngine) loadTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := e.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

// loadWork returns nil when the lookup fails; callers only need it for context
func (e *schedulingEngine) loadWork(ctx context.Context, workID string) *domain.Work {
	work, err := e.workRepo.FindByID(ctx, workID, false)
	if err != nil {
		log.Printf("[Scheduling] Failed to load work %s: %v", workID, err)
		return nil
	}
	return work
}

func (e *schedulingEngine) EnsureScheduled(ctx context.Context, taskID string) (*domain.Task, error) {
	return e.ensureScheduled(ctx, taskID, true)
}

func (e *schedulingEngine) ScheduleQuietly(ctx context.Context, taskID string) (*domain.Task, error) {
	return e.ensureScheduled(ctx, taskID, false)
}

func (e *schedulingEngine) ensureScheduled(ctx context.Context, taskID string, notify bool) (*domain.Task, error) {
	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	previous := task.RemoteID
	if task.HasMirror() {
		_, err := e.remote.Get(ctx, task.MirrorID())
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, domain.ErrRemoteNotFound) {
			// Unknown state: creating now could duplicate the entry
			return nil, fmt.Errorf("verify mirror for task %s: %w", taskID, err)
		}
		log.Printf("[Scheduling] Mirror %s for task %s no longer exists, recreating", task.MirrorID(), taskID)
	}

	work := e.loadWork(ctx, task.WorkID)
	notes := ""
	if work != nil {
		notes = "Work: " + work.Title
	}

	if task.DueDate == nil {
		due := domain.DefaultDueDate(e.now())
		if err := e.taskRepo.UpdateDueDate(ctx, task.ID, &due); err != nil {
			return nil, err
		}
		task.DueDate = &due
		log.Printf("[Scheduling] Task %s had no due date, defaulted to %s", task.ID, due.Format(time.RFC3339))
	}

	remoteID, err := e.remote.Create(ctx, task.Title, notes, *task.DueDate, task.Status)
	if err != nil {
		log.Printf("[Scheduling] Failed to create mirror for task %s: %v", task.ID, err)
		return nil, fmt.Errorf("schedule task %s: %w", task.ID, err)
	}

	claimed, err := e.taskRepo.ClaimRemoteID(ctx, task.ID, previous, remoteID)
	if err != nil {
		log.Printf("[Scheduling] Created mirror %s but failed to store it on task %s: %v", remoteID, task.ID, err)
		return nil, err
	}
	if !claimed {
		// A concurrent call stored its mirror first; ours would be orphaned
		log.Printf("[Scheduling] Task %s was mirrored concurrently, dropping duplicate %s", task.ID, remoteID)
		if err := e.remote.Delete(ctx, remoteID); err != nil && !errors.Is(err, domain.ErrRemoteNotFound) {
			log.Printf("[Scheduling] Failed to delete duplicate mirror %s: %v", remoteID, err)
		}
		return e.loadTask(ctx, task.ID)
	}
	task.RemoteID = &remoteID
	log.Printf("[Scheduling] Task %s mirrored as %s", task.ID, remoteID)

	if notify {
		e.notifier.TaskScheduled(ctx, work, task)
	}
	return task, nil
}

func (e *schedulingEngine) Reschedule(ctx context.Context, taskID string, due time.Time) (*domain.Task, error) {
	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	due = due.UTC()

	var stale []error
	if task.HasMirror() {
		if err := e.remote.Update(ctx, task.MirrorID(), domain.RemoteUpdate{Due: &due}); err != nil {
			log.Printf("[Scheduling] Failed to push due date for task %s: %v", task.ID, err)
			stale = append(stale, err)
		}
	}

	// The local value is what the user sees, so it is written even when the mirror lags
	if err := e.taskRepo.UpdateDueDate(ctx, task.ID, &due); err != nil {
		return nil, err
	}
	task.DueDate = &due

	if task.HasMirror() {
		e.notifier.TaskRescheduled(ctx, e.loadWork(ctx, task.WorkID), task)
	}
	return task, staleOrNil(task.ID, "reschedule", stale)
}

func (e *schedulingEngine) Complete(ctx context.Context, taskID string) (*CompletionResult, error) {
	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Task: task}
	var stale []error

	if task.Status.IsCompleted() {
		result.AlreadyCompleted = true
		log.Printf("[Scheduling] Task %s already completed, converging work %s", task.ID, task.WorkID)
	} else {
		changed, err := e.taskRepo.MarkCompleted(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		task.Status = domain.TaskStatusCompleted
		if !changed {
			result.AlreadyCompleted = true
			log.Printf("[Scheduling] Task %s was completed concurrently, converging work %s", task.ID, task.WorkID)
		}
	}

	if !result.AlreadyCompleted {
		if task.HasMirror() {
			completed := domain.TaskStatusCompleted
			if err := e.remote.Update(ctx, task.MirrorID(), domain.RemoteUpdate{Status: &completed}); err != nil {
				log.Printf("[Scheduling] Failed to complete mirror for task %s: %v", task.ID, err)
				stale = append(stale, err)
			}
		}

		e.notifier.TaskCompleted(ctx, e.loadWork(ctx, task.WorkID), task)
	}

	next, err := e.nextTask(ctx, task.WorkID)
	if err != nil {
		return result, err
	}

	if next != nil {
		if err := e.advance(ctx, next); err != nil {
			return result, err
		}
		result.Next = next

		scheduled, err := e.EnsureScheduled(ctx, next.ID)
		if err != nil {
			log.Printf("[Scheduling] Next task %s is tracked but not mirrored: %v", next.ID, err)
			stale = append(stale, err)
		} else {
			result.Next = scheduled
		}
		return result, staleOrNil(task.ID, "complete", stale)
	}

	work, err := e.workRepo.FindByID(ctx, task.WorkID, false)
	if err != nil {
		return result, err
	}
	if work == nil {
		return result, fmt.Errorf("%w: %s", ErrWorkNotFound, task.WorkID)
	}

	switch {
	case work.Status == domain.WorkStatusCompleted:
		// Already finished by an earlier call
	case !domain.CanTransitionWork(work.Status, domain.WorkStatusCompleted):
		log.Printf("[Scheduling] Work %s is %s, not completing it automatically", work.ID, work.Status)
	default:
		changed, err := e.workRepo.MarkCompleted(ctx, work.ID)
		if err != nil {
			return result, err
		}
		work.Status = domain.WorkStatusCompleted
		if !changed {
			log.Printf("[Scheduling] Work %s was completed concurrently", work.ID)
			break
		}
		result.WorkCompleted = true

		count := 0
		if all, err := e.taskRepo.List(ctx, repository.TaskFilter{WorkID: work.ID}); err == nil {
			count = len(all)
		}
		log.Printf("[Scheduling] Work %s completed", work.ID)
		e.notifier.WorkCompleted(ctx, work, count)
	}

	return result, staleOrNil(task.ID, "complete", stale)
}

// nextTask re-reads the work's open tasks; the first in schedule order is next
func (e *schedulingEngine) nextTask(ctx context.Context, workID string) (*domain.Task, error) {
	open, err := e.taskRepo.List(ctx, repository.TaskFilter{WorkID: workID, ExcludeCompleted: true})
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	return open[0], nil
}

// advance moves a task to Tracked, passing through Published when it is still Pending
func (e *schedulingEngine) advance(ctx context.Context, task *domain.Task) error {
	if task.Status == domain.TaskStatusPending {
		if err := e.taskRepo.UpdateStatus(ctx, task.ID, domain.TaskStatusPublished); err != nil {
			return err
		}
		task.Status = domain.TaskStatusPublished
	}
	if task.Status == domain.TaskStatusTracked {
		return nil
	}
	if !domain.CanTransitionTask(task.Status, domain.TaskStatusTracked) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, domain.TaskStatusTracked)
	}
	if err := e.taskRepo.UpdateStatus(ctx, task.ID, domain.TaskStatusTracked); err != nil {
		return err
	}
	task.Status = domain.TaskStatusTracked
	return nil
}

func (e *schedulingEngine) SyncFromRemote(ctx context.Context, taskID string) (*SyncResult, error) {
	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Task: task}
	if !task.HasMirror() {
		return result, nil
	}

	mirror, err := e.remote.Get(ctx, task.MirrorID())
	if err != nil {
		if errors.Is(err, domain.ErrRemoteNotFound) {
			log.Printf("[Scheduling] Mirror %s for task %s is gone", task.MirrorID(), task.ID)
			result.MirrorMissing = true
			return result, nil
		}
		return nil, fmt.Errorf("sync task %s: %w", task.ID, err)
	}

	if mirror.IsCompleted() && !task.Status.IsCompleted() {
		completion, err := e.Complete(ctx, task.ID)
		if completion != nil {
			result.Completion = completion
			result.Task = completion.Task
			result.Changes = append(result.Changes, fmt.Sprintf("Task '%s' completed.", task.Title))
		}
		return result, err
	}

	if mirror.Due == nil || task.Status.IsCompleted() || e.dueDates == nil {
		return result, nil
	}

	remoteDue := projectRemoteDue(*mirror.Due, task.DueDate, mirror.DueDateOnly)
	resolved := e.dueDates.ResolveConflict(task.DueDate, &remoteDue, domain.SourceSync)
	if resolved == nil || (task.DueDate != nil && resolved.Equal(*task.DueDate)) {
		return result, nil
	}

	snoozed := task.DueDate != nil && resolved.After(*task.DueDate)
	if err := e.dueDates.SetDueDate(ctx, task.ID, *resolved, domain.SourceSync); err != nil {
		return nil, err
	}
	task.DueDate = resolved
	result.DueChanged = true

	if snoozed {
		updated, err := e.dueDates.RecordSnooze(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		result.Task = updated
		result.Snoozed = true
		result.Changes = append(result.Changes, fmt.Sprintf("Task '%s' snoozed to %s.", task.Title, resolved.Format("2006-01-02")))
	} else {
		result.Changes = append(result.Changes, fmt.Sprintf("Task '%s' due moved to %s.", task.Title, resolved.Format("2006-01-02")))
	}
	return result, nil
}

// projectRemoteDue keeps the local time of day when the provider only stores dates
func projectRemoteDue(remote time.Time, local *time.Time, dateOnly bool) time.Time {
	remote = remote.UTC()
	if !dateOnly {
		return remote
	}
	hour, minute, sec, nsec := 8, 0, 0, 0
	if local != nil {
		l := local.UTC()
		hour, minute, sec, nsec = l.Hour(), l.Minute(), l.Second(), l.Nanosecond()
	}
	return time.Date(remote.Year(), remote.Month(), remote.Day(), hour, minute, sec, nsec, time.UTC)
}

func (e *schedulingEngine) DeleteMirror(ctx context.Context, taskID string) error {
	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.HasMirror() {
		return nil
	}

	if err := e.remote.Delete(ctx, task.MirrorID()); err != nil {
		if !errors.Is(err, domain.ErrRemoteNotFound) {
			log.Printf("[Scheduling] Failed to delete mirror %s for task %s: %v", task.MirrorID(), task.ID, err)
			return fmt.Errorf("delete mirror for task %s: %w", task.ID, err)
		}
		log.Printf("[Scheduling] Mirror %s for task %s was already gone", task.MirrorID(), task.ID)
	}

	return e.taskRepo.UpdateRemoteID(ctx, task.ID, nil)
}
