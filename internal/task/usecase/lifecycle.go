package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/pkg/fuzzy"
)

type workUsecase struct {
	workRepo repository.WorkRepository
	taskRepo repository.TaskRepository
	engine   SchedulingEngine
	dueDates DueDateManager
	remote   RemoteTaskProvider
	notifier notification.Notifier
}

func NewWorkUsecase(
	workRepo repository.WorkRepository,
	taskRepo repository.TaskRepository,
	engine SchedulingEngine,
	dueDates DueDateManager,
	remote RemoteTaskProvider,
	notifier notification.Notifier,
) WorkUsecase {
	return &workUsecase{
		workRepo: workRepo,
		taskRepo: taskRepo,
		engine:   engine,
		dueDates: dueDates,
		remote:   remote,
		notifier: notification.Safe(notifier),
	}
}

func newTask(workID string, index int, input CreateTaskInput, status domain.TaskStatus) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	task := &domain.Task{
		WorkID:      workID,
		Title:       title,
		Description: input.Description,
		OrderIndex:  index,
		Priority:    domain.ParsePriority(input.Priority),
		Status:      status,
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		task.DueDate = &due
	}
	return task, nil
}

func (u *workUsecase) CreateWork(ctx context.Context, input CreateWorkInput) (*domain.Work, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: work title is required", ErrInvalidInput)
	}

	work := &domain.Work{
		Title:          title,
		Description:    input.Description,
		Status:         domain.WorkStatusDraft,
		CompletionHint: input.CompletionHint,
	}
	for i, in := range input.Tasks {
		task, err := newTask("", i, in, domain.TaskStatusPending)
		if err != nil {
			return nil, err
		}
		work.Tasks = append(work.Tasks, task)
	}

	if err := u.workRepo.Create(ctx, work); err != nil {
		return nil, err
	}
	log.Printf("[Scheduling] Created work %s with %d tasks", work.ID, len(work.Tasks))

	if input.AutoDueDates {
		result, err := u.dueDates.AutoAssign(ctx, work.ID, nil, 1)
		if err != nil {
			return nil, err
		}
		if failed := result.Failed(); len(failed) > 0 {
			log.Printf("[Scheduling] Auto due dates failed for %d tasks of work %s", len(failed), work.ID)
		}
	}

	return u.GetWork(ctx, work.ID)
}

func (u *workUsecase) CreateTask(ctx context.Context, workID string, input CreateTaskInput) (*domain.Task, error) {
	work, err := u.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if work.Status == domain.WorkStatusCompleted {
		return nil, fmt.Errorf("%w: work %s is completed", ErrInvalidTransition, workID)
	}

	status := domain.TaskStatusPending
	if work.Status == domain.WorkStatusPublished {
		status = domain.TaskStatusPublished
	}

	next := 0
	for _, t := range work.Tasks {
		if t.OrderIndex >= next {
			next = t.OrderIndex + 1
		}
	}

	task, err := newTask(workID, next, input, status)
	if err != nil {
		return nil, err
	}
	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *workUsecase) GetWork(ctx context.Context, workID string) (*domain.Work, error) {
	work, err := u.workRepo.FindByID(ctx, workID, true)
	if err != nil {
		return nil, err
	}
	if work == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkNotFound, workID)
	}
	return work, nil
}

func (u *workUsecase) ListWorks(ctx context.Context, status *string) ([]*domain.Work, error) {
	var filter *domain.WorkStatus
	if status != nil && *status != "" {
		s := domain.ParseWorkStatus(*status)
		filter = &s
	}
	return u.workRepo.List(ctx, filter)
}

func (u *workUsecase) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

func (u *workUsecase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*domain.Task, error) {
	tasks, err := u.taskRepo.List(ctx, filter)
	if err != nil || strings.TrimSpace(filter.Query) == "" {
		return tasks, err
	}

	// Keep schedule order among matches
	matched := make([]*domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if fuzzy.MatchTask(filter.Query, task.Title, task.Description) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

func (u *workUsecase) UpdateTaskStatus(ctx context.Context, taskID, status string) (*domain.Task, error) {
	task, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	target := domain.ParseTaskStatus(status)

	if !domain.CanTransitionTask(task.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, target)
	}

	switch {
	case target == domain.TaskStatusCompleted:
		// Completion always goes through the engine so the work advances
		result, err := u.engine.Complete(ctx, taskID)
		if result == nil {
			return nil, err
		}
		return result.Task, err

	case target == task.Status:
		return task, nil
	}

	reopening := task.Status == domain.TaskStatusCompleted
	if err := u.taskRepo.UpdateStatus(ctx, taskID, target); err != nil {
		return nil, err
	}
	task.Status = target

	if target == domain.TaskStatusTracked {
		scheduled, err := u.engine.EnsureScheduled(ctx, taskID)
		if err != nil {
			return task, &StaleMirrorError{TaskID: taskID, Op: "track", Err: err}
		}
		return scheduled, nil
	}

	if reopening {
		u.reopenWork(ctx, task.WorkID)
	}
	if reopening && task.HasMirror() {
		if err := u.remote.Update(ctx, task.MirrorID(), domain.RemoteUpdate{Status: &target}); err != nil {
			log.Printf("[Scheduling] Failed to reopen mirror for task %s: %v", taskID, err)
			return task, &StaleMirrorError{TaskID: taskID, Op: "reopen", Err: err}
		}
	}
	return task, nil
}

// reopenWork drops a completed work back to Draft once one of its tasks is open again
func (u *workUsecase) reopenWork(ctx context.Context, workID string) {
	work, err := u.workRepo.FindByID(ctx, workID, false)
	if err != nil || work == nil || work.Status != domain.WorkStatusCompleted {
		return
	}
	if err := u.workRepo.UpdateStatus(ctx, workID, domain.WorkStatusDraft); err != nil {
		log.Printf("[Scheduling] Failed to reopen work %s: %v", workID, err)
		return
	}
	log.Printf("[Scheduling] Work %s reopened as Draft", workID)
}

func (u *workUsecase) UpdateWorkStatus(ctx context.Context, workID, status string) (*domain.Work, error) {
	work, err := u.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	target := domain.ParseWorkStatus(status)

	if !domain.CanTransitionWork(work.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, work.Status, target)
	}
	if target == work.Status {
		return work, nil
	}
	if target == domain.WorkStatusCompleted {
		for _, t := range work.Tasks {
			if !t.Status.IsCompleted() {
				return nil, fmt.Errorf("%w: task %s is still %s", ErrInvalidTransition, t.ID, t.Status)
			}
		}
	}

	if err := u.workRepo.UpdateStatus(ctx, workID, target); err != nil {
		return nil, err
	}
	work.Status = target
	return work, nil
}

func (u *workUsecase) PublishWork(ctx context.Context, workID string, scheduleFirst bool) (*PublishResult, error) {
	work, err := u.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionWork(work.Status, domain.WorkStatusPublished) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, work.Status, domain.WorkStatusPublished)
	}

	var missing []string
	for _, t := range work.Tasks {
		if !t.Status.IsCompleted() && t.DueDate == nil {
			missing = append(missing, t.Title)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDueDates, strings.Join(missing, ", "))
	}

	if err := u.workRepo.UpdateStatus(ctx, workID, domain.WorkStatusPublished); err != nil {
		return nil, err
	}
	work.Status = domain.WorkStatusPublished

	var first *domain.Task
	for _, t := range work.Tasks {
		if t.Status == domain.TaskStatusPending {
			if err := u.taskRepo.UpdateStatus(ctx, t.ID, domain.TaskStatusPublished); err != nil {
				return nil, err
			}
			t.Status = domain.TaskStatusPublished
		}
		if first == nil && !t.Status.IsCompleted() {
			first = t
		}
	}

	result := &PublishResult{Work: work}
	var stale error
	if scheduleFirst && first != nil {
		if first.Status != domain.TaskStatusTracked {
			if err := u.taskRepo.UpdateStatus(ctx, first.ID, domain.TaskStatusTracked); err != nil {
				return nil, err
			}
			first.Status = domain.TaskStatusTracked
		}

		// The publish notification announces the first task, so scheduling stays quiet
		scheduled, err := u.engine.ScheduleQuietly(ctx, first.ID)
		if err != nil {
			log.Printf("[Scheduling] Published work %s but first task %s is not mirrored: %v", workID, first.ID, err)
			stale = &StaleMirrorError{TaskID: first.ID, Op: "publish", Err: err}
		} else {
			*first = *scheduled
		}
		result.First = first
	}

	u.notifier.WorkPublished(ctx, work, result.First)
	log.Printf("[Scheduling] Published work %s", workID)
	return result, stale
}

func (u *workUsecase) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := u.GetTask(ctx, taskID); err != nil {
		return err
	}
	if err := u.engine.DeleteMirror(ctx, taskID); err != nil {
		log.Printf("[Scheduling] Deleting task %s despite mirror error: %v", taskID, err)
	}
	return u.taskRepo.Delete(ctx, taskID)
}

func (u *workUsecase) DeleteWork(ctx context.Context, workID string) error {
	work, err := u.GetWork(ctx, workID)
	if err != nil {
		return err
	}
	for _, t := range work.Tasks {
		if !t.HasMirror() {
			continue
		}
		if err := u.engine.DeleteMirror(ctx, t.ID); err != nil {
			log.Printf("[Scheduling] Deleting work %s despite mirror error on task %s: %v", workID, t.ID, err)
		}
	}
	return u.workRepo.Delete(ctx, workID)
}

// Services bundles the wired usecases
type Services struct {
	Engine   SchedulingEngine
	DueDates DueDateManager
	Works    WorkUsecase
}

// NewServices wires the engine, due-date manager and work usecase together
func NewServices(
	workRepo repository.WorkRepository,
	taskRepo repository.TaskRepository,
	remote RemoteTaskProvider,
	notifier notification.Notifier,
	policy AdvisoryPolicy,
) *Services {
	engine := NewSchedulingEngine(workRepo, taskRepo, remote, notifier)
	dueDates := NewDueDateManager(workRepo, taskRepo, engine, notifier, policy)
	engine.SetDueDateManager(dueDates)
	return &Services{
		Engine:   engine,
		DueDates: dueDates,
		Works:    NewWorkUsecase(workRepo, taskRepo, engine, dueDates, remote, notifier),
	}
}

// SetClock replaces the time source, used for deterministic tests and replays
func (s *Services) SetClock(now func() time.Time) {
	if e, ok := s.Engine.(*schedulingEngine); ok {
		e.now = now
	}
	if m, ok := s.DueDates.(*dueDateManager); ok {
		m.now = now
	}
}
