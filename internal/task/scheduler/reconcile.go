package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/task/usecase"
)

// BatchReport summarizes one reconciliation run.
// Errors holds per-task failures; the run carries on past them.
type BatchReport struct {
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Skipped    bool                `json:"skipped,omitempty"` // another run was in progress
	Checked    int                 `json:"checked"`
	Completed  int                 `json:"completed"`
	Snoozed    int                 `json:"snoozed"`
	DueMoved   int                 `json:"due_moved"`
	Missing    []string            `json:"missing,omitempty"`
	Healed     int                 `json:"healed"`
	CleanedUp  int                 `json:"cleaned_up"`
	DigestSent bool                `json:"digest_sent"`
	Changes    map[string][]string `json:"changes,omitempty"`
	Errors     map[string]error    `json:"-"`
}

// Failures returns error messages keyed by task id, for JSON output
func (r *BatchReport) Failures() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for id, err := range r.Errors {
		out[id] = err.Error()
	}
	return out
}

func (r *BatchReport) addChange(workID, change string) {
	for _, c := range r.Changes[workID] {
		if c == change {
			return
		}
	}
	r.Changes[workID] = append(r.Changes[workID], change)
}

// Options configures the reconciliation loop
type Options struct {
	// Interval between runs; zero disables the loop
	Interval time.Duration
	// Digest sends today's open tasks after every run
	Digest bool
}

// ReconcileScheduler pulls remote drift back into the store
type ReconcileScheduler struct {
	workRepo repository.WorkRepository
	taskRepo repository.TaskRepository
	engine   usecase.SchedulingEngine
	notifier notification.Notifier
	opts     Options
	now      func() time.Time

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewReconcileScheduler creates a new scheduler
func NewReconcileScheduler(
	workRepo repository.WorkRepository,
	taskRepo repository.TaskRepository,
	engine usecase.SchedulingEngine,
	notifier notification.Notifier,
	opts Options,
) *ReconcileScheduler {
	return &ReconcileScheduler{
		workRepo: workRepo,
		taskRepo: taskRepo,
		engine:   engine,
		notifier: notification.Safe(notifier),
		opts:     opts,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ReconcileScheduler) Start(ctx context.Context) {
	if s.opts.Interval <= 0 {
		log.Println("[Reconcile] Interval not set, scheduler disabled")
		return
	}

	log.Printf("[Reconcile] Starting reconciliation scheduler (interval: %s)", s.opts.Interval)

	go func() {
		// Run immediately on start
		s.RunOnce(ctx)

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-s.stopChan:
				log.Println("[Reconcile] Scheduler stopped")
				return
			case <-ctx.Done():
				log.Println("[Reconcile] Context done, scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ReconcileScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RunOnce performs a single reconciliation pass. Concurrent calls return a skipped report.
func (s *ReconcileScheduler) RunOnce(ctx context.Context) *BatchReport {
	report := &BatchReport{
		StartedAt: s.now().UTC(),
		Changes:   make(map[string][]string),
		Errors:    make(map[string]error),
	}
	if !s.running.CompareAndSwap(false, true) {
		log.Println("[Reconcile] Previous run still in progress, skipping")
		report.Skipped = true
		report.FinishedAt = report.StartedAt
		return report
	}
	defer s.running.Store(false)

	s.syncMirrors(ctx, report)
	s.healTracked(ctx, report)
	s.sendGroupedChanges(ctx, report)
	s.cleanupCompleted(ctx, report)
	if s.opts.Digest {
		s.sendDigest(ctx, report)
	}

	report.FinishedAt = s.now().UTC()
	log.Printf("[Reconcile] Run finished: checked=%d completed=%d snoozed=%d healed=%d cleaned=%d failed=%d",
		report.Checked, report.Completed, report.Snoozed, report.Healed, report.CleanedUp, len(report.Errors))
	return report
}

func (s *ReconcileScheduler) syncMirrors(ctx context.Context, report *BatchReport) {
	tasks, err := s.taskRepo.List(ctx, repository.TaskFilter{HasRemote: true})
	if err != nil {
		log.Printf("[Reconcile] Error listing mirrored tasks: %v", err)
		report.Errors["*"] = err
		return
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			report.Errors[task.ID] = ctx.Err()
			return
		}
		report.Checked++

		result, err := s.engine.SyncFromRemote(ctx, task.ID)
		if err != nil && !usecase.IsStale(err) {
			log.Printf("[Reconcile] Error syncing task %s: %v", task.ID, err)
			report.Errors[task.ID] = err
		}
		if result == nil {
			continue
		}

		switch {
		case result.MirrorMissing:
			report.Missing = append(report.Missing, task.ID)
		case result.Completion != nil:
			report.Completed++
		case result.Snoozed:
			report.Snoozed++
		case result.DueChanged:
			report.DueMoved++
		}
		for _, change := range result.Changes {
			report.addChange(task.WorkID, change)
		}
	}
}

// healTracked mirrors Tracked tasks whose scheduling failed earlier
func (s *ReconcileScheduler) healTracked(ctx context.Context, report *BatchReport) {
	tracked := domain.TaskStatusTracked
	tasks, err := s.taskRepo.List(ctx, repository.TaskFilter{Status: &tracked})
	if err != nil {
		log.Printf("[Reconcile] Error listing tracked tasks: %v", err)
		return
	}

	for _, task := range tasks {
		if task.HasMirror() {
			continue
		}
		if _, err := s.engine.EnsureScheduled(ctx, task.ID); err != nil {
			log.Printf("[Reconcile] Error scheduling tracked task %s: %v", task.ID, err)
			report.Errors[task.ID] = err
			continue
		}
		report.Healed++
	}
}

func (s *ReconcileScheduler) sendGroupedChanges(ctx context.Context, report *BatchReport) {
	workIDs := make([]string, 0, len(report.Changes))
	for id := range report.Changes {
		workIDs = append(workIDs, id)
	}
	sort.Strings(workIDs)

	for _, id := range workIDs {
		work, err := s.workRepo.FindByID(ctx, id, false)
		if err != nil || work == nil {
			log.Printf("[Reconcile] Work %s not found for grouped changes: %v", id, err)
			continue
		}
		s.notifier.GroupedChanges(ctx, work, report.Changes[id])
	}
}

// cleanupCompleted removes lingering mirrors of finished works
func (s *ReconcileScheduler) cleanupCompleted(ctx context.Context, report *BatchReport) {
	completed := domain.WorkStatusCompleted
	works, err := s.workRepo.List(ctx, &completed)
	if err != nil {
		log.Printf("[Reconcile] Error listing completed works: %v", err)
		return
	}

	for _, work := range works {
		tasks, err := s.taskRepo.List(ctx, repository.TaskFilter{WorkID: work.ID, HasRemote: true})
		if err != nil {
			log.Printf("[Reconcile] Error listing tasks of work %s: %v", work.ID, err)
			continue
		}
		for _, task := range tasks {
			if err := s.engine.DeleteMirror(ctx, task.ID); err != nil {
				report.Errors[task.ID] = err
				continue
			}
			report.CleanedUp++
		}
	}
}

func (s *ReconcileScheduler) sendDigest(ctx context.Context, report *BatchReport) {
	tasks, err := s.TodayTasks(ctx)
	if err != nil {
		log.Printf("[Reconcile] Error listing today's tasks: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}
	s.notifier.DailyDigest(ctx, tasks)
	report.DigestSent = true
}

// TodayTasks returns open tasks due on the current UTC day
func (s *ReconcileScheduler) TodayTasks(ctx context.Context) ([]*domain.Task, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	return s.taskRepo.List(ctx, repository.TaskFilter{
		DueAfter:         &start,
		DueBefore:        &end,
		ExcludeCompleted: true,
	})
}

// WeekSummary groups the tasks due in one Monday-to-Monday UTC window
type WeekSummary struct {
	WeekStart  time.Time      `json:"week_start"`
	WeekEnd    time.Time      `json:"week_end"`
	Total      int            `json:"total_tasks"`
	Completed  []*domain.Task `json:"completed"`
	InProgress []*domain.Task `json:"in_progress"`
	Pending    []*domain.Task `json:"pending"`
}

// CompletionRate renders completed over total, e.g. "2/5"
func (w *WeekSummary) CompletionRate() string {
	return fmt.Sprintf("%d/%d", len(w.Completed), w.Total)
}

// WeekTasks summarizes the week containing at, or the current week when at is zero.
// Completed tasks are included.
func (s *ReconcileScheduler) WeekTasks(ctx context.Context, at time.Time) (*WeekSummary, error) {
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	offset := (int(at.Weekday()) + 6) % 7
	start := time.Date(at.Year(), at.Month(), at.Day()-offset, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	tasks, err := s.taskRepo.List(ctx, repository.TaskFilter{DueAfter: &start, DueBefore: &end})
	if err != nil {
		return nil, err
	}
	summary := &WeekSummary{
		WeekStart:  start,
		WeekEnd:    end,
		Total:      len(tasks),
		Completed:  []*domain.Task{},
		InProgress: []*domain.Task{},
		Pending:    []*domain.Task{},
	}
	for _, task := range tasks {
		switch task.Status {
		case domain.TaskStatusCompleted:
			summary.Completed = append(summary.Completed, task)
		case domain.TaskStatusTracked:
			summary.InProgress = append(summary.InProgress, task)
		default:
			summary.Pending = append(summary.Pending, task)
		}
	}
	return summary, nil
}

// SendDigest sends today's tasks regardless of Options.Digest
func (s *ReconcileScheduler) SendDigest(ctx context.Context) (int, error) {
	tasks, err := s.TodayTasks(ctx)
	if err != nil {
		return 0, err
	}
	s.notifier.DailyDigest(ctx, tasks)
	return len(tasks), nil
}
