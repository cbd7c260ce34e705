package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/testutil"
)

func TestCreateWork(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()

	if _, err := h.svc.Works.CreateWork(ctx, CreateWorkInput{Title: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for blank title, got %v", err)
	}
	if _, err := h.svc.Works.CreateWork(ctx, CreateWorkInput{Title: "Trip", Tasks: []CreateTaskInput{{Title: ""}}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for blank task title, got %v", err)
	}

	work, err := h.svc.Works.CreateWork(ctx, CreateWorkInput{
		Title: "Trip",
		Tasks: []CreateTaskInput{
			{Title: "Book flights", Priority: "high"},
			{Title: "Pack", DueDate: day(9)},
		},
	})
	if err != nil {
		t.Fatalf("CreateWork failed: %v", err)
	}
	if work.Status != domain.WorkStatusDraft {
		t.Errorf("Expected Draft, got %s", work.Status)
	}
	if len(work.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(work.Tasks))
	}
	for _, task := range work.Tasks {
		if task.Status != domain.TaskStatusPending {
			t.Errorf("Task %s: expected Pending, got %s", task.Title, task.Status)
		}
		if task.Title == "Book flights" && task.Priority != domain.PriorityHigh {
			t.Errorf("Expected High priority, got %s", task.Priority)
		}
	}
	if h.remote.Calls(testutil.OpCreate) != 0 {
		t.Error("Expected no mirrors for a draft work")
	}
}

func TestCreateWorkWithAutoDueDates(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)

	work, err := h.svc.Works.CreateWork(context.Background(), CreateWorkInput{
		Title:        "Trip",
		Tasks:        []CreateTaskInput{{Title: "Book flights"}, {Title: "Pack"}},
		AutoDueDates: true,
	})
	if err != nil {
		t.Fatalf("CreateWork failed: %v", err)
	}
	for _, task := range work.Tasks {
		if task.DueDate == nil {
			t.Errorf("Task %s: expected an assigned due date", task.Title)
		}
	}
}

func TestCreateTask(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()
	published, _ := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusPublished, day(1), day(2))

	task, err := h.svc.Works.CreateTask(ctx, published.ID, CreateTaskInput{Title: "Follow up"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Status != domain.TaskStatusPublished {
		t.Errorf("Expected Published for a published work, got %s", task.Status)
	}
	if task.OrderIndex != 2 {
		t.Errorf("Expected order index 2, got %d", task.OrderIndex)
	}

	completed, _ := h.seed(t, domain.WorkStatusCompleted, domain.TaskStatusCompleted, day(1))
	if _, err := h.svc.Works.CreateTask(ctx, completed.ID, CreateTaskInput{Title: "Late"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for completed work, got %v", err)
	}
	if _, err := h.svc.Works.CreateTask(ctx, "missing", CreateTaskInput{Title: "Orphan"}); !errors.Is(err, ErrWorkNotFound) {
		t.Errorf("Expected ErrWorkNotFound, got %v", err)
	}
}

func TestListWorksByStatus(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(1))
	h.seed(t, domain.WorkStatusPublished, domain.TaskStatusPublished, day(1))

	status := "published"
	works, err := h.svc.Works.ListWorks(context.Background(), &status)
	if err != nil {
		t.Fatalf("ListWorks failed: %v", err)
	}
	if len(works) != 1 || works[0].Status != domain.WorkStatusPublished {
		t.Errorf("Expected the published work only, got %d works", len(works))
	}

	all, err := h.svc.Works.ListWorks(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListWorks failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 works, got %d", len(all))
	}
}

func TestPublishWork(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, tasks := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(2), day(1), day(3))

	result, err := h.svc.Works.PublishWork(context.Background(), work.ID, true)
	if err != nil {
		t.Fatalf("PublishWork failed: %v", err)
	}
	if result.Work.Status != domain.WorkStatusPublished {
		t.Errorf("Expected Published, got %s", result.Work.Status)
	}
	if result.First == nil || result.First.ID != tasks[1].ID {
		t.Fatalf("Expected earliest task first, got %+v", result.First)
	}
	if !result.First.HasMirror() {
		t.Error("Expected first task mirrored")
	}

	if got := h.task(t, tasks[1].ID).Status; got != domain.TaskStatusTracked {
		t.Errorf("Expected first task Tracked, got %s", got)
	}
	for _, id := range []string{tasks[0].ID, tasks[2].ID} {
		if got := h.task(t, id).Status; got != domain.TaskStatusPublished {
			t.Errorf("Expected Published, got %s", got)
		}
	}
	if h.remote.Len() != 1 {
		t.Errorf("Expected 1 mirror, got %d", h.remote.Len())
	}
	if h.notifier.Count(notification.KindTaskScheduled) != 0 {
		t.Error("Expected scheduling to stay quiet during publish")
	}
	events := h.notifier.Events()
	if len(events) != 1 || events[0].Kind != notification.KindWorkPublished || events[0].TaskID != tasks[1].ID {
		t.Errorf("Expected a single publish notification for the first task, got %+v", events)
	}
}

func TestPublishWorkWithoutScheduling(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, tasks := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(1))

	result, err := h.svc.Works.PublishWork(context.Background(), work.ID, false)
	if err != nil {
		t.Fatalf("PublishWork failed: %v", err)
	}
	if result.First != nil {
		t.Errorf("Expected no first task, got %+v", result.First)
	}
	if got := h.task(t, tasks[0].ID).Status; got != domain.TaskStatusPublished {
		t.Errorf("Expected Published, got %s", got)
	}
	if h.remote.Len() != 0 {
		t.Error("Expected no mirrors")
	}
}

func TestPublishWorkRequiresDueDates(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, _ := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(1), nil)

	if _, err := h.svc.Works.PublishWork(context.Background(), work.ID, true); !errors.Is(err, ErrMissingDueDates) {
		t.Fatalf("Expected ErrMissingDueDates, got %v", err)
	}
	if got := h.work(t, work.ID).Status; got != domain.WorkStatusDraft {
		t.Errorf("Expected work left Draft, got %s", got)
	}
}

func TestPublishWorkMirrorFailureIsStale(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, tasks := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(1))
	h.remote.FailAlways(testutil.OpCreate, errors.New("quota exceeded"))

	result, err := h.svc.Works.PublishWork(context.Background(), work.ID, true)
	if !IsStale(err) {
		t.Fatalf("Expected stale error, got %v", err)
	}
	if result == nil || result.Work.Status != domain.WorkStatusPublished {
		t.Errorf("Expected the publish applied locally, got %+v", result)
	}
	if got := h.task(t, tasks[0].ID).Status; got != domain.TaskStatusTracked {
		t.Errorf("Expected Tracked, got %s", got)
	}
}

func TestPublishCompletedWorkIsRejected(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, _ := h.seed(t, domain.WorkStatusCompleted, domain.TaskStatusCompleted, day(1))

	if _, err := h.svc.Works.PublishWork(context.Background(), work.ID, true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateTaskStatusCompletesThroughEngine(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	_, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusPublished, day(1), day(2))

	task, err := h.svc.Works.UpdateTaskStatus(context.Background(), tasks[0].ID, "done")
	if err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("Expected Completed, got %s", task.Status)
	}
	if got := h.task(t, tasks[1].ID).Status; got != domain.TaskStatusTracked {
		t.Errorf("Expected next task Tracked, got %s", got)
	}
}

func TestUpdateTaskStatusRejectsInvalidTransition(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	_, tasks := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(1))

	if _, err := h.svc.Works.UpdateTaskStatus(context.Background(), tasks[0].ID, "tracked"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if got := h.task(t, tasks[0].ID).Status; got != domain.TaskStatusPending {
		t.Errorf("Expected status unchanged, got %s", got)
	}
	if _, err := h.svc.Works.UpdateTaskStatus(context.Background(), "missing", "done"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestUpdateTaskStatusTrackSchedules(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	_, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusPublished, day(1))

	task, err := h.svc.Works.UpdateTaskStatus(context.Background(), tasks[0].ID, "tracked")
	if err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	if task.Status != domain.TaskStatusTracked || !task.HasMirror() {
		t.Errorf("Expected Tracked with mirror, got %s mirror=%v", task.Status, task.HasMirror())
	}
}

func TestReopenTaskReopensWork(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()
	work, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusTracked, day(1))
	mirrored := h.mirror(t, tasks[0].ID)

	if _, err := h.svc.Works.UpdateTaskStatus(ctx, tasks[0].ID, "completed"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got := h.work(t, work.ID).Status; got != domain.WorkStatusCompleted {
		t.Fatalf("Expected work Completed, got %s", got)
	}

	task, err := h.svc.Works.UpdateTaskStatus(ctx, tasks[0].ID, "published")
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if task.Status != domain.TaskStatusPublished {
		t.Errorf("Expected Published, got %s", task.Status)
	}
	if got := h.work(t, work.ID).Status; got != domain.WorkStatusDraft {
		t.Errorf("Expected work back to Draft, got %s", got)
	}
	if entry := h.remote.Entry(mirrored.MirrorID()); entry.Status != domain.RemoteStatusNeedsAction {
		t.Errorf("Expected mirror reopened, got %s", entry.Status)
	}
}

func TestUpdateWorkStatus(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()
	work, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusPublished, day(1))

	if _, err := h.svc.Works.UpdateWorkStatus(ctx, work.ID, "completed"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition with open tasks, got %v", err)
	}

	completed := domain.TaskStatusCompleted
	if err := h.tasks.UpdateStatus(ctx, tasks[0].ID, completed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	updated, err := h.svc.Works.UpdateWorkStatus(ctx, work.ID, "completed")
	if err != nil {
		t.Fatalf("UpdateWorkStatus failed: %v", err)
	}
	if updated.Status != domain.WorkStatusCompleted {
		t.Errorf("Expected Completed, got %s", updated.Status)
	}

	draft, _ := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusCompleted, day(1))
	if _, err := h.svc.Works.UpdateWorkStatus(ctx, draft.ID, "completed"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected Draft -> Completed rejected, got %v", err)
	}
}

func TestDeleteWorkRemovesMirrors(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()
	work, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusTracked, day(1), day(2))
	h.mirror(t, tasks[0].ID)
	h.mirror(t, tasks[1].ID)

	if err := h.svc.Works.DeleteWork(ctx, work.ID); err != nil {
		t.Fatalf("DeleteWork failed: %v", err)
	}
	if h.remote.Len() != 0 {
		t.Errorf("Expected mirrors removed, %d left", h.remote.Len())
	}
	if _, err := h.svc.Works.GetWork(ctx, work.ID); !errors.Is(err, ErrWorkNotFound) {
		t.Errorf("Expected ErrWorkNotFound after delete, got %v", err)
	}
	remaining, err := h.svc.Works.ListTasks(ctx, repository.TaskFilter{WorkID: work.ID})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected tasks deleted with the work, got %d", len(remaining))
	}
}

func TestDeleteTaskSurvivesMirrorFailure(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	ctx := context.Background()
	_, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusTracked, day(1))
	h.mirror(t, tasks[0].ID)
	h.remote.FailAlways(testutil.OpDelete, errors.New("backend error"))

	if err := h.svc.Works.DeleteTask(ctx, tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := h.svc.Works.GetTask(ctx, tasks[0].ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestParseAdvisoryPolicy(t *testing.T) {
	if ParseAdvisoryPolicy("crossing") != AdvisoryOnCrossing {
		t.Error("Expected crossing policy")
	}
	for _, v := range []string{"", "every", "bogus"} {
		if ParseAdvisoryPolicy(v) != AdvisoryEverySnooze {
			t.Errorf("Expected %q to default to every", v)
		}
	}
}

func TestSetClockDrivesDefaults(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	h.svc.SetClock(func() time.Time { return time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC) })
	_, tasks := h.seed(t, domain.WorkStatusPublished, domain.TaskStatusTracked, nil)

	task, err := h.svc.Engine.EnsureScheduled(context.Background(), tasks[0].ID)
	if err != nil {
		t.Fatalf("EnsureScheduled failed: %v", err)
	}
	want := time.Date(2027, 1, 1, 8, 0, 0, 0, time.UTC)
	if !task.DueDate.Equal(want) {
		t.Errorf("Expected %v, got %v", want, task.DueDate)
	}
}

func TestListTasksFuzzyQuery(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work := &domain.Work{Title: "Conference talk", Status: domain.WorkStatusPublished}
	for i, title := range []string{"Draft slides", "Book venue", "Rehearse slides"} {
		work.Tasks = append(work.Tasks, &domain.Task{Title: title, OrderIndex: i, Status: domain.TaskStatusPublished, DueDate: day(i + 1)})
	}
	if err := h.works.Create(context.Background(), work); err != nil {
		t.Fatalf("Failed to seed work: %v", err)
	}

	tasks, err := h.svc.Works.ListTasks(context.Background(), repository.TaskFilter{WorkID: work.ID, Query: "slide"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "Draft slides" || tasks[1].Title != "Rehearse slides" {
		t.Errorf("Expected both slide tasks in schedule order, got %+v", tasks)
	}

	all, err := h.svc.Works.ListTasks(context.Background(), repository.TaskFilter{WorkID: work.ID, Query: "  "})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected blank query to return every task, got %d", len(all))
	}
}

type countingEngine struct {
	SchedulingEngine
	ensured int
	quiet   int
}

func (c *countingEngine) EnsureScheduled(ctx context.Context, taskID string) (*domain.Task, error) {
	c.ensured++
	return c.SchedulingEngine.EnsureScheduled(ctx, taskID)
}

func (c *countingEngine) ScheduleQuietly(ctx context.Context, taskID string) (*domain.Task, error) {
	c.quiet++
	return c.SchedulingEngine.ScheduleQuietly(ctx, taskID)
}

func TestPublishWorkSchedulesThroughEngineInterface(t *testing.T) {
	h := newHarness(t, AdvisoryEverySnooze)
	work, _ := h.seed(t, domain.WorkStatusDraft, domain.TaskStatusPending, day(2), day(3))

	engine := &countingEngine{SchedulingEngine: h.svc.Engine}
	works := NewWorkUsecase(h.works, h.tasks, engine, h.svc.DueDates, h.remote, h.notifier)

	if _, err := works.PublishWork(context.Background(), work.ID, true); err != nil {
		t.Fatalf("PublishWork failed: %v", err)
	}
	if engine.quiet != 1 || engine.ensured != 0 {
		t.Errorf("Expected one quiet schedule, got quiet=%d ensured=%d", engine.quiet, engine.ensured)
	}
	if got := h.notifier.Count(notification.KindTaskScheduled); got != 0 {
		t.Errorf("Expected no TaskScheduled, got %d", got)
	}
	if got := h.notifier.Count(notification.KindWorkPublished); got != 1 {
		t.Errorf("Expected one WorkPublished, got %d", got)
	}
}
