package usecase

import (
	"context"
	"testing"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/testutil"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func day(d int) *time.Time {
	t := time.Date(2026, 5, d, 8, 0, 0, 0, time.UTC)
	return &t
}

type harness struct {
	works    repository.WorkRepository
	tasks    repository.TaskRepository
	remote   *testutil.FakeRemote
	notifier *testutil.RecordingNotifier
	svc      *Services
}

func newHarness(t *testing.T, policy AdvisoryPolicy) *harness {
	t.Helper()
	works, tasks := testutil.NewTestRepos(t)
	h := &harness{
		works:    works,
		tasks:    tasks,
		remote:   testutil.NewFakeRemote(),
		notifier: &testutil.RecordingNotifier{},
	}
	h.svc = NewServices(works, tasks, h.remote, h.notifier, policy)
	h.svc.SetClock(func() time.Time { return testNow })
	return h
}

// seed creates a work with the given status and one task per due date (nil = undated)
func (h *harness) seed(t *testing.T, status domain.WorkStatus, taskStatus domain.TaskStatus, dues ...*time.Time) (*domain.Work, []*domain.Task) {
	t.Helper()
	work := &domain.Work{Title: "Launch site", Status: status}
	for i, due := range dues {
		work.Tasks = append(work.Tasks, &domain.Task{
			Title:      "T" + string(rune('1'+i)),
			OrderIndex: i,
			Status:     taskStatus,
			DueDate:    due,
		})
	}
	if err := h.works.Create(context.Background(), work); err != nil {
		t.Fatalf("Failed to seed work: %v", err)
	}
	return work, work.Tasks
}

func (h *harness) task(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := h.tasks.FindByID(context.Background(), id)
	if err != nil || task == nil {
		t.Fatalf("Failed to load task %s: %v", id, err)
	}
	return task
}

func (h *harness) work(t *testing.T, id string) *domain.Work {
	t.Helper()
	work, err := h.works.FindByID(context.Background(), id, false)
	if err != nil || work == nil {
		t.Fatalf("Failed to load work %s: %v", id, err)
	}
	return work
}

// mirror schedules a task and resets notification counters
func (h *harness) mirror(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := h.svc.Engine.EnsureScheduled(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureScheduled failed: %v", err)
	}
	h.notifier.Reset()
	return task
}
