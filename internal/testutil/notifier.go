package testutil

import (
	"context"
	"errors"
	"sync"

	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/domain"
)

// Event is one recorded notification
type Event struct {
	Kind    notification.Kind
	WorkID  string
	TaskID  string
	Count   int
	Changes []string
}

// RecordingNotifier captures events; set Fail to make every call return an error
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
	Fail   bool
}

func (r *RecordingNotifier) record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.Fail {
		return errors.New("notifier unavailable")
	}
	return nil
}

// Events returns a copy of everything recorded
func (r *RecordingNotifier) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind were recorded
func (r *RecordingNotifier) Count(kind notification.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears recorded events
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func ids(work *domain.Work, task *domain.Task) (string, string) {
	var workID, taskID string
	if work != nil {
		workID = work.ID
	}
	if task != nil {
		taskID = task.ID
	}
	return workID, taskID
}

func (r *RecordingNotifier) TaskScheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	w, t := ids(work, task)
	return r.record(Event{Kind: notification.KindTaskScheduled, WorkID: w, TaskID: t})
}

func (r *RecordingNotifier) TaskRescheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	w, t := ids(work, task)
	return r.record(Event{Kind: notification.KindTaskRescheduled, WorkID: w, TaskID: t})
}

func (r *RecordingNotifier) TaskCompleted(ctx context.Context, work *domain.Work, task *domain.Task) error {
	w, t := ids(work, task)
	return r.record(Event{Kind: notification.KindTaskCompleted, WorkID: w, TaskID: t})
}

func (r *RecordingNotifier) WorkCompleted(ctx context.Context, work *domain.Work, taskCount int) error {
	w, _ := ids(work, nil)
	return r.record(Event{Kind: notification.KindWorkCompleted, WorkID: w, Count: taskCount})
}

func (r *RecordingNotifier) WorkPublished(ctx context.Context, work *domain.Work, first *domain.Task) error {
	w, t := ids(work, first)
	return r.record(Event{Kind: notification.KindWorkPublished, WorkID: w, TaskID: t})
}

func (r *RecordingNotifier) SnoozeAdvisory(ctx context.Context, work *domain.Work, task *domain.Task) error {
	w, t := ids(work, task)
	return r.record(Event{Kind: notification.KindSnoozeAdvisory, WorkID: w, TaskID: t, Count: task.SnoozeCount})
}

func (r *RecordingNotifier) GroupedChanges(ctx context.Context, work *domain.Work, changes []string) error {
	w, _ := ids(work, nil)
	return r.record(Event{Kind: notification.KindGroupedChanges, WorkID: w, Changes: append([]string(nil), changes...)})
}

func (r *RecordingNotifier) DailyDigest(ctx context.Context, tasks []*domain.Task) error {
	return r.record(Event{Kind: notification.KindDailyDigest, Count: len(tasks)})
}
