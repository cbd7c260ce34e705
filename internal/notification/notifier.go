package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"taskflow-backend/internal/task/domain"
)

// Notifier delivers lifecycle events. Errors are informational; callers never roll back on them.
type Notifier interface {
	TaskScheduled(ctx context.Context, work *domain.Work, task *domain.Task) error
	TaskRescheduled(ctx context.Context, work *domain.Work, task *domain.Task) error
	TaskCompleted(ctx context.Context, work *domain.Work, task *domain.Task) error
	WorkCompleted(ctx context.Context, work *domain.Work, taskCount int) error
	WorkPublished(ctx context.Context, work *domain.Work, first *domain.Task) error
	SnoozeAdvisory(ctx context.Context, work *domain.Work, task *domain.Task) error
	GroupedChanges(ctx context.Context, work *domain.Work, changes []string) error
	DailyDigest(ctx context.Context, tasks []*domain.Task) error
}

// Channel is a delivery transport for formatted messages
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher formats each event once and hands it to every channel
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	var errs []error
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) TaskScheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return d.send(ctx, taskScheduledMessage(work, task))
}

func (d *Dispatcher) TaskRescheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return d.send(ctx, taskRescheduledMessage(work, task))
}

func (d *Dispatcher) TaskCompleted(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return d.send(ctx, taskCompletedMessage(work, task))
}

func (d *Dispatcher) WorkCompleted(ctx context.Context, work *domain.Work, taskCount int) error {
	return d.send(ctx, workCompletedMessage(work, taskCount))
}

func (d *Dispatcher) WorkPublished(ctx context.Context, work *domain.Work, first *domain.Task) error {
	return d.send(ctx, workPublishedMessage(work, first))
}

func (d *Dispatcher) SnoozeAdvisory(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return d.send(ctx, snoozeAdvisoryMessage(work, task))
}

func (d *Dispatcher) GroupedChanges(ctx context.Context, work *domain.Work, changes []string) error {
	if len(changes) == 0 {
		return nil
	}
	return d.send(ctx, groupedChangesMessage(work, changes))
}

func (d *Dispatcher) DailyDigest(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return d.send(ctx, dailyDigestMessage(tasks))
}

// safeNotifier logs and swallows every delivery error
type safeNotifier struct {
	inner Notifier
}

// Safe wraps n so that no notification failure ever reaches the caller
func Safe(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	if s, ok := n.(*safeNotifier); ok {
		return s
	}
	return &safeNotifier{inner: n}
}

func (s *safeNotifier) swallow(event string, err error) error {
	if err != nil {
		log.Printf("[Notify] %s notification failed: %v", event, err)
	}
	return nil
}

func (s *safeNotifier) TaskScheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return s.swallow(string(KindTaskScheduled), s.inner.TaskScheduled(ctx, work, task))
}

func (s *safeNotifier) TaskRescheduled(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return s.swallow(string(KindTaskRescheduled), s.inner.TaskRescheduled(ctx, work, task))
}

func (s *safeNotifier) TaskCompleted(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return s.swallow(string(KindTaskCompleted), s.inner.TaskCompleted(ctx, work, task))
}

func (s *safeNotifier) WorkCompleted(ctx context.Context, work *domain.Work, taskCount int) error {
	return s.swallow(string(KindWorkCompleted), s.inner.WorkCompleted(ctx, work, taskCount))
}

func (s *safeNotifier) WorkPublished(ctx context.Context, work *domain.Work, first *domain.Task) error {
	return s.swallow(string(KindWorkPublished), s.inner.WorkPublished(ctx, work, first))
}

func (s *safeNotifier) SnoozeAdvisory(ctx context.Context, work *domain.Work, task *domain.Task) error {
	return s.swallow(string(KindSnoozeAdvisory), s.inner.SnoozeAdvisory(ctx, work, task))
}

func (s *safeNotifier) GroupedChanges(ctx context.Context, work *domain.Work, changes []string) error {
	return s.swallow(string(KindGroupedChanges), s.inner.GroupedChanges(ctx, work, changes))
}

func (s *safeNotifier) DailyDigest(ctx context.Context, tasks []*domain.Task) error {
	return s.swallow(string(KindDailyDigest), s.inner.DailyDigest(ctx, tasks))
}

// Nop discards every event
type Nop struct{}

func (Nop) TaskScheduled(context.Context, *domain.Work, *domain.Task) error   { return nil }
func (Nop) TaskRescheduled(context.Context, *domain.Work, *domain.Task) error { return nil }
func (Nop) TaskCompleted(context.Context, *domain.Work, *domain.Task) error   { return nil }
func (Nop) WorkCompleted(context.Context, *domain.Work, int) error            { return nil }
func (Nop) WorkPublished(context.Context, *domain.Work, *domain.Task) error   { return nil }
func (Nop) SnoozeAdvisory(context.Context, *domain.Work, *domain.Task) error  { return nil }
func (Nop) GroupedChanges(context.Context, *domain.Work, []string) error      { return nil }
func (Nop) DailyDigest(context.Context, []*domain.Task) error                 { return nil }
