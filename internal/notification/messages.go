package notification

import (
	"fmt"
	"strings"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/pkg/slack"
)

// Kind identifies a notification event
type Kind string

const (
	KindTaskScheduled   Kind = "task_scheduled"
	KindTaskRescheduled Kind = "task_rescheduled"
	KindTaskCompleted   Kind = "task_completed"
	KindWorkCompleted   Kind = "work_completed"
	KindWorkPublished   Kind = "work_published"
	KindSnoozeAdvisory  Kind = "snooze_advisory"
	KindGroupedChanges  Kind = "grouped_changes"
	KindDailyDigest     Kind = "daily_digest"
)

// Message is a channel-neutral rendering of an event
type Message struct {
	Kind   Kind
	Title  string // short headline, used for push
	Text   string // Slack mrkdwn body
	Blocks []slack.Block
	Data   map[string]string
}

func workTitle(work *domain.Work) string {
	if work == nil {
		return "(unknown work)"
	}
	return work.Title
}

func shortDue(task *domain.Task) string {
	if task == nil || task.DueDate == nil {
		return ""
	}
	return task.DueDate.Format("Jan 02")
}

func taskData(kind Kind, work *domain.Work, task *domain.Task) map[string]string {
	data := map[string]string{"type": string(kind)}
	if work != nil {
		data["work_id"] = work.ID
	}
	if task != nil {
		data["task_id"] = task.ID
	}
	return data
}

func taskScheduledMessage(work *domain.Work, task *domain.Task) Message {
	text := "📅 *Scheduled:* " + task.Title
	if due := shortDue(task); due != "" {
		text += " - " + due
	}
	return Message{
		Kind:  KindTaskScheduled,
		Title: "Scheduled: " + task.Title,
		Text:  text,
		Data:  taskData(KindTaskScheduled, work, task),
	}
}

func taskRescheduledMessage(work *domain.Work, task *domain.Task) Message {
	text := "📆 *Rescheduled:* " + task.Title
	if due := shortDue(task); due != "" {
		text += " - " + due
	}
	return Message{
		Kind:  KindTaskRescheduled,
		Title: "Rescheduled: " + task.Title,
		Text:  text,
		Data:  taskData(KindTaskRescheduled, work, task),
	}
}

func taskCompletedMessage(work *domain.Work, task *domain.Task) Message {
	return Message{
		Kind:  KindTaskCompleted,
		Title: "Task completed",
		Text:  fmt.Sprintf("✅ Task completed: '%s' in work '%s'", task.Title, workTitle(work)),
		Data:  taskData(KindTaskCompleted, work, task),
	}
}

func workCompletedMessage(work *domain.Work, taskCount int) Message {
	return Message{
		Kind:  KindWorkCompleted,
		Title: "Work completed",
		Text:  fmt.Sprintf("🎉 Work completed: '%s' (%d tasks finished)", workTitle(work), taskCount),
		Data:  taskData(KindWorkCompleted, work, nil),
	}
}

func workPublishedMessage(work *domain.Work, first *domain.Task) Message {
	blocks := []slack.Block{
		slack.Header("🚀 Work Published"),
		slack.Section(fmt.Sprintf("*%s*\n%s", workTitle(work), work.Description)),
	}
	if first != nil {
		due := "No due date"
		if first.DueDate != nil {
			due = first.DueDate.Format("January 02, 2006")
		}
		blocks = append(blocks, slack.Divider(),
			slack.Section(fmt.Sprintf("📅 *First task scheduled*\n%s\nDue: %s", first.Title, due)))
	}
	return Message{
		Kind:   KindWorkPublished,
		Title:  "Work published",
		Text:   fmt.Sprintf("Work '%s' published", workTitle(work)),
		Blocks: blocks,
		Data:   taskData(KindWorkPublished, work, first),
	}
}

func snoozeAdvisoryMessage(work *domain.Work, task *domain.Task) Message {
	return Message{
		Kind:  KindSnoozeAdvisory,
		Title: "Task keeps slipping",
		Text:  fmt.Sprintf("⏰ *%s* snoozed %dx - Consider breaking it down?", task.Title, task.SnoozeCount),
		Data:  taskData(KindSnoozeAdvisory, work, task),
	}
}

func groupedChangesMessage(work *domain.Work, changes []string) Message {
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = "  • " + c
	}
	return Message{
		Kind:  KindGroupedChanges,
		Title: workTitle(work) + " updated",
		Text:  fmt.Sprintf("🔔 *%s* - Updates\n%s", workTitle(work), strings.Join(lines, "\n")),
		Data:  taskData(KindGroupedChanges, work, nil),
	}
}

func dailyDigestMessage(tasks []*domain.Task) Message {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = "📌 " + t.Title
	}
	return Message{
		Kind:  KindDailyDigest,
		Title: fmt.Sprintf("%d tasks due today", len(tasks)),
		Text:  "☀️ *Today's Tasks*\n" + strings.Join(lines, "\n"),
		Data:  map[string]string{"type": string(KindDailyDigest)},
	}
}
