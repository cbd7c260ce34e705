package domain

import "strings"

// WorkStatus represents the lifecycle state of a work item
type WorkStatus string

const (
	WorkStatusDraft     WorkStatus = "Draft"
	WorkStatusPublished WorkStatus = "Published"
	WorkStatusCompleted WorkStatus = "Completed"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusPublished TaskStatus = "Published"
	TaskStatusTracked   TaskStatus = "Tracked"
	TaskStatusCompleted TaskStatus = "Completed"
)

// Statuses reported by the remote task-list provider
const (
	RemoteStatusNeedsAction = "needsAction"
	RemoteStatusCompleted   = "completed"
)

var workStatusAliases = map[string]WorkStatus{
	"draft":       WorkStatusDraft,
	"pending":     WorkStatusDraft,
	"published":   WorkStatusPublished,
	"active":      WorkStatusPublished,
	"in_progress": WorkStatusPublished,
	"completed":   WorkStatusCompleted,
	"done":        WorkStatusCompleted,
}

var taskStatusAliases = map[string]TaskStatus{
	"pending":      TaskStatusPending,
	"draft":        TaskStatusPending,
	"published":    TaskStatusPublished,
	"needsaction":  TaskStatusPublished,
	"needs_action": TaskStatusPublished,
	"active":       TaskStatusPublished,
	"tracked":      TaskStatusTracked,
	"in_progress":  TaskStatusTracked,
	"completed":    TaskStatusCompleted,
	"done":         TaskStatusCompleted,
}

// ParseWorkStatus normalizes free-text input. Unknown values map to Draft.
func ParseWorkStatus(value string) WorkStatus {
	if s, ok := workStatusAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}
	return WorkStatusDraft
}

// ParseTaskStatus normalizes free-text input. Unknown values map to Pending.
func ParseTaskStatus(value string) TaskStatus {
	if s, ok := taskStatusAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}
	return TaskStatusPending
}

var workTransitions = map[WorkStatus][]WorkStatus{
	WorkStatusDraft:     {WorkStatusPublished},
	WorkStatusPublished: {WorkStatusCompleted, WorkStatusDraft},
	WorkStatusCompleted: {WorkStatusDraft},
}

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusPublished},
	TaskStatusPublished: {TaskStatusTracked},
	TaskStatusTracked:   {TaskStatusPublished},
	TaskStatusCompleted: {TaskStatusPublished},
}

// CanTransitionWork reports whether a work item may move from one status to another
func CanTransitionWork(from, to WorkStatus) bool {
	if from == to {
		return true
	}
	for _, next := range workTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionTask reports whether a task may move from one status to another.
// Completing is always allowed.
func CanTransitionTask(from, to TaskStatus) bool {
	if from == to || to == TaskStatusCompleted {
		return true
	}
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RemoteStatus collapses the local status onto the provider's two values.
// Tracked and Published are indistinguishable remotely.
func (s TaskStatus) RemoteStatus() string {
	if s == TaskStatusCompleted {
		return RemoteStatusCompleted
	}
	return RemoteStatusNeedsAction
}

// TaskStatusFromRemote maps a provider status back to a local one
func TaskStatusFromRemote(remote string) TaskStatus {
	if remote == RemoteStatusCompleted {
		return TaskStatusCompleted
	}
	return TaskStatusPublished
}

// IsCompleted reports whether the status is terminal
func (s TaskStatus) IsCompleted() bool {
	return s == TaskStatusCompleted
}

// Priority represents task priority level
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority defaults to Medium for anything unrecognized
func ParsePriority(p string) Priority {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// DueSource tags why a due date changed
type DueSource string

const (
	SourceManual        DueSource = "manual"
	SourceSlack         DueSource = "slack"
	SourceSync          DueSource = "sync"
	SourceSnooze        DueSource = "snooze"
	SourceAuto          DueSource = "auto"
	SourceBulk          DueSource = "bulk"
	SourceUserConfirmed DueSource = "user_confirmed"
	SourceReschedule    DueSource = "reschedule"
)

// ParseDueSource accepts the known tags, defaulting an empty value to manual
func ParseDueSource(s string) (DueSource, bool) {
	switch src := DueSource(s); src {
	case "":
		return SourceManual, true
	case SourceManual, SourceSlack, SourceSync, SourceSnooze, SourceAuto,
		SourceBulk, SourceUserConfirmed, SourceReschedule:
		return src, true
	default:
		return "", false
	}
}
