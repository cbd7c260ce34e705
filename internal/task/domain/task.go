package domain

import "time"

// Work is a top-level unit of effort composed of ordered tasks
type Work struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	Title          string     `json:"title" gorm:"not null"`
	Description    string     `json:"description,omitempty"`
	Status         WorkStatus `json:"status" gorm:"index;default:Draft"`
	CompletionHint *string    `json:"completion_hint,omitempty"` // "this week", "by Friday"
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Tasks          []*Task    `json:"tasks,omitempty" gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE"`
}

// Task is an individual actionable item belonging to exactly one work
type Task struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	WorkID      string     `json:"work_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	OrderIndex  int        `json:"order_index" gorm:"default:0"`
	Priority    Priority   `json:"priority" gorm:"default:Medium"`
	Status      TaskStatus `json:"status" gorm:"index;default:Pending"`
	DueDate     *time.Time `json:"due_date,omitempty" gorm:"index"`
	SnoozeCount int        `json:"snooze_count" gorm:"default:0"`
	RemoteID    *string    `json:"remote_id,omitempty" gorm:"index"` // Mirror entry on the remote task list
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasMirror reports whether a remote task-list entry exists for the task
func (t *Task) HasMirror() bool {
	return t.RemoteID != nil && *t.RemoteID != ""
}

// MirrorID returns the remote id or an empty string
func (t *Task) MirrorID() string {
	if t.RemoteID == nil {
		return ""
	}
	return *t.RemoteID
}

// RemoteTask is the provider's view of a mirrored task
type RemoteTask struct {
	ID     string
	Title  string
	Notes  string
	Status string
	Due    *time.Time
	// DueDateOnly is set when the provider discards the time of day
	DueDateOnly bool
}

// IsCompleted reports whether the provider considers the entry done
func (r *RemoteTask) IsCompleted() bool {
	return r.Status == RemoteStatusCompleted
}

// RemoteUpdate lists the fields to patch on a mirror. Nil fields are left alone.
type RemoteUpdate struct {
	Title  *string
	Notes  *string
	Due    *time.Time
	Status *TaskStatus
}

// DefaultDueDate returns tomorrow at 08:00 UTC relative to now
func DefaultDueDate(now time.Time) time.Time {
	now = now.UTC()
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 8, 0, 0, 0, time.UTC)
}
