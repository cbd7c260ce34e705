package repository

import (
	"context"
	"errors"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// scheduleOrder sorts nulls first portably (postgres defaults to nulls last)
const scheduleOrder = "CASE WHEN due_date IS NULL THEN 0 ELSE 1 END, due_date ASC, created_at ASC, order_index ASC"

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	task.DueDate = utcPtr(task.DueDate)
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) FindByRemoteID(ctx context.Context, remoteID string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("remote_id = ?", remoteID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task

	query := r.db.WithContext(ctx).Model(&domain.Task{})
	if filter.WorkID != "" {
		query = query.Where("work_id = ?", filter.WorkID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExcludeCompleted {
		query = query.Where("status <> ?", domain.TaskStatusCompleted)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ?", filter.DueBefore.UTC())
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date >= ?", filter.DueAfter.UTC())
	}
	if filter.HasRemote {
		query = query.Where("remote_id IS NOT NULL AND remote_id <> ''")
	}

	err := query.Order(scheduleOrder).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	task.DueDate = utcPtr(task.DueDate)
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *gormTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	return r.updateFields(ctx, id, map[string]interface{}{"status": status})
}

func (r *gormTaskRepository) UpdateDueDate(ctx context.Context, id string, due *time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{"due_date": utcPtr(due)})
}

func (r *gormTaskRepository) UpdateRemoteID(ctx context.Context, id string, remoteID *string) error {
	return r.updateFields(ctx, id, map[string]interface{}{"remote_id": remoteID})
}

func (r *gormTaskRepository) ClaimRemoteID(ctx context.Context, id string, expected *string, remoteID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.Task{})
	if expected == nil || *expected == "" {
		query = query.Where("id = ? AND (remote_id IS NULL OR remote_id = '')", id)
	} else {
		query = query.Where("id = ? AND remote_id = ?", id, *expected)
	}
	res := query.Updates(map[string]interface{}{
		"remote_id":  remoteID,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormTaskRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND status <> ?", id, domain.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":     domain.TaskStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormTaskRepository) IncrementSnooze(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"snooze_count": gorm.Expr("snooze_count + ?", 1),
	})
}

func (r *gormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id).Error
}

func (r *gormTaskRepository) updateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
