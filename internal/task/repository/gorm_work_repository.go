package repository

import (
	"context"
	"errors"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormWorkRepository implements WorkRepository using GORM
type gormWorkRepository struct {
	db *gorm.DB
}

// NewGormWorkRepository creates a new GORM-based WorkRepository
func NewGormWorkRepository(db *gorm.DB) WorkRepository {
	return &gormWorkRepository{db: db}
}

// AutoMigrate creates or updates the work and task tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Work{}, &domain.Task{})
}

func (r *gormWorkRepository) Create(ctx context.Context, work *domain.Work) error {
	if work.ID == "" {
		work.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	work.CreatedAt = now
	work.UpdatedAt = now
	if work.Status == "" {
		work.Status = domain.WorkStatusDraft
	}

	// Stagger creation timestamps so creation order survives identical clocks
	for i, task := range work.Tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		task.WorkID = work.ID
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		task.UpdatedAt = now
		if task.Status == "" {
			task.Status = domain.TaskStatusPending
		}
		if task.Priority == "" {
			task.Priority = domain.PriorityMedium
		}
		task.DueDate = utcPtr(task.DueDate)
	}

	return r.db.WithContext(ctx).Create(work).Error
}

func (r *gormWorkRepository) FindByID(ctx context.Context, id string, withTasks bool) (*domain.Work, error) {
	var work domain.Work
	query := r.db.WithContext(ctx)
	if withTasks {
		query = query.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order(scheduleOrder)
		})
	}
	err := query.Where("id = ?", id).First(&work).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &work, nil
}

func (r *gormWorkRepository) List(ctx context.Context, status *domain.WorkStatus) ([]*domain.Work, error) {
	var works []*domain.Work
	query := r.db.WithContext(ctx).Model(&domain.Work{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("created_at DESC").Find(&works).Error
	return works, err
}

func (r *gormWorkRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Work{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWorkRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Work{}).
		Where("id = ? AND status <> ?", id, domain.WorkStatusCompleted).
		Updates(map[string]interface{}{
			"status":     domain.WorkStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes tasks explicitly so the cascade holds even where the
// database does not enforce foreign keys (sqlite without the pragma)
func (r *gormWorkRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Task{}, "work_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Work{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
