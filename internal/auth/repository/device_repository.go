package repository

import (
	"context"
	"time"

	authdomain "taskflow-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRepository stores push notification device tokens
type DeviceTokenRepository interface {
	SaveToken(ctx context.Context, subject, token, deviceInfo string) error
	ListTokens(ctx context.Context) ([]authdomain.DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
}

type deviceTokenRepository struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// AutoMigrate creates the device token table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&authdomain.DeviceToken{})
}

// SaveToken saves or updates a device token (atomic upsert)
func (r *deviceTokenRepository) SaveToken(ctx context.Context, subject, token, deviceInfo string) error {
	now := time.Now().UTC()
	deviceToken := &authdomain.DeviceToken{
		ID:         uuid.New().String(),
		Subject:    subject,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "device_info", "updated_at"}),
	}).Create(deviceToken).Error
}

// ListTokens returns every registered device, oldest first
func (r *deviceTokenRepository) ListTokens(ctx context.Context) ([]authdomain.DeviceToken, error) {
	var tokens []authdomain.DeviceToken
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *deviceTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&authdomain.DeviceToken{}).Error
}
