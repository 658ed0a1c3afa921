package notification

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateLog(ctx context.Context, log *NotificationLog) error
	ListLogsByUser(ctx context.Context, userID uint, limit int) ([]NotificationLog, error)
	Handled(ctx context.Context, eventID string) (bool, error)

	CreateInApp(ctx context.Context, n *InAppNotification) error
	ListInApp(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]InAppNotification, error)
	MarkInAppRead(ctx context.Context, id, userID uint) error
	MarkAllInAppRead(ctx context.Context, userID uint) (int64, error)

	SaveDeviceToken(ctx context.Context, token *DeviceToken) error
	ActiveTokens(ctx context.Context, userID uint) ([]string, error)
	DeactivateTokens(ctx context.Context, tokens []string) error
	RemoveDeviceToken(ctx context.Context, userID uint, token string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateLog(ctx context.Context, log *NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListLogsByUser(ctx context.Context, userID uint, limit int) ([]NotificationLog, error) {
	var out []NotificationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repository) Handled(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&NotificationLog{}).Where("event_id = ?", eventID).Count(&n).Error
	return n > 0, err
}

func (r *repository) CreateInApp(ctx context.Context, n *InAppNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *repository) ListInApp(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]InAppNotification, error) {
	var out []InAppNotification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *repository) MarkInAppRead(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).
		Model(&InAppNotification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) MarkAllInAppRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&InAppNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// SaveDeviceToken creates the token or reactivates an existing one.
func (r *repository) SaveDeviceToken(ctx context.Context, token *DeviceToken) error {
	var existing DeviceToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", token.UserID, token.Token).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		token.IsActive = true
		token.LastUsedAt = time.Now()
		return r.db.WithContext(ctx).Create(token).Error
	}
	if err != nil {
		return err
	}

	existing.IsActive = true
	existing.LastUsedAt = time.Now()
	existing.DeviceType = token.DeviceType
	existing.DeviceName = token.DeviceName
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*token = existing
	return nil
}

func (r *repository) ActiveTokens(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&DeviceToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("token", &tokens).Error
	return tokens, err
}

// DeactivateTokens disables tokens FCM reported as unregistered.
func (r *repository) DeactivateTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&DeviceToken{}).
		Where("token IN ?", tokens).
		Update("is_active", false).Error
}

func (r *repository) RemoveDeviceToken(ctx context.Context, userID uint, token string) error {
	return r.db.WithContext(ctx).
		Model(&DeviceToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Update("is_active", false).Error
}
