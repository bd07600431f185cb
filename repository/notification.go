package repository

import (
	"context"

	"chat-service/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) ListPage(ctx context.Context, userID string, page Page) ([]model.Notification, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Notification{}).Where("recipient_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []model.Notification
	err := db.Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationRepo) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	var out []model.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND read = ?", userID, false).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteAll removes every notification of userID. Acknowledging deletes
// rather than flipping the read flag.
func (r *NotificationRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("recipient_id = ?", userID).Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
