package model

import "time"

type Notification struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string    `gorm:"size:36;not null;index:idx_notification_recipient,priority:1" json:"recipient"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `gorm:"size:32" json:"type"`
	Read        bool      `gorm:"not null" json:"read"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `gorm:"index:idx_notification_recipient,priority:2" json:"createdAt"`
}
