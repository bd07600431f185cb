package model

import "time"

type Booking struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CustomerID string    `gorm:"size:36;index" json:"customerId"`
	ProviderID string    `gorm:"size:36;index" json:"providerId"`
	Status     string    `gorm:"size:32" json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
