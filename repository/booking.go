package repository

import (
	"context"

	"chat-service/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepo struct {
	db *gorm.DB
}

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *BookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

// ListBetween returns the bookings linking a and b in either role, newest
// first.
func (r *BookingRepo) ListBetween(ctx context.Context, a, b string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("(customer_id = ? AND provider_id = ?) OR (customer_id = ? AND provider_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
