package notification

import (
	"context"
	"fmt"
	"time"

	"chat-service/logger"
	"chat-service/metrics"
	"chat-service/model"
	"chat-service/repository"
	"chat-service/session"

	"github.com/google/uuid"
)

const (
	EventNotification = "notification"
	EventList         = "user-notifications"
	EventUnread       = "user-unread-notifications"
	EventAcknowledged = "read-notifications"

	defaultPageSize = 10
	ackMessage      = "Notifications marked as read successfully."
)

type Page struct {
	PageNo         int                  `json:"pageNo"`
	RecordsPerPage int                  `json:"recordsPerPage"`
	TotalRecords   int64                `json:"totalRecords"`
	Notifications  []model.Notification `json:"notifications"`
}

// AdminAlert is the admin room copy of a notification. It carries no row id
// or recipient since every admin holds a row of their own.
type AdminAlert struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Relay stores notifications and pushes them to live sessions.
type Relay struct {
	repo     repository.NotificationRepository
	users    repository.UserRepository
	registry session.Registry
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewRelay(repo repository.NotificationRepository, users repository.UserRepository, registry session.Registry, log *logger.Logger, m *metrics.Metrics) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Relay{repo: repo, users: users, registry: registry, log: log, metrics: m, now: time.Now}
}

// Notify persists a notification for userID and emits it when the user is
// online. The stored row is returned either way.
func (r *Relay) Notify(ctx context.Context, userID, title, message, kind, link string) (*model.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("notify: recipient is required")
	}
	n := &model.Notification{
		ID:          uuid.NewString(),
		RecipientID: userID,
		Title:       title,
		Message:     message,
		Type:        kind,
		Link:        link,
		CreatedAt:   r.now(),
	}
	if err := r.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	if r.registry.IsUserOnline(ctx, userID) {
		r.registry.BroadcastToUser(userID, EventNotification, n)
		r.metrics.Notifications.WithLabelValues("live").Inc()
	} else {
		r.metrics.Notifications.WithLabelValues("stored").Inc()
	}
	return n, nil
}

// NotifyAdmins stores one notification per primary admin and broadcasts a
// single recipient-neutral alert to the admin room.
func (r *Relay) NotifyAdmins(ctx context.Context, title, message, kind, link string) ([]model.Notification, error) {
	admins, err := r.users.FindByAdminRole(ctx, model.AdminRolePrimary)
	if err != nil {
		return nil, fmt.Errorf("find admins: %w", err)
	}
	now := r.now()
	out := make([]model.Notification, 0, len(admins))
	for _, admin := range admins {
		n := model.Notification{
			ID:          uuid.NewString(),
			RecipientID: admin.ID,
			Title:       title,
			Message:     message,
			Type:        kind,
			Link:        link,
			CreatedAt:   now,
		}
		if err := r.repo.Create(ctx, &n); err != nil {
			return out, fmt.Errorf("store admin notification: %w", err)
		}
		r.metrics.Notifications.WithLabelValues("stored").Inc()
		out = append(out, n)
	}
	if len(out) > 0 {
		r.registry.BroadcastToRoom(session.AdminRoom, EventNotification, AdminAlert{
			Title:     title,
			Message:   message,
			Type:      kind,
			Link:      link,
			CreatedAt: now,
		})
	}
	return out, nil
}

func (r *Relay) ListPage(ctx context.Context, userID string, page, pageSize int) (*Page, error) {
	p := repository.NewPage(page, pageSize, defaultPageSize)
	items, total, err := r.repo.ListPage(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &Page{PageNo: p.Number, RecordsPerPage: p.Size, TotalRecords: total, Notifications: items}, nil
}

func (r *Relay) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	items, err := r.repo.ListUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return items, nil
}

// AcknowledgeAll removes every notification of userID.
func (r *Relay) AcknowledgeAll(ctx context.Context, userID string) (*Ack, error) {
	removed, err := r.repo.DeleteAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acknowledge notifications: %w", err)
	}
	r.log.Debug("notifications acknowledged", "user_id", userID, "removed", removed)
	return &Ack{Success: true, Message: ackMessage}, nil
}
