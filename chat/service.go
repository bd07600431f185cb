// Package chat resolves chats, fans messages out to participants and keeps
// per-participant delivery, read and reaction state consistent.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"chat-service/logger"
	"chat-service/metrics"
	"chat-service/model"
	"chat-service/push"
	"chat-service/repository"
	"chat-service/session"

	"golang.org/x/sync/singleflight"
)

// Notifier persists a notification and pushes it live when possible.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, kind, link string) (*model.Notification, error)
}

// Publisher hands domain events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, queue, action string, body []byte) error
}

type Deps struct {
	Chats     repository.ChatRepository
	Messages  repository.MessageRepository
	Reactions repository.ReactionRepository
	Users     repository.UserRepository
	Bookings  repository.BookingRepository
	Registry  session.Registry
	Notifier  Notifier

	// Optional.
	Push        push.Sender
	Events      Publisher
	EventsQueue string
	Log         *logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time

	PrimaryAdminID string
	DefaultAvatar  string
}

type Service struct {
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	reactions repository.ReactionRepository
	users     repository.UserRepository
	bookings  repository.BookingRepository
	registry  session.Registry
	notifier  Notifier

	push        push.Sender
	events      Publisher
	eventsQueue string
	log         *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	primaryAdminID string
	defaultAvatar  string

	resolving singleflight.Group
}

func NewService(d Deps) *Service {
	s := &Service{
		chats:          d.Chats,
		messages:       d.Messages,
		reactions:      d.Reactions,
		users:          d.Users,
		bookings:       d.Bookings,
		registry:       d.Registry,
		notifier:       d.Notifier,
		push:           d.Push,
		events:         d.Events,
		eventsQueue:    d.EventsQueue,
		log:            d.Log,
		metrics:        d.Metrics,
		now:            d.Now,
		primaryAdminID: d.PrimaryAdminID,
		defaultAvatar:  d.DefaultAvatar,
	}
	if s.push == nil {
		s.push = push.Noop{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) emit(userID, event string, payload any) {
	s.metrics.Emits.WithLabelValues(event).Inc()
	s.registry.BroadcastToUser(userID, event, payload)
}

func (s *Service) publish(ctx context.Context, action string, payload any) {
	if s.events == nil || s.eventsQueue == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal chat event", "action", action, "error", err)
		return
	}
	if err := s.events.Publish(ctx, s.eventsQueue, action, body); err != nil {
		s.log.Warn("publish chat event", "action", action, "error", err)
	}
}

// userOf returns the stored user or a stub carrying only the id.
func (s *Service) userOf(users map[string]model.User, id string) *model.User {
	if u, ok := users[id]; ok {
		return &u
	}
	return &model.User{ID: id}
}
