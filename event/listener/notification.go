// Package listener handles events consumed from the broker.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-service/event"
	"chat-service/logger"
	"chat-service/model"
)

const (
	ActionNotify       = "notify"
	ActionNotifyAdmins = "notify-admins"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidEvent  = errors.New("invalid event")
)

type Notifier interface {
	Notify(ctx context.Context, userID, title, message, kind, link string) (*model.Notification, error)
	NotifyAdmins(ctx context.Context, title, message, kind, link string) ([]model.Notification, error)
}

// NotificationEvent is the body of notify and notify-admins events.
type NotificationEvent struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Link    string `json:"link"`
}

type Notifications struct {
	relay   Notifier
	timeout time.Duration
	log     *logger.Logger
}

func NewNotifications(relay Notifier, timeout time.Duration, log *logger.Logger) *Notifications {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifications{relay: relay, timeout: timeout, log: log}
}

// Run handles events from in until ctx is done or in is closed.
func (l *Notifications) Run(ctx context.Context, in <-chan event.EventChannelData) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}
			if err := l.Handle(ctx, e); err != nil {
				l.log.Error("notification event", "action", e.Action, "error", err)
			}
		}
	}
}

func (l *Notifications) Handle(ctx context.Context, e event.EventChannelData) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var body NotificationEvent
	if err := json.Unmarshal(e.Data, &body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Message) == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidEvent)
	}

	switch e.Action {
	case ActionNotify:
		if body.UserID == "" {
			return fmt.Errorf("%w: userId is required", ErrInvalidEvent)
		}
		_, err := l.relay.Notify(ctx, body.UserID, body.Title, body.Message, body.Type, body.Link)
		return err
	case ActionNotifyAdmins:
		_, err := l.relay.NotifyAdmins(ctx, body.Title, body.Message, body.Type, body.Link)
		return err
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, e.Action)
}
