// Package push hands device notifications to the delivery pipeline. Sending
// is best effort: callers log failures and carry on.
package push

import (
	"context"
)

type Notification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Send(context.Context, Notification) error { return nil }
