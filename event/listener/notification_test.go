package listener

import (
	"context"
	"sync"
	"testing"
	"time"

	"chat-service/event"
	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	action string
	body   NotificationEvent
}

type fakeRelay struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeRelay) Notify(_ context.Context, userID, title, message, kind, link string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{ActionNotify, NotificationEvent{userID, title, message, kind, link}})
	return &model.Notification{RecipientID: userID, Title: title}, nil
}

func (f *fakeRelay) NotifyAdmins(_ context.Context, title, message, kind, link string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{ActionNotifyAdmins, NotificationEvent{"", title, message, kind, link}})
	return nil, nil
}

func (f *fakeRelay) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestHandleNotify(t *testing.T) {
	relay := &fakeRelay{}
	l := NewNotifications(relay, time.Second, nil)

	err := l.Handle(context.Background(), event.EventChannelData{
		Action: ActionNotify,
		Data:   []byte(`{"userId":"u1","title":"Booking confirmed","message":"See you soon","type":"booking","link":"/bookings/7"}`),
	})
	require.NoError(t, err)

	require.Len(t, relay.Calls(), 1)
	assert.Equal(t, call{ActionNotify, NotificationEvent{"u1", "Booking confirmed", "See you soon", "booking", "/bookings/7"}}, relay.Calls()[0])
}

func TestHandleNotifyAdmins(t *testing.T) {
	relay := &fakeRelay{}
	l := NewNotifications(relay, 0, nil)

	err := l.Handle(context.Background(), event.EventChannelData{
		Action: ActionNotifyAdmins,
		Data:   []byte(`{"title":"New provider","message":"Review pending"}`),
	})
	require.NoError(t, err)
	require.Len(t, relay.Calls(), 1)
	assert.Equal(t, ActionNotifyAdmins, relay.Calls()[0].action)
}

func TestHandleRejects(t *testing.T) {
	relay := &fakeRelay{}
	l := NewNotifications(relay, time.Second, nil)

	for name, tc := range map[string]struct {
		e    event.EventChannelData
		want error
	}{
		"unknown action":  {event.EventChannelData{Action: "explode", Data: []byte(`{"title":"t","message":"m"}`)}, ErrUnknownAction},
		"broken json":     {event.EventChannelData{Action: ActionNotify, Data: []byte(`{`)}, ErrInvalidEvent},
		"missing title":   {event.EventChannelData{Action: ActionNotify, Data: []byte(`{"userId":"u1","message":"m"}`)}, ErrInvalidEvent},
		"missing user id": {event.EventChannelData{Action: ActionNotify, Data: []byte(`{"title":"t","message":"m"}`)}, ErrInvalidEvent},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, l.Handle(context.Background(), tc.e), tc.want)
		})
	}
	assert.Empty(t, relay.Calls())
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	relay := &fakeRelay{}
	l := NewNotifications(relay, time.Second, nil)
	in := make(chan event.EventChannelData, 2)
	in <- event.EventChannelData{Action: ActionNotify, Data: []byte(`{"userId":"u1","title":"t","message":"m"}`)}
	in <- event.EventChannelData{Action: ActionNotify, Data: []byte(`not json`)}
	close(in)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Len(t, relay.Calls(), 1)
}
