package chat_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-service/chat"
	"chat-service/database"
	"chat-service/model"
	"chat-service/notification"
	"chat-service/push"
	"chat-service/repository"
	"chat-service/session"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPush struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (p *recordingPush) Send(_ context.Context, n push.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	svc      *chat.Service
	registry *session.Local
	push     *recordingPush
	bookings *repository.BookingRepo
	conns    map[string]*session.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	registry := session.NewLocal()
	users := repository.NewUserRepo(db)
	bookings := repository.NewBookingRepo(db)
	clock := &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	pusher := &recordingPush{}

	svc := chat.NewService(chat.Deps{
		Chats:         repository.NewChatRepo(db),
		Messages:      repository.NewMessageRepo(db),
		Reactions:     repository.NewReactionRepo(db),
		Users:         users,
		Bookings:      bookings,
		Registry:      registry,
		Notifier:      notification.NewRelay(repository.NewNotificationRepo(db), users, registry, nil, nil),
		Push:          pusher,
		Now:           clock.Now,
		DefaultAvatar: "https://cdn.example.com/avatar.png",
	})

	return &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		svc:      svc,
		registry: registry,
		push:     pusher,
		bookings: bookings,
		conns:    map[string]*session.Recorder{},
	}
}

func (f *fixture) user(id, name string, mutate ...func(*model.User)) model.User {
	f.t.Helper()
	u := model.User{ID: id, FullName: name}
	for _, m := range mutate {
		m(&u)
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

// connect opens a recorded connection for userID.
func (f *fixture) connect(userID string) *session.Recorder {
	conn := session.NewRecorder(fmt.Sprintf("%s-%d", userID, len(f.conns)))
	f.registry.Join(conn, session.UserRoom(userID))
	f.conns[userID] = conn
	return conn
}

func (f *fixture) disconnect(userID string) {
	if conn, ok := f.conns[userID]; ok {
		f.registry.Leave(conn)
		delete(f.conns, userID)
	}
}

func (f *fixture) send(senderID string, req chat.SendMessageRequest) *chat.SendResult {
	f.t.Helper()
	res, err := f.svc.SendMessage(f.ctx, senderID, req)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) setting(messageID, userID string) *model.MessageUserSetting {
	f.t.Helper()
	var rows []model.MessageUserSetting
	require.NoError(f.t, f.db.Where("message_id = ? AND user_id = ?", messageID, userID).Find(&rows).Error)
	require.LessOrEqual(f.t, len(rows), 1)
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

func (f *fixture) count(table interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(table)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

// assertDeliveryInvariant checks read_at implies delivered_at on every row.
func (f *fixture) assertDeliveryInvariant() {
	f.t.Helper()
	require.Zero(f.t, f.count(&model.MessageUserSetting{}, "read_at IS NOT NULL AND delivered_at IS NULL"))
}
