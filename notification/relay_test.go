package notification

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chat-service/database"
	"chat-service/metrics"
	"chat-service/model"
	"chat-service/repository"
	"chat-service/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRelay(t *testing.T) (*Relay, *session.Local, *gorm.DB) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	reg := session.NewLocal()
	relay := NewRelay(repository.NewNotificationRepo(db), repository.NewUserRepo(db), reg, nil, metrics.Discard())
	return relay, reg, db
}

func TestNotifyOnlineUserIsPushedLive(t *testing.T) {
	relay, reg, _ := newTestRelay(t)
	conn := session.NewRecorder("c1")
	reg.Join(conn, session.UserRoom("u1"))

	n, err := relay.Notify(context.Background(), "u1", "New Message", "Alice has sent you a message.", "message", "")
	require.NoError(t, err)

	got := conn.Named(EventNotification)
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].(*model.Notification).ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(relay.metrics.Notifications.WithLabelValues("live")))
}

func TestNotifyOfflineUserIsStored(t *testing.T) {
	relay, _, _ := newTestRelay(t)
	ctx := context.Background()

	_, err := relay.Notify(ctx, "u1", "Booking", "Your booking was confirmed.", "booking", "/bookings/1")
	require.NoError(t, err)

	unread, err := relay.ListUnread(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "/bookings/1", unread[0].Link)

	_, err = relay.Notify(ctx, "", "x", "y", "z", "")
	assert.Error(t, err)
}

func TestListPageNewestFirst(t *testing.T) {
	relay, _, _ := newTestRelay(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	relay.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	for i := 1; i <= 12; i++ {
		_, err := relay.Notify(ctx, "u1", fmt.Sprintf("n%d", i), "", "info", "")
		require.NoError(t, err)
	}

	page, err := relay.ListPage(ctx, "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.TotalRecords)
	assert.Equal(t, 10, page.RecordsPerPage)
	require.Len(t, page.Notifications, 10)
	assert.Equal(t, "n12", page.Notifications[0].Title)

	page, err = relay.ListPage(ctx, "u1", 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "n1", page.Notifications[1].Title)
}

func TestAcknowledgeAllDeletes(t *testing.T) {
	relay, _, db := newTestRelay(t)
	ctx := context.Background()
	_, err := relay.Notify(ctx, "u1", "a", "", "info", "")
	require.NoError(t, err)
	_, err = relay.Notify(ctx, "u2", "b", "", "info", "")
	require.NoError(t, err)

	ack, err := relay.AcknowledgeAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &Ack{Success: true, Message: "Notifications marked as read successfully."}, ack)

	var left []model.Notification
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "u2", left[0].RecipientID)
}

func TestNotifyAdmins(t *testing.T) {
	relay, reg, db := newTestRelay(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&[]model.User{
		{ID: "admin-1", Role: model.RoleAdmin, AdminRole: model.AdminRolePrimary},
		{ID: "admin-2", Role: model.RoleAdmin, AdminRole: model.AdminRolePrimary},
		{ID: "sub-1", Role: model.RoleAdmin, AdminRole: model.AdminRoleSub},
	}).Error)
	room := session.NewRecorder("admin-conn")
	reg.Join(room, session.AdminRoom)

	out, err := relay.NotifyAdmins(ctx, "Report", "A user was reported.", "report", "")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NotEqual(t, out[0].ID, out[1].ID)

	alerts := room.Named(EventNotification)
	require.Len(t, alerts, 1)
	alert, ok := alerts[0].(AdminAlert)
	require.True(t, ok, "admin room gets %T", alerts[0])
	assert.Equal(t, AdminAlert{
		Title:     "Report",
		Message:   "A user was reported.",
		Type:      "report",
		CreatedAt: out[0].CreatedAt,
	}, alert)
	assert.Equal(t, out[0].CreatedAt, out[1].CreatedAt)

	for _, id := range []string{"admin-1", "admin-2"} {
		rows, err := relay.ListUnread(ctx, id)
		require.NoError(t, err)
		require.Len(t, rows, 1, id)
		assert.Equal(t, id, rows[0].RecipientID)
	}

	unread, err := relay.ListUnread(ctx, "sub-1")
	require.NoError(t, err)
	assert.Empty(t, unread)
}
