package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-service/controller"
	"chat-service/database"
	"chat-service/model"
	"chat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-access-key"

type envelope struct {
	Status  string          `json:"status"`
	Message any             `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRestApp(t *testing.T, h *harness) *fiber.App {
	t.Helper()
	enforcer, err := database.Casbin(h.db, "../config/restful_rbac_model.conf")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(h.metrics.Sessions)

	app := fiber.New(fiber.Config{StrictRouting: true})
	Rest(app, RestDeps{
		JWTKey:        testKey,
		Enforcer:      enforcer,
		Users:         h.users,
		Gatherer:      reg,
		Health:        controller.NewHealth(h.db, nil),
		Notifications: controller.NewNotification(h.relay, nil),
		User:          controller.NewUser(h.chats, nil),
	})
	return app
}

func token(t *testing.T, userID string, otp bool) string {
	t.Helper()
	tok, err := utils.GenerateToken(userID, otp, testKey, time.Hour)
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, app *fiber.App, method, path, tok string, body any) (int, envelope, string) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, string(raw)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	app := newRestApp(t, h)

	status, env, _ := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	status, _, body := call(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "chat_sessions_connected")
}

func TestNotificationsRequireVerifiedToken(t *testing.T) {
	h := newHarness(t)
	h.user("alice")
	app := newRestApp(t, h)

	status, _, _ := call(t, app, http.MethodGet, "/v1/notifications", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env, _ := call(t, app, http.MethodGet, "/v1/notifications", token(t, "alice", true), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "2FA required", env.Message)
}

func TestNotificationsPullAPI(t *testing.T) {
	h := newHarness(t)
	h.user("alice")
	app := newRestApp(t, h)
	ctx := context.Background()

	_, err := h.relay.Notify(ctx, "alice", "Booking", "Your booking was confirmed", "booking", "")
	require.NoError(t, err)
	_, err = h.relay.Notify(ctx, "alice", "Message", "You have a new message", "message", "")
	require.NoError(t, err)
	tok := token(t, "alice", false)

	status, env, _ := call(t, app, http.MethodGet, "/v1/notifications?page=1&pageSize=1", tok, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		TotalRecords  int64                `json:"totalRecords"`
		Notifications []model.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(2), page.TotalRecords)
	assert.Len(t, page.Notifications, 1)

	status, env, _ = call(t, app, http.MethodGet, "/v1/notifications/unread", tok, nil)
	require.Equal(t, http.StatusOK, status)
	var unread []model.Notification
	require.NoError(t, json.Unmarshal(env.Data, &unread))
	assert.Len(t, unread, 2)

	status, env, _ = call(t, app, http.MethodDelete, "/v1/notifications", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Notifications marked as read successfully.", env.Message)

	unread, err = h.relay.ListUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestUserStatus(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice")
	h.user("bob")
	h.connect(alice)
	app := newRestApp(t, h)

	status, env, _ := call(t, app, http.MethodGet, "/v1/users/alice/status", token(t, "bob", false), nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"isUserOnline":true}`, string(env.Data))

	status, _, _ = call(t, app, http.MethodGet, "/v1/users/ghost/status", token(t, "bob", false), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminNotificationsEnforcePolicy(t *testing.T) {
	h := newHarness(t)
	h.user("root", func(u *model.User) {
		u.Role = model.RoleAdmin
		u.AdminRole = model.AdminRolePrimary
	})
	h.user("helper", func(u *model.User) {
		u.Role = model.RoleAdmin
		u.AdminRole = model.AdminRoleSub
	})
	h.user("carol")
	app := newRestApp(t, h)

	body := map[string]any{"userId": "carol", "title": "Maintenance", "message": "Tonight at 22:00"}

	status, _, _ := call(t, app, http.MethodPost, "/v1/admin/notifications", token(t, "helper", false), body)
	assert.Equal(t, http.StatusForbidden, status)
	status, _, _ = call(t, app, http.MethodPost, "/v1/admin/notifications", token(t, "carol", false), body)
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = call(t, app, http.MethodPost, "/v1/admin/notifications", token(t, "root", false), body)
	assert.Equal(t, http.StatusCreated, status)

	status, env, _ := call(t, app, http.MethodPost, "/v1/admin/notifications", token(t, "root", false), map[string]any{"title": "Broadcast"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Title and message are required", env.Message)

	unread, err := h.relay.ListUnread(context.Background(), "carol")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Maintenance", unread[0].Title)
}
