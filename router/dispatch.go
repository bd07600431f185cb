package router

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-service/chat"
	"chat-service/logger"
	"chat-service/metrics"
	"chat-service/model"
	"chat-service/notification"
	"chat-service/repository"
	"chat-service/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Client to server events.
const (
	EventFetchUnseenChats      = "fetch-unseen-chats"
	EventFetchUserChats        = "fetch-user-chats"
	EventFetchChatMessages     = "fetch-user-chat-messages"
	EventCheckExistingChat     = "check-user-existingchat"
	EventFetchChatBooking      = "fetch-chat-booking"
	EventGetSingleChat         = "get-user-single-chat"
	EventSendMessage           = "send-message"
	EventDeleteChat            = "delete-chat"
	EventAddReaction           = "add-reaction"
	EventRemoveReaction        = "remove-reaction"
	EventEditMessage           = "edit-message"
	EventMarkAsRead            = "mark-message-as-read"
	EventGetNotifications      = "get-user-notifications"
	EventGetUnreadNotification = "get-user-unread-notifications"
	EventReadNotifications     = "read-user-notifications"
	EventGetActiveStatus       = "get-user-active-status"
)

var ClientEvents = []string{
	EventFetchUnseenChats,
	EventFetchUserChats,
	EventFetchChatMessages,
	EventCheckExistingChat,
	EventFetchChatBooking,
	EventGetSingleChat,
	EventSendMessage,
	EventDeleteChat,
	EventAddReaction,
	EventRemoveReaction,
	EventEditMessage,
	EventMarkAsRead,
	EventGetNotifications,
	EventGetUnreadNotification,
	EventReadNotifications,
	EventGetActiveStatus,
}

var limitedEvents = map[string]bool{
	EventSendMessage:    true,
	EventAddReaction:    true,
	EventRemoveReaction: true,
	EventEditMessage:    true,
}

const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
	outcomeRateLimited = "rate_limited"

	rateLimitedMessage = "Too many requests."
)

var errInvalidPayload = &chat.ProtocolError{Kind: chat.ErrBadRequest, Message: "Invalid payload."}

// RoomPolicy decides which admin rooms a user may join. *casbin.Enforcer
// satisfies it.
type RoomPolicy interface {
	Enforce(rvals ...interface{}) (bool, error)
}

type Options struct {
	Chats         *chat.Service
	Notifications *notification.Relay
	Users         repository.UserRepository
	Policy        RoomPolicy

	Log       *logger.Logger
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	Now       func() time.Time
}

// Dispatcher runs client events for authenticated connections. Replies and
// errors go to the calling connection only.
type Dispatcher struct {
	chats         *chat.Service
	notifications *notification.Relay
	users         repository.UserRepository
	policy        RoomPolicy

	log     *logger.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	timeout time.Duration
	limit   rate.Limit
	burst   int
	now     func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewDispatcher(o Options) *Dispatcher {
	d := &Dispatcher{
		chats:         o.Chats,
		notifications: o.Notifications,
		users:         o.Users,
		policy:        o.Policy,
		log:           o.Log,
		metrics:       o.Metrics,
		tracer:        otel.Tracer("chat-service/router"),
		timeout:       o.Timeout,
		limit:         rate.Limit(o.RateLimit),
		burst:         o.RateBurst,
		now:           o.Now,
		limiters:      make(map[string]*rate.Limiter),
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.metrics == nil {
		d.metrics = metrics.Discard()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.limit <= 0 {
		d.limit = rate.Inf
	}
	if d.burst <= 0 {
		d.burst = 1
	}
	return d
}

// Rooms lists the rooms a connection of who joins: the user room plus the
// admin rooms the policy grants.
func (d *Dispatcher) Rooms(who session.Identity) []string {
	rooms := []string{session.UserRoom(who.UserID)}
	if who.Role != model.RoleAdmin || d.policy == nil {
		return rooms
	}
	for _, room := range []string{session.AdminRoom, session.SubAdminRoom(who.UserID)} {
		ok, err := d.policy.Enforce(who.AdminRole, "room:"+room, "join")
		if err != nil {
			d.log.Error("room policy", "user_id", who.UserID, "room", room, "error", err)
			continue
		}
		if ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Connect runs once the connection has joined its rooms: messages waiting for
// the user are marked delivered.
func (d *Dispatcher) Connect(ctx context.Context, conn session.Conn, who session.Identity) {
	d.metrics.Sessions.Inc()
	d.log.Info("socket connected", "socket_id", conn.ID(), "user_id", who.UserID)

	ctx, cancel := d.eventContext(ctx)
	defer cancel()
	if err := d.chats.FlushUndelivered(ctx, who.UserID); err != nil {
		d.log.Error("flush undelivered", "user_id", who.UserID, "error", err)
	}
}

func (d *Dispatcher) Disconnect(ctx context.Context, conn session.Conn, who session.Identity) {
	d.metrics.Sessions.Dec()
	d.mu.Lock()
	delete(d.limiters, conn.ID())
	d.mu.Unlock()

	ctx, cancel := d.eventContext(ctx)
	defer cancel()
	if err := d.users.TouchLastSeen(ctx, who.UserID, d.now()); err != nil {
		d.log.Warn("stamp last seen", "user_id", who.UserID, "error", err)
	}
	d.log.Info("socket disconnected", "socket_id", conn.ID(), "user_id", who.UserID)
}

// Handle runs one client event and answers on conn.
func (d *Dispatcher) Handle(ctx context.Context, conn session.Conn, who session.Identity, event string, raw json.RawMessage) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "socket "+event, trace.WithAttributes(
		attribute.String("socket.event", event),
		attribute.String("socket.id", conn.ID()),
		attribute.String("user.id", who.UserID),
	))
	defer span.End()

	outcome := d.handle(ctx, conn, who, event, raw)
	if outcome == outcomeFailed {
		span.SetStatus(codes.Error, "event failed")
	}
	span.SetAttributes(attribute.String("socket.outcome", outcome))

	d.metrics.Events.WithLabelValues(event, outcome).Inc()
	d.metrics.EventDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}

func (d *Dispatcher) handle(ctx context.Context, conn session.Conn, who session.Identity, event string, raw json.RawMessage) string {
	if limitedEvents[event] && !d.limiter(conn.ID()).Allow() {
		d.metrics.RateLimited.WithLabelValues(event).Inc()
		d.reply(conn, chat.EventSocketError, chat.Notice{Message: rateLimitedMessage})
		return outcomeRateLimited
	}

	ctx, cancel := d.eventContext(ctx)
	defer cancel()

	replyEvent, payload, err := d.route(ctx, who, event, raw)
	if err != nil {
		return d.fail(conn, who, event, err)
	}
	if replyEvent != "" {
		d.reply(conn, replyEvent, payload)
	}
	return outcomeOK
}

// route returns the caller's reply. Events whose results reach the caller
// through its user room return an empty reply event.
func (d *Dispatcher) route(ctx context.Context, who session.Identity, event string, raw json.RawMessage) (string, any, error) {
	userID := who.UserID
	switch event {
	case EventFetchUnseenChats:
		var req pageRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		page, err := d.chats.ListUnseenChats(ctx, userID, int(req.Page), int(req.PageSize))
		return chat.EventUnseenChats, page, err

	case EventFetchUserChats:
		var req pageRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		page, err := d.chats.ListUserChats(ctx, userID, req.ChatType, int(req.Page), int(req.PageSize))
		return chat.EventUserChats, page, err

	case EventFetchChatMessages:
		var req pageRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		page, err := d.chats.ListChatMessages(ctx, userID, req.ChatID, int(req.Page), int(req.PageSize))
		return chat.EventChatMessages, page, err

	case EventCheckExistingChat:
		var req existingChatRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		existing, err := d.chats.ExistingChat(ctx, userID, req.ReceiverID, req.ChatType)
		return chat.EventExistingChat, existing, err

	case EventFetchChatBooking:
		var req peerRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		bookings, err := d.chats.ChatBookings(ctx, userID, req.ChatID, req.ReceiverID)
		return chat.EventUserBooking, bookings, err

	case EventGetSingleChat:
		var req peerRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		single, err := d.chats.SingleChat(ctx, userID, req.ChatID, req.ReceiverID, req.ChatType)
		return chat.EventSingleChat, single, err

	case EventSendMessage:
		var req chat.SendMessageRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		_, err := d.chats.SendMessage(ctx, userID, req)
		return "", nil, err

	case EventDeleteChat:
		var req chatRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		deleted, err := d.chats.SoftDeleteChat(ctx, userID, req.ChatID)
		return chat.EventChatDeleted, deleted, err

	case EventAddReaction:
		var req reactionRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		_, err := d.chats.AddOrReplaceReaction(ctx, userID, req.MessageID, req.Emoji)
		return "", nil, err

	case EventRemoveReaction:
		var req reactionRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		_, err := d.chats.RemoveReaction(ctx, userID, req.MessageID, req.Emoji)
		return "", nil, err

	case EventEditMessage:
		var req editRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		_, err := d.chats.EditMessage(ctx, userID, req.MessageID, req.Content)
		return "", nil, err

	case EventMarkAsRead:
		var req chatRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		receipt, err := d.chats.MarkRead(ctx, req.ChatID, userID)
		return chat.EventReadResponse, receipt, err

	case EventGetNotifications:
		var req pageRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		page, err := d.notifications.ListPage(ctx, userID, int(req.Page), int(req.PageSize))
		return notification.EventList, page, err

	case EventGetUnreadNotification:
		unread, err := d.notifications.ListUnread(ctx, userID)
		return notification.EventUnread, unread, err

	case EventReadNotifications:
		ack, err := d.notifications.AcknowledgeAll(ctx, userID)
		return notification.EventAcknowledged, ack, err

	case EventGetActiveStatus:
		var req statusRequest
		if err := decode(raw, &req); err != nil {
			return "", nil, err
		}
		status, err := d.chats.ActiveStatus(ctx, req.UserToCheckID)
		return chat.EventActiveStatus, status, err
	}
	return "", nil, &chat.ProtocolError{Kind: chat.ErrBadRequest, Message: "Unknown event."}
}

func (d *Dispatcher) fail(conn session.Conn, who session.Identity, event string, err error) string {
	var protocol *chat.ProtocolError
	switch {
	case errors.Is(err, chat.ErrSelfChat):
		d.reply(conn, chat.EventWithMe, chat.Notice{Message: "chat with me"})
		return outcomeRejected
	case errors.As(err, &protocol):
		d.reply(conn, chat.EventSocketError, chat.Notice{Message: protocol.Message})
		return outcomeRejected
	}

	d.log.Error("socket event failed", "event", event, "user_id", who.UserID, "socket_id", conn.ID(), "error", err)
	d.reply(conn, chat.EventSocketError, chat.Notice{Message: genericMessage(event)})
	return outcomeFailed
}

func (d *Dispatcher) reply(conn session.Conn, event string, payload any) {
	d.metrics.Emits.WithLabelValues(event).Inc()
	if err := conn.Emit(event, payload); err != nil {
		d.log.Debug("reply dropped", "socket_id", conn.ID(), "event", event, "error", err)
	}
}

func (d *Dispatcher) limiter(connID string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[connID]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[connID] = l
	}
	return l
}

func (d *Dispatcher) eventContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func genericMessage(event string) string {
	return "Something went wrong while handling " + event + "."
}

func decode(raw json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

type pageRequest struct {
	Page     number `json:"page"`
	PageSize number `json:"pageSize"`
	ChatType string `json:"chatType"`
	ChatID   string `json:"chatId"`
}

type existingChatRequest struct {
	ReceiverID string `json:"receiverId"`
	ChatType   string `json:"chatType"`
}

type peerRequest struct {
	ChatID     string `json:"chatId"`
	ReceiverID string `json:"receiverId"`
	ChatType   string `json:"chatType"`
}

type chatRequest struct {
	ChatID string `json:"chatId"`
}

type reactionRequest struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type editRequest struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type statusRequest struct {
	UserToCheckID string `json:"userToCheckId"`
}

// number accepts 3 as well as "3".
type number int

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}
