package socketio

import (
	"context"
	"time"

	"chat-service/logger"
	"chat-service/session"

	"github.com/zishang520/socket.io/v2/socket"
)

// Registry is a session.Registry backed by socket.io rooms. Presence queries
// reach other nodes through the server's adapter.
type Registry struct {
	server  *socket.Server
	timeout time.Duration
	log     *logger.Logger
}

func NewRegistry(server *socket.Server, timeout time.Duration, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{server: server, timeout: timeout, log: log}
}

// IsUserOnline reports false when the presence query does not answer in time.
func (r *Registry) IsUserOnline(ctx context.Context, userID string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	found := make(chan bool, 1)
	r.server.In(socket.Room(session.UserRoom(userID))).FetchSockets()(func(sockets []*socket.RemoteSocket, err error) {
		select {
		case found <- err == nil && len(sockets) > 0:
		default:
		}
	})

	select {
	case online := <-found:
		return online
	case <-ctx.Done():
		r.log.Warn("presence query timed out", "user_id", userID)
		return false
	}
}

func (r *Registry) BroadcastToUser(userID, event string, payload any) {
	r.BroadcastToRoom(session.UserRoom(userID), event, payload)
}

func (r *Registry) BroadcastToRoom(room, event string, payload any) {
	if err := r.server.To(socket.Room(room)).Emit(event, payload); err != nil {
		r.log.Debug("room emit failed", "room", room, "event", event, "error", err)
	}
}
