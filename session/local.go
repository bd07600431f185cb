package session

import (
	"context"
	"sync"
)

// Conn is one live client connection.
type Conn interface {
	ID() string
	Emit(event string, payload any) error
}

// Local is an in-process Registry. It only sees connections of this node.
type Local struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

func NewLocal() *Local {
	return &Local{rooms: make(map[string]map[string]Conn)}
}

func (l *Local) Join(conn Conn, rooms ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, room := range rooms {
		members, ok := l.rooms[room]
		if !ok {
			members = make(map[string]Conn)
			l.rooms[room] = members
		}
		members[conn.ID()] = conn
	}
}

// Leave removes conn from every room it joined.
func (l *Local) Leave(conn Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for room, members := range l.rooms {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(l.rooms, room)
		}
	}
}

func (l *Local) IsUserOnline(_ context.Context, userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms[UserRoom(userID)]) > 0
}

func (l *Local) BroadcastToUser(userID, event string, payload any) {
	l.BroadcastToRoom(UserRoom(userID), event, payload)
}

func (l *Local) BroadcastToRoom(room, event string, payload any) {
	l.mu.RLock()
	members := make([]Conn, 0, len(l.rooms[room]))
	for _, c := range l.rooms[room] {
		members = append(members, c)
	}
	l.mu.RUnlock()

	for _, c := range members {
		// dead connections are dropped silently
		_ = c.Emit(event, payload)
	}
}
