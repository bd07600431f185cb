// Package session tracks which connections belong to which user and routes
// server emits to them.
package session

import (
	"context"
)

// Room keys.
const (
	AdminRoom          = "notification_admin"
	SubAdminRoomPrefix = "notification_subAdmin_"
)

func UserRoom(userID string) string {
	return userID
}

func SubAdminRoom(userID string) string {
	return SubAdminRoomPrefix + userID
}

// Registry delivers events to every live connection of a user or room.
// Emits to rooms without connections are dropped.
type Registry interface {
	IsUserOnline(ctx context.Context, userID string) bool
	BroadcastToUser(userID, event string, payload any)
	BroadcastToRoom(room, event string, payload any)
}

// Identity is the authenticated principal attached to a connection.
type Identity struct {
	UserID         string
	Name           string
	ProfilePicture string
	Role           string
	AdminRole      string
}
