// Package repository is the persistence layer. Per-participant settings rows
// are only ever written with statements scoped to one (parent, user) pair so
// concurrent writers for different users never overwrite each other.
package repository

import (
	"context"
	"errors"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

const maxPageSize = 100

type Page struct {
	Number int
	Size   int
}

// NewPage clamps page to >= 1 and size to 1..100, substituting def for a
// non-positive size.
func NewPage(number, size, def int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = def
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
	FindByAdminRole(ctx context.Context, adminRole string) ([]model.User, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

type BookingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) error
	ListBetween(ctx context.Context, a, b string) ([]model.Booking, error)
}

type ChatRepository interface {
	FindByID(ctx context.Context, id string) (*model.Chat, error)
	FindByPairKey(ctx context.Context, key string) (*model.Chat, error)
	// CreatePair inserts the chat and its participants unless a chat with the
	// same pair key exists; created reports which happened.
	CreatePair(ctx context.Context, chat *model.Chat) (created bool, err error)
	ListVisible(ctx context.Context, userID, chatType string, page Page) ([]model.Chat, int64, error)
	ListWithUnread(ctx context.Context, userID string, page Page) ([]model.Chat, int64, error)
	SoftDelete(ctx context.Context, chatID, userID string, at time.Time) error
}

type MessageRepository interface {
	// Create persists the message with its settings, moves the chat's last
	// message pointer and clears the sender's deleted flag in one transaction.
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id string) (*model.Message, error)
	ListForViewer(ctx context.Context, chatID, viewerID string, page Page) ([]model.Message, int64, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) error
	CountUnread(ctx context.Context, chatID, userID string) (int64, error)
	CountUnreadByChat(ctx context.Context, userID string, chatIDs []string) (map[string]int64, error)
	UndeliveredChatIDs(ctx context.Context, userID string) ([]string, error)
	MarkDelivered(ctx context.Context, userID string, chatIDs []string, at time.Time) (int64, error)
	MarkRead(ctx context.Context, chatID, userID string, at time.Time) (int64, error)
}

type ReactionDetail struct {
	UserID         string
	Emoji          string
	FullName       string
	FirstName      string
	LastName       string
	ProfilePicture string
}

type ReactionRepository interface {
	// Upsert and Delete recompute the message's reaction counts in the same
	// transaction and return them.
	Upsert(ctx context.Context, reaction *model.Reaction) (map[string]int, error)
	Delete(ctx context.Context, messageID, userID, emoji string) (map[string]int, error)
	Counts(ctx context.Context, messageID string) (map[string]int, error)
	ListForMessage(ctx context.Context, messageID string) ([]ReactionDetail, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListPage(ctx context.Context, userID string, page Page) ([]model.Notification, int64, error)
	ListUnread(ctx context.Context, userID string) ([]model.Notification, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
