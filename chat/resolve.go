package chat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"chat-service/model"
	"chat-service/repository"

	"github.com/google/uuid"
)

// PairKey identifies the chat of an unordered pair of users for a chat type.
func PairKey(chatType, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return chatType + ":" + a + ":" + b
}

type resolved struct {
	chat    *model.Chat
	created bool
	claimed *atomic.Bool
}

// ResolveOrCreateChat returns the chat of type chatType between sender and
// receiver, creating it when missing. created is true for exactly one caller
// per chat even under concurrent calls.
func (s *Service) ResolveOrCreateChat(ctx context.Context, senderID, receiverID, chatType string) (*model.Chat, bool, error) {
	if senderID == receiverID {
		return nil, false, ErrSelfChat
	}
	if chatType == "" {
		return nil, false, badRequest("Chat type is required.")
	}
	key := PairKey(chatType, senderID, receiverID)

	v, err, _ := s.resolving.Do(key, func() (interface{}, error) {
		existing, err := s.chats.FindByPairKey(ctx, key)
		if err == nil {
			return resolved{chat: existing}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find chat: %w", err)
		}

		chat := &model.Chat{
			ID:       uuid.NewString(),
			ChatType: chatType,
			PairKey:  &key,
			Participants: []model.ChatParticipant{
				{UserID: senderID},
				{UserID: receiverID},
			},
		}
		created, err := s.chats.CreatePair(ctx, chat)
		if err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		// Another node may have won the insert; read back the stored row.
		stored, err := s.chats.FindByPairKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reload chat: %w", err)
		}
		return resolved{chat: stored, created: created, claimed: &atomic.Bool{}}, nil
	})
	if err != nil {
		return nil, false, err
	}

	r := v.(resolved)
	chat := *r.chat
	created := r.created && r.claimed.CompareAndSwap(false, true)
	return &chat, created, nil
}

// ChatForParticipant loads chatID and checks userID belongs to it.
func (s *Service) ChatForParticipant(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("No chat found against chat id and user.")
	}
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, notFound("No chat found against chat id and user.")
	}
	return chat, nil
}

// PrimaryAdmin is the account that receives "contact" chats opened without a
// receiver.
func (s *Service) PrimaryAdmin(ctx context.Context) (*model.User, error) {
	if s.primaryAdminID != "" {
		admin, err := s.users.FindByID(ctx, s.primaryAdminID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Admin not found.")
		}
		return admin, err
	}

	admins, err := s.users.FindByAdminRole(ctx, model.AdminRolePrimary)
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if len(admins) == 0 {
		return nil, notFound("Admin not found.")
	}
	if len(admins) > 1 {
		s.log.Warn("several primary admins, using the oldest", "count", len(admins), "admin_id", admins[0].ID)
	}
	return &admins[0], nil
}
