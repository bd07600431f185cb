package chat

import (
	"context"
	"fmt"

	"chat-service/model"
)

// FlushUndelivered marks every message waiting for userID as delivered and
// tells the online senders. Called when a connection is established.
func (s *Service) FlushUndelivered(ctx context.Context, userID string) error {
	chatIDs, err := s.messages.UndeliveredChatIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("find undelivered: %w", err)
	}
	return s.markDelivered(ctx, userID, chatIDs)
}

func (s *Service) markDelivered(ctx context.Context, userID string, chatIDs []string) error {
	if len(chatIDs) == 0 {
		return nil
	}
	if _, err := s.messages.MarkDelivered(ctx, userID, chatIDs, s.now()); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	for _, id := range chatIDs {
		chat, err := s.chats.FindByID(ctx, id)
		if err != nil {
			s.log.Warn("load chat for delivery receipt", "chat_id", id, "error", err)
			continue
		}
		for _, other := range chat.Counterparts(userID) {
			if s.registry.IsUserOnline(ctx, other) {
				s.emit(other, EventDeliverResponse, DeliveryReceipt{Success: true, ChatID: id, AllMsgsDelivered: true})
			}
		}
	}
	return nil
}

// MarkRead marks every message of chatID read by userID. Online counterparts
// receive a read receipt; the returned receipt is the caller's reply.
func (s *Service) MarkRead(ctx context.Context, chatID, userID string) (*ReadReceipt, error) {
	if chatID == "" {
		return nil, badRequest("Chat id is required.")
	}
	chat, err := s.ChatForParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.MarkRead(ctx, chat.ID, userID, s.now()); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	s.sendReadReceipts(ctx, chat, userID)
	return &ReadReceipt{Success: true}, nil
}

func (s *Service) sendReadReceipts(ctx context.Context, chat *model.Chat, readerID string) {
	for _, other := range chat.Counterparts(readerID) {
		if s.registry.IsUserOnline(ctx, other) {
			s.emit(other, EventReadResponse, ReadReceipt{Success: true, ChatID: chat.ID, AllMsgsRead: true})
		}
	}
}

// SoftDeleteChat hides chatID and its current messages from userID only.
func (s *Service) SoftDeleteChat(ctx context.Context, userID, chatID string) (*ChatDeleted, error) {
	if chatID == "" {
		return nil, badRequest("Chat id is required.")
	}
	chat, err := s.ChatForParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.chats.SoftDelete(ctx, chat.ID, userID, s.now()); err != nil {
		return nil, fmt.Errorf("delete chat: %w", err)
	}
	return &ChatDeleted{
		Success: true,
		UserID:  userID,
		ChatID:  chat.ID,
		Message: "Chat deleted successfully.",
	}, nil
}
