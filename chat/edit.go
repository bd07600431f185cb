package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-service/repository"
)

// EditMessage replaces the content of a message. Only its sender may edit
// it; every participant receives their own projection.
func (s *Service) EditMessage(ctx context.Context, userID, messageID, content string) (*ReceiveMessage, error) {
	if messageID == "" {
		return nil, badRequest("Message id is required.")
	}
	if strings.TrimSpace(content) == "" {
		return nil, badRequest("Content is required.")
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Message not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	if msg.SenderID != userID {
		return nil, forbidden("Only the sender can edit this message.")
	}

	now := s.now()
	if err := s.messages.UpdateContent(ctx, msg.ID, content, now); err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	msg.Content = content
	msg.EditedAt = &now

	chat, err := s.chats.FindByID(ctx, msg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	last := chat.LastMessage
	if last == nil || last.ID == msg.ID {
		last = msg
	}

	view := s.messageView(msg, participantUser(chat, userID))
	var own *ReceiveMessage
	for _, id := range chat.ParticipantIDs() {
		var unread int64
		if id != userID {
			if unread, err = s.messages.CountUnread(ctx, chat.ID, id); err != nil {
				s.log.Error("count unread", "chat_id", chat.ID, "user_id", id, "error", err)
			}
		}
		payload := ReceiveMessage{
			ChatScreenBody:    s.summarize(chat, last, id, unread),
			MessageScreenBody: view,
		}
		if id == userID {
			own = &payload
		}
		s.emit(id, EventEditMessage, payload)
	}
	return own, nil
}
