package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-service/model"
	"chat-service/repository"
)

const (
	defaultChatPageSize    = 10
	defaultMessagePageSize = 20
)

// ListUserChats pages the chats of one type visible to userID, most recent
// activity first.
func (s *Service) ListUserChats(ctx context.Context, userID, chatType string, page, pageSize int) (*ChatPage, error) {
	if chatType == "" {
		chatType = model.ChatTypeContact
	}
	p := repository.NewPage(page, pageSize, defaultChatPageSize)
	chats, total, err := s.chats.ListVisible(ctx, userID, chatType, p)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return s.chatPage(ctx, userID, chats, total, p)
}

// ListUnseenChats pages the chats holding unread messages for userID. Listing
// them counts as delivery.
func (s *Service) ListUnseenChats(ctx context.Context, userID string, page, pageSize int) (*ChatPage, error) {
	p := repository.NewPage(page, pageSize, defaultChatPageSize)
	chats, total, err := s.chats.ListWithUnread(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list unseen chats: %w", err)
	}
	out, err := s.chatPage(ctx, userID, chats, total, p)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	if err := s.markDelivered(ctx, userID, ids); err != nil {
		s.log.Error("deliver unseen chats", "user_id", userID, "error", err)
	}
	return out, nil
}

func (s *Service) chatPage(ctx context.Context, userID string, chats []model.Chat, total int64, p repository.Page) (*ChatPage, error) {
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	unread, err := s.messages.CountUnreadByChat(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	out := &ChatPage{
		PageNo:         p.Number,
		RecordsPerPage: p.Size,
		TotalRecords:   total,
		Chats:          make([]ChatSummary, 0, len(chats)),
	}
	for i := range chats {
		c := &chats[i]
		out.Chats = append(out.Chats, s.summarize(c, c.LastMessage, userID, unread[c.ID]))
	}
	return out, nil
}

// ListChatMessages pages a chat newest first for userID and marks it read.
func (s *Service) ListChatMessages(ctx context.Context, userID, chatID string, page, pageSize int) (*MessagePage, error) {
	if chatID == "" {
		return nil, badRequest("Chat id is required.")
	}
	chat, err := s.ChatForParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	p := repository.NewPage(page, pageSize, defaultMessagePageSize)
	msgs, total, err := s.messages.ListForViewer(ctx, chat.ID, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := &MessagePage{
		ChatID:         chat.ID,
		PageNo:         p.Number,
		RecordsPerPage: p.Size,
		TotalRecords:   total,
		Messages:       make([]MessageView, 0, len(msgs)),
	}
	for i := range msgs {
		out.Messages = append(out.Messages, s.messageView(&msgs[i], participantUser(chat, msgs[i].SenderID)))
	}

	if _, err := s.messages.MarkRead(ctx, chat.ID, userID, s.now()); err != nil {
		s.log.Error("mark fetched messages read", "chat_id", chat.ID, "user_id", userID, "error", err)
	} else {
		s.sendReadReceipts(ctx, chat, userID)
	}
	return out, nil
}

// ExistingChat looks up the chat between userID and receiverID without
// creating it.
func (s *Service) ExistingChat(ctx context.Context, userID, receiverID, chatType string) (*ExistingChat, error) {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, badRequest("Receiver id is required.")
	}
	if chatType == "" {
		chatType = model.ChatTypeContact
	}
	chat, err := s.chats.FindByPairKey(ctx, PairKey(chatType, userID, receiverID))
	if errors.Is(err, repository.ErrNotFound) {
		return &ExistingChat{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	return &ExistingChat{ChatID: &chat.ID}, nil
}

func (s *Service) ActiveStatus(ctx context.Context, userID string) (*ActiveStatus, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, badRequest("User id is required.")
	}
	if s.registry.IsUserOnline(ctx, userID) {
		return &ActiveStatus{IsUserOnline: true}, nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &ActiveStatus{IsUserOnline: false, LastSeen: user.LastSeen}, nil
}

// ChatBookings lists the bookings between userID and the other side of a
// chat. The other side is receiverID, or the counterpart of chatID when only
// the chat is given.
func (s *Service) ChatBookings(ctx context.Context, userID, chatID, receiverID string) (*BookingList, error) {
	chatID = strings.TrimSpace(chatID)
	receiverID = strings.TrimSpace(receiverID)
	if chatID == "" && receiverID == "" {
		return nil, badRequest("Receiver id or chat id is required.")
	}
	if chatID != "" {
		chat, err := s.ChatForParticipant(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if receiverID != "" {
			if receiverID == userID || !chat.HasParticipant(receiverID) {
				return nil, badRequest("Receiver is not a participant of this chat.")
			}
		} else {
			others := chat.Counterparts(userID)
			if len(others) == 0 {
				return nil, badRequest("Chat has no receiver.")
			}
			receiverID = others[0]
		}
	}

	bookings, err := s.bookings.ListBetween(ctx, userID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return &BookingList{Bookings: bookings}, nil
}

// SingleChat returns the chat-list row of one chat for userID without
// sending anything. Without chatID the chat with receiverID is resolved and
// created when missing; a "contact" chat without a receiver goes to the
// primary admin.
func (s *Service) SingleChat(ctx context.Context, userID, chatID, receiverID, chatType string) (*SingleChat, error) {
	chatID = strings.TrimSpace(chatID)
	receiverID = strings.TrimSpace(receiverID)
	chatType = strings.TrimSpace(chatType)
	if chatType == "" {
		return nil, badRequest("Chat type is required.")
	}

	var chat *model.Chat
	if chatID != "" {
		var err error
		chat, err = s.ChatForParticipant(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if chat.ChatType != chatType {
			return nil, badRequest("Chat type does not match chat.")
		}
	} else {
		switch {
		case receiverID == "" && chatType == model.ChatTypeContact:
			admin, err := s.PrimaryAdmin(ctx)
			if err != nil {
				return nil, err
			}
			receiverID = admin.ID
		case receiverID == "":
			return nil, badRequest("Receiver id or chat id is required.")
		default:
			_, err := s.users.FindByID(ctx, receiverID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("Invalid receiver data.")
			}
			if err != nil {
				return nil, fmt.Errorf("find receiver: %w", err)
			}
		}

		var err error
		chat, _, err = s.ResolveOrCreateChat(ctx, userID, receiverID, chatType)
		if err != nil {
			return nil, err
		}
	}

	unread, err := s.messages.CountUnread(ctx, chat.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	return &SingleChat{ChatScreenBody: s.summarize(chat, chat.LastMessage, userID, unread)}, nil
}
