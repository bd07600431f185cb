package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-service/model"
	"chat-service/push"
	"chat-service/repository"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ChatID                 string `json:"chatId"`
	ReceiverID             string `json:"receiverId"`
	ChatType               string `json:"chatType"`
	BookingID              string `json:"bookingId"`
	Content                string `json:"content"`
	ContentType            string `json:"contentType"`
	ContentTitle           string `json:"contentTitle"`
	ContentDescription     string `json:"contentDescription"`
	ContentDescriptionType string `json:"contentDescriptionType"`
	FileSize               string `json:"fileSize"`
}

var contentTypes = map[string]bool{
	model.ContentText:    true,
	model.ContentImage:   true,
	model.ContentVideo:   true,
	model.ContentFile:    true,
	model.ContentAudio:   true,
	model.ContentContact: true,
	model.ContentLink:    true,
}

func (r *SendMessageRequest) validate() error {
	r.ChatID = strings.TrimSpace(r.ChatID)
	r.ReceiverID = strings.TrimSpace(r.ReceiverID)
	r.ChatType = strings.TrimSpace(r.ChatType)
	r.BookingID = strings.TrimSpace(r.BookingID)
	if r.ContentType == "" {
		r.ContentType = model.ContentText
	}
	if r.ContentDescriptionType == "" {
		r.ContentDescriptionType = model.ContentText
	}

	switch {
	case r.ChatType == "":
		return badRequest("Chat type is required.")
	case r.ChatType == model.ChatTypeService && r.BookingID == "":
		return badRequest("Booking id is required.")
	case r.ReceiverID == "" && r.ChatID == "" && r.ChatType != model.ChatTypeContact:
		return badRequest("Receiver id or chat id is required.")
	case !contentTypes[r.ContentType]:
		return badRequest("Invalid content type.")
	case r.ContentDescriptionType != model.ContentText && r.ContentDescriptionType != model.ContentLink:
		return badRequest("Invalid content description type.")
	}
	return nil
}

type SendResult struct {
	Chat    *model.Chat
	Message *model.Message
	Created bool
}

// SendMessage validates req, persists the message and fans it out. Nothing is
// written when validation fails.
func (s *Service) SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (*SendResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.BookingID != "" {
		_, err := s.bookings.FindByID(ctx, req.BookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Booking not found.")
		}
		if err != nil {
			return nil, fmt.Errorf("find booking: %w", err)
		}
	}

	var chat *model.Chat
	if req.ChatID != "" {
		var err error
		chat, err = s.ChatForParticipant(ctx, req.ChatID, senderID)
		if err != nil {
			return nil, err
		}
		if chat.ChatType != req.ChatType {
			return nil, badRequest("Chat type does not match chat.")
		}
		if req.ReceiverID != "" {
			if req.ReceiverID == senderID || !chat.HasParticipant(req.ReceiverID) {
				return nil, badRequest("Receiver is not a participant of this chat.")
			}
		} else {
			others := chat.Counterparts(senderID)
			if len(others) == 0 {
				return nil, badRequest("Chat has no receiver.")
			}
			req.ReceiverID = others[0]
		}
	} else if req.ReceiverID == "" {
		admin, err := s.PrimaryAdmin(ctx)
		if err != nil {
			return nil, err
		}
		req.ReceiverID = admin.ID
	}

	users, err := s.users.FindByIDs(ctx, []string{senderID, req.ReceiverID})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	if _, ok := users[req.ReceiverID]; !ok {
		return nil, notFound("Invalid receiver data.")
	}

	created := false
	if chat == nil {
		chat, created, err = s.ResolveOrCreateChat(ctx, senderID, req.ReceiverID, req.ChatType)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	recipients := chat.Counterparts(senderID)
	online := make(map[string]bool, len(recipients))
	settings := []model.MessageUserSetting{{UserID: senderID, DeliveredAt: &now, ReadAt: &now}}
	for _, id := range recipients {
		if s.registry.IsUserOnline(ctx, id) {
			online[id] = true
			settings = append(settings, model.MessageUserSetting{UserID: id, DeliveredAt: &now})
		}
	}

	msg := &model.Message{
		ID:                     uuid.NewString(),
		ChatID:                 chat.ID,
		SenderID:               senderID,
		Content:                req.Content,
		ContentType:            req.ContentType,
		ContentTitle:           req.ContentTitle,
		ContentDescription:     req.ContentDescription,
		ContentDescriptionType: req.ContentDescriptionType,
		FileSize:               req.FileSize,
		ReactionsCount:         map[string]int{},
		UserSettings:           settings,
		CreatedAt:              now,
	}
	if req.BookingID != "" {
		msg.BookingID = &req.BookingID
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.metrics.Messages.WithLabelValues(chat.ChatType).Inc()

	chat.LastMessageID = &msg.ID
	chat.LastMessageSentAt = &now
	chat.LastMessage = msg

	sender := s.userOf(users, senderID)
	view := s.messageView(msg, sender)
	s.emit(senderID, EventReceiveMessage, ReceiveMessage{
		ChatScreenBody:    s.summarize(chat, msg, senderID, 0),
		MessageScreenBody: view,
	})

	for _, id := range recipients {
		if !online[id] {
			s.pushOffline(ctx, s.userOf(users, id), sender, msg)
			continue
		}
		unread, err := s.messages.CountUnread(ctx, chat.ID, id)
		if err != nil {
			s.log.Error("count unread", "chat_id", chat.ID, "user_id", id, "error", err)
		}
		s.emit(id, EventReceiveMessage, ReceiveMessage{
			ChatScreenBody:    s.summarize(chat, msg, id, unread),
			MessageScreenBody: view,
		})
		s.emit(senderID, EventDeliverResponse, DeliveryReceipt{Success: true, ChatID: chat.ID, MessageID: msg.ID, AllMsgsDelivered: true})
	}

	if created {
		title := "New Message"
		body := fmt.Sprintf("%s has sent you a message.", sender.DisplayName())
		if _, err := s.notifier.Notify(ctx, req.ReceiverID, title, body, "message", ""); err != nil {
			s.log.Error("notify new chat", "chat_id", chat.ID, "user_id", req.ReceiverID, "error", err)
		}
	}

	// Replying implies the sender has read everything before it.
	if n, err := s.messages.MarkRead(ctx, chat.ID, senderID, now); err != nil {
		s.log.Error("mark read on send", "chat_id", chat.ID, "user_id", senderID, "error", err)
	} else if n > 0 {
		s.sendReadReceipts(ctx, chat, senderID)
	}

	s.publish(ctx, "message.created", map[string]any{
		"chatId":      chat.ID,
		"chatType":    chat.ChatType,
		"messageId":   msg.ID,
		"senderId":    senderID,
		"recipients":  recipients,
		"contentType": msg.ContentType,
		"sentAt":      msg.CreatedAt,
	})

	return &SendResult{Chat: chat, Message: msg, Created: created}, nil
}

func (s *Service) pushOffline(ctx context.Context, recipient, sender *model.User, msg *model.Message) {
	err := s.push.Send(ctx, push.Notification{
		Token: recipient.FCMToken,
		Title: sender.DisplayName(),
		Body:  NotificationBody(msg),
		Data: map[string]string{
			"chatId":    msg.ChatID,
			"messageId": msg.ID,
			"senderId":  msg.SenderID,
		},
	})
	if err != nil {
		s.log.Warn("push notification failed", "user_id", recipient.ID, "message_id", msg.ID, "error", err)
	}
}
