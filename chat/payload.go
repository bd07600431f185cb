package chat

import (
	"time"

	"chat-service/model"
)

// Server to client events.
const (
	EventReceiveMessage  = "receive-message"
	EventDeliverResponse = "mark-message-deliver-response"
	EventReadResponse    = "mark-message-read-response"
	EventReaction        = "reaction"
	EventRemoveReaction  = "remove-reaction-response"
	EventEditMessage     = "edit-message-response"
	EventChatDeleted     = "chat-deleted"
	EventWithMe          = "with-me"
	EventExistingChat    = "user-existingChatId"
	EventActiveStatus    = "user-active-status"
	EventUserChats       = "user-chats"
	EventUnseenChats     = "unseen-chats"
	EventChatMessages    = "user-chat-messages"
	EventUserBooking     = "user-booking"
	EventSingleChat      = "get-single-chat"
	EventSocketError     = "socket-error"
)

// ChatSummary is the chat-list row as seen by one viewer.
type ChatSummary struct {
	ChatID                   string     `json:"chatId"`
	ChatName                 string     `json:"chatName"`
	ChatType                 string     `json:"chatType"`
	ReceiverID               string     `json:"receiverId"`
	DisplayPicture           string     `json:"displayPicture"`
	LatestMessage            string     `json:"latestMessage"`
	LatestMessageID          string     `json:"latestMessageId"`
	LatestMessageType        string     `json:"latestMessageType"`
	LatestMessageTitle       string     `json:"latestMessageTitle"`
	LatestMessageDescription string     `json:"latestMessageDescription"`
	ContentDescriptionType   string     `json:"contentDescriptionType"`
	FileSize                 string     `json:"fileSize"`
	LatestMessageSentAt      *time.Time `json:"latestMessageSentAt"`
	UnreadCount              int64      `json:"unreadCount"`
	// Set only when the viewer sent the latest message.
	IsRead      *bool `json:"isRead,omitempty"`
	IsDelivered *bool `json:"isDelivered,omitempty"`
}

type Sender struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// MessageView is one message as seen by one viewer.
type MessageView struct {
	ChatID                 string         `json:"chatId"`
	MessageID              string         `json:"messageId"`
	Sender                 Sender         `json:"sender"`
	Content                string         `json:"content"`
	ContentType            string         `json:"contentType"`
	ContentTitle           string         `json:"contentTitle"`
	ContentDescription     string         `json:"contentDescription"`
	ContentDescriptionType string         `json:"contentDescriptionType"`
	FileSize               string         `json:"fileSize"`
	SentAt                 time.Time      `json:"latestMessageSentAt"`
	EditedAt               *time.Time     `json:"editedAt,omitempty"`
	ReactionsCount         map[string]int `json:"reactionsCount"`
	IsRead                 bool           `json:"isRead"`
	IsDelivered            bool           `json:"isDelivered"`
}

type ReceiveMessage struct {
	ChatScreenBody    ChatSummary `json:"chatScreenBody"`
	MessageScreenBody MessageView `json:"messageScreenBody"`
}

type DeliveryReceipt struct {
	Success          bool   `json:"success"`
	ChatID           string `json:"chatId"`
	MessageID        string `json:"messageId,omitempty"`
	AllMsgsDelivered bool   `json:"allMsgsDelivered,omitempty"`
}

type ReadReceipt struct {
	Success     bool   `json:"success"`
	ChatID      string `json:"chatId,omitempty"`
	AllMsgsRead bool   `json:"allMsgsRead,omitempty"`
}

type ChatDeleted struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type Reactor struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	ProfilePicture string `json:"profilePicture"`
	Emoji          string `json:"emoji"`
}

// ReactionUpdate is broadcast after a reaction is added, replaced or removed.
type ReactionUpdate struct {
	ChatID         string         `json:"chatId"`
	MessageID      string         `json:"messageId"`
	Emoji          string         `json:"emoji"`
	UserID         string         `json:"userId"`
	ReactionsCount map[string]int `json:"reactionsCount"`
	Reactions      []Reactor      `json:"reactions"`
}

type ChatPage struct {
	PageNo         int           `json:"pageNo"`
	RecordsPerPage int           `json:"recordsPerPage"`
	TotalRecords   int64         `json:"totalRecords"`
	Chats          []ChatSummary `json:"chats"`
}

type MessagePage struct {
	ChatID         string        `json:"chatId"`
	PageNo         int           `json:"pageNo"`
	RecordsPerPage int           `json:"recordsPerPage"`
	TotalRecords   int64         `json:"totalRecords"`
	Messages       []MessageView `json:"messages"`
}

type ExistingChat struct {
	ChatID *string `json:"chatId"`
}

type ActiveStatus struct {
	IsUserOnline bool       `json:"isUserOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
}

type BookingList struct {
	Bookings []model.Booking `json:"bookings"`
}

type SingleChat struct {
	ChatScreenBody ChatSummary `json:"chatScreenBody"`
}

type Notice struct {
	Message string `json:"message"`
}

// summarize projects chat for viewerID. last may be nil for an empty chat.
func (s *Service) summarize(chat *model.Chat, last *model.Message, viewerID string, unread int64) ChatSummary {
	out := ChatSummary{
		ChatID:         chat.ID,
		ChatType:       chat.ChatType,
		DisplayPicture: s.defaultAvatar,
		UnreadCount:    unread,
	}
	if cp := counterpart(chat, viewerID); cp != nil {
		out.ChatName = cp.DisplayName()
		out.ReceiverID = cp.ID
		if cp.ProfilePicture != "" {
			out.DisplayPicture = cp.ProfilePicture
		}
	}
	if last == nil {
		return out
	}

	sentAt := last.CreatedAt
	out.LatestMessage = last.Content
	out.LatestMessageID = last.ID
	out.LatestMessageType = last.ContentType
	out.LatestMessageTitle = last.ContentTitle
	out.LatestMessageDescription = last.ContentDescription
	out.ContentDescriptionType = last.ContentDescriptionType
	out.FileSize = last.FileSize
	out.LatestMessageSentAt = &sentAt
	if last.SenderID == viewerID {
		read, delivered := deliveryStatus(last)
		out.IsRead = &read
		out.IsDelivered = &delivered
	}
	return out
}

func (s *Service) messageView(msg *model.Message, sender *model.User) MessageView {
	read, delivered := deliveryStatus(msg)
	view := MessageView{
		ChatID:                 msg.ChatID,
		MessageID:              msg.ID,
		Sender:                 Sender{ID: msg.SenderID, ProfilePicture: s.defaultAvatar},
		Content:                msg.Content,
		ContentType:            msg.ContentType,
		ContentTitle:           msg.ContentTitle,
		ContentDescription:     msg.ContentDescription,
		ContentDescriptionType: msg.ContentDescriptionType,
		FileSize:               msg.FileSize,
		SentAt:                 msg.CreatedAt,
		EditedAt:               msg.EditedAt,
		ReactionsCount:         msg.ReactionsCount,
		IsRead:                 read,
		IsDelivered:            delivered,
	}
	if view.ReactionsCount == nil {
		view.ReactionsCount = map[string]int{}
	}
	if sender != nil {
		view.Sender.Name = sender.DisplayName()
		if sender.ProfilePicture != "" {
			view.Sender.ProfilePicture = sender.ProfilePicture
		}
	}
	return view
}

// deliveryStatus reports whether any participant other than the sender has
// read or received msg.
func deliveryStatus(msg *model.Message) (read, delivered bool) {
	for _, st := range msg.UserSettings {
		if st.UserID == msg.SenderID {
			continue
		}
		if st.ReadAt != nil {
			read = true
		}
		if st.DeliveredAt != nil {
			delivered = true
		}
	}
	return read, read || delivered
}

func counterpart(chat *model.Chat, viewerID string) *model.User {
	for i := range chat.Participants {
		p := &chat.Participants[i]
		if p.UserID != viewerID {
			if p.User.ID == "" {
				return &model.User{ID: p.UserID}
			}
			return &p.User
		}
	}
	return nil
}

func participantUser(chat *model.Chat, userID string) *model.User {
	for i := range chat.Participants {
		if chat.Participants[i].UserID == userID && chat.Participants[i].User.ID != "" {
			return &chat.Participants[i].User
		}
	}
	return nil
}
