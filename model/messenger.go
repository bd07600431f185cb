package model

import "time"

const (
	ChatTypeContact = "contact"
	ChatTypeService = "service"
)

const (
	ContentText    = "text"
	ContentImage   = "image"
	ContentVideo   = "video"
	ContentFile    = "file"
	ContentAudio   = "audio"
	ContentContact = "contact"
	ContentLink    = "link"
)

type Chat struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	ChatType          string            `gorm:"size:32;not null;index" json:"chatType"`
	PairKey           *string           `gorm:"size:128;uniqueIndex" json:"-"`
	LastMessageID     *string           `gorm:"size:36" json:"lastMessageId"`
	LastMessageSentAt *time.Time        `gorm:"index" json:"lastMessageSentAt"`
	Participants      []ChatParticipant `gorm:"foreignKey:ChatID" json:"participants"`
	UserSettings      []ChatUserSetting `gorm:"foreignKey:ChatID" json:"userSettings"`
	LastMessage       *Message          `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Counterparts returns every participant except userID.
func (c *Chat) Counterparts(userID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != userID {
			out = append(out, p.UserID)
		}
	}
	return out
}

func (c *Chat) ParticipantIDs() []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		out = append(out, p.UserID)
	}
	return out
}

type ChatParticipant struct {
	ChatID string `gorm:"primaryKey;size:36" json:"chatId"`
	UserID string `gorm:"primaryKey;size:36;index" json:"userId"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`
}

// ChatUserSetting holds at most one row per (chat, participant).
type ChatUserSetting struct {
	ChatID             string     `gorm:"primaryKey;size:36" json:"chatId"`
	UserID             string     `gorm:"primaryKey;size:36" json:"userId"`
	HasUserDeletedChat bool       `gorm:"not null" json:"hasUserDeletedChat"`
	LastChatDeletedAt  *time.Time `json:"lastChatDeletedAt"`
	IsChatWithContact  bool       `gorm:"not null" json:"isChatWithContact"`
}

type Message struct {
	ID                     string               `gorm:"primaryKey;size:36" json:"id"`
	ChatID                 string               `gorm:"size:36;not null;index:idx_message_chat_created,priority:1" json:"chatId"`
	SenderID               string               `gorm:"size:36;not null;index" json:"senderId"`
	Content                string               `json:"content"`
	ContentType            string               `gorm:"size:16;not null;default:text" json:"contentType"`
	ContentTitle           string               `json:"contentTitle"`
	ContentDescription     string               `json:"contentDescription"`
	ContentDescriptionType string               `gorm:"size:16;not null;default:text" json:"contentDescriptionType"`
	FileSize               string               `json:"fileSize"`
	BookingID              *string              `gorm:"size:36" json:"bookingId"`
	ReactionsCount         map[string]int       `gorm:"serializer:json;type:text" json:"reactionsCount"`
	EditedAt               *time.Time           `json:"editedAt"`
	UserSettings           []MessageUserSetting `gorm:"foreignKey:MessageID" json:"userSettings"`
	CreatedAt              time.Time            `gorm:"index:idx_message_chat_created,priority:2" json:"createdAt"`
	UpdatedAt              time.Time            `json:"updatedAt"`
}

// Setting returns the settings row of userID, if any.
func (m *Message) Setting(userID string) *MessageUserSetting {
	for i := range m.UserSettings {
		if m.UserSettings[i].UserID == userID {
			return &m.UserSettings[i]
		}
	}
	return nil
}

// MessageUserSetting holds at most one row per (message, user). ReadAt set
// implies DeliveredAt set.
type MessageUserSetting struct {
	MessageID   string     `gorm:"primaryKey;size:36" json:"messageId"`
	UserID      string     `gorm:"primaryKey;size:36;index" json:"userId"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	ReadAt      *time.Time `json:"readAt"`
	DeletedAt   *time.Time `json:"deletedAt"`
	Starred     bool       `gorm:"not null" json:"markedAsStar"`
}
