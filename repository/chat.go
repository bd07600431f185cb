package repository

import (
	"context"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// settings row of the viewer marks the message as read or deleted
	seenOrDeletedBy = "NOT EXISTS (SELECT 1 FROM message_user_settings s WHERE s.message_id = messages.id AND s.user_id = ? AND (s.read_at IS NOT NULL OR s.deleted_at IS NOT NULL))"
	deletedFor      = "NOT EXISTS (SELECT 1 FROM message_user_settings s WHERE s.message_id = messages.id AND s.user_id = ? AND s.deleted_at IS NOT NULL)"
	deliveredTo     = "NOT EXISTS (SELECT 1 FROM message_user_settings s WHERE s.message_id = messages.id AND s.user_id = ? AND s.delivered_at IS NOT NULL)"
)

type ChatRepo struct {
	db *gorm.DB
}

func NewChatRepo(db *gorm.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants.User").
		Preload("UserSettings").
		Preload("LastMessage.UserSettings")
}

func (r *ChatRepo) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.withDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

func (r *ChatRepo) FindByPairKey(ctx context.Context, key string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.withDetails(r.db.WithContext(ctx)).Where("pair_key = ?", key).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

func (r *ChatRepo) CreatePair(ctx context.Context, chat *model.Chat) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "pair_key"}},
				DoNothing: true,
			}).
			Create(chat)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		participants := make([]model.ChatParticipant, 0, len(chat.Participants))
		for _, p := range chat.Participants {
			participants = append(participants, model.ChatParticipant{ChatID: chat.ID, UserID: p.UserID})
		}
		return tx.Omit(clause.Associations).Create(&participants).Error
	})
	return created, err
}

// visibleChatIDs selects the chats userID participates in and has not
// soft-deleted.
func visibleChatIDs(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&model.ChatParticipant{}).
		Select("chat_participants.chat_id").
		Where("chat_participants.user_id = ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM chat_user_settings cs WHERE cs.chat_id = chat_participants.chat_id AND cs.user_id = ? AND cs.has_user_deleted_chat = ?)", userID, true)
}

func (r *ChatRepo) ListVisible(ctx context.Context, userID, chatType string, page Page) ([]model.Chat, int64, error) {
	db := r.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("chats.id IN (?)", visibleChatIDs(db, userID))
		if chatType != "" {
			q = q.Where("chats.chat_type = ?", chatType)
		}
		return q
	}
	return r.list(db, scope, page)
}

func (r *ChatRepo) ListWithUnread(ctx context.Context, userID string, page Page) ([]model.Chat, int64, error) {
	db := r.db.WithContext(ctx)
	unread := db.Model(&model.Message{}).
		Select("messages.chat_id").
		Where("messages.sender_id <> ?", userID).
		Where(seenOrDeletedBy, userID)
	scope := func(q *gorm.DB) *gorm.DB {
		return q.
			Where("chats.id IN (?)", visibleChatIDs(db, userID)).
			Where("chats.id IN (?)", unread)
	}
	return r.list(db, scope, page)
}

func (r *ChatRepo) list(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, page Page) ([]model.Chat, int64, error) {
	var total int64
	if err := scope(db.Model(&model.Chat{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var chats []model.Chat
	err := r.withDetails(scope(db.Model(&model.Chat{}))).
		Order("COALESCE(chats.last_message_sent_at, chats.created_at) DESC").
		Order("chats.id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&chats).Error
	if err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

func (r *ChatRepo) SoftDelete(ctx context.Context, chatID, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setting := model.ChatUserSetting{
			ChatID:             chatID,
			UserID:             userID,
			HasUserDeletedChat: true,
			LastChatDeletedAt:  &at,
			IsChatWithContact:  true,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"has_user_deleted_chat", "last_chat_deleted_at"}),
		}).Create(&setting).Error
		if err != nil {
			return err
		}

		err = tx.Model(&model.MessageUserSetting{}).
			Where("user_id = ? AND deleted_at IS NULL", userID).
			Where("message_id IN (?)", tx.Model(&model.Message{}).Select("id").Where("chat_id = ?", chatID)).
			Update("deleted_at", at).Error
		if err != nil {
			return err
		}

		_, err = insertMissingSettings(tx, userID,
			tx.Model(&model.Message{}).Where("messages.chat_id = ?", chatID),
			func(s *model.MessageUserSetting) { s.DeletedAt = &at },
		)
		return err
	})
}
