package repository

import (
	"context"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		err := tx.Model(&model.Chat{}).
			Where("id = ?", msg.ChatID).
			Updates(map[string]interface{}{
				"last_message_id":      msg.ID,
				"last_message_sent_at": msg.CreatedAt,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&model.ChatUserSetting{}).
			Where("chat_id = ? AND user_id = ?", msg.ChatID, msg.SenderID).
			Update("has_user_deleted_chat", false).Error
	})
}

func (r *MessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).Preload("UserSettings").Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

// ListForViewer pages a chat newest first, hiding messages the viewer deleted.
func (r *MessageRepo) ListForViewer(ctx context.Context, chatID, viewerID string, page Page) ([]model.Message, int64, error) {
	db := r.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		return q.Where("messages.chat_id = ?", chatID).Where(deletedFor, viewerID)
	}

	var total int64
	if err := scope(db.Model(&model.Message{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []model.Message
	err := scope(db.Model(&model.Message{})).
		Preload("UserSettings").
		Order("messages.created_at DESC").
		Order("messages.id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *MessageRepo) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "edited_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnread counts messages in chatID sent by others that userID has
// neither read nor deleted.
func (r *MessageRepo) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("messages.chat_id = ? AND messages.sender_id <> ?", chatID, userID).
		Where(seenOrDeletedBy, userID).
		Count(&n).Error
	return n, err
}

func (r *MessageRepo) CountUnreadByChat(ctx context.Context, userID string, chatIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ChatID string
		Unread int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("messages.chat_id AS chat_id, COUNT(*) AS unread").
		Where("messages.chat_id IN ? AND messages.sender_id <> ?", chatIDs, userID).
		Where(seenOrDeletedBy, userID).
		Group("messages.chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ChatID] = row.Unread
	}
	return out, nil
}

// UndeliveredChatIDs lists visible chats holding messages from others that
// were never delivered to userID.
func (r *MessageRepo) UndeliveredChatIDs(ctx context.Context, userID string) ([]string, error) {
	db := r.db.WithContext(ctx)
	var ids []string
	err := db.Model(&model.Message{}).
		Where("messages.chat_id IN (?)", visibleChatIDs(db, userID)).
		Where("messages.sender_id <> ?", userID).
		Where(deliveredTo, userID).
		Distinct().
		Pluck("messages.chat_id", &ids).Error
	return ids, err
}

// MarkDelivered stamps delivered_at for userID on every message from others
// in chatIDs: existing rows without a stamp are updated, missing rows are
// inserted. Stamps already present are kept.
func (r *MessageRepo) MarkDelivered(ctx context.Context, userID string, chatIDs []string, at time.Time) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MessageUserSetting{}).
			Where("user_id = ? AND delivered_at IS NULL", userID).
			Where("message_id IN (?)", tx.Model(&model.Message{}).Select("id").Where("chat_id IN ? AND sender_id <> ?", chatIDs, userID)).
			Update("delivered_at", at)
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected

		inserted, err := insertMissingSettings(tx, userID,
			tx.Model(&model.Message{}).Where("messages.chat_id IN ? AND messages.sender_id <> ?", chatIDs, userID),
			func(s *model.MessageUserSetting) { s.DeliveredAt = &at },
		)
		affected += inserted
		return err
	})
	return affected, err
}

// MarkRead stamps read_at for userID on every message of chatID, filling a
// missing delivered_at with the same instant.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID, userID string, at time.Time) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MessageUserSetting{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Where("message_id IN (?)", tx.Model(&model.Message{}).Select("id").Where("chat_id = ?", chatID)).
			Updates(map[string]interface{}{
				"read_at":      at,
				"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
			})
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected

		inserted, err := insertMissingSettings(tx, userID,
			tx.Model(&model.Message{}).Where("messages.chat_id = ? AND messages.sender_id <> ?", chatID, userID),
			func(s *model.MessageUserSetting) {
				s.DeliveredAt = &at
				s.ReadAt = &at
			},
		)
		affected += inserted
		return err
	})
	return affected, err
}

const settingMissingFor = "NOT EXISTS (SELECT 1 FROM message_user_settings s WHERE s.message_id = messages.id AND s.user_id = ?)"

// insertMissingSettings adds a settings row for userID to every message
// selected by messages that has none. Rows created concurrently by another
// writer win.
func insertMissingSettings(tx *gorm.DB, userID string, messages *gorm.DB, fill func(*model.MessageUserSetting)) (int64, error) {
	var ids []string
	if err := messages.Where(settingMissingFor, userID).Pluck("messages.id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	rows := make([]model.MessageUserSetting, 0, len(ids))
	for _, id := range ids {
		row := model.MessageUserSetting{MessageID: id, UserID: userID}
		fill(&row)
		rows = append(rows, row)
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500)
	return res.RowsAffected, res.Error
}
