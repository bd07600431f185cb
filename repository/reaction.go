package repository

import (
	"context"
	"encoding/json"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepo struct {
	db *gorm.DB
}

func NewReactionRepo(db *gorm.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

func (r *ReactionRepo) Upsert(ctx context.Context, reaction *model.Reaction) (map[string]int, error) {
	var counts map[string]int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMessage(tx, reaction.ObjectID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_id"}, {Name: "object_type"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"emoji", "updated_at"}),
		}).Create(reaction).Error
		if err != nil {
			return err
		}
		counts, err = storeCounts(tx, reaction.ObjectID)
		return err
	})
	return counts, err
}

func (r *ReactionRepo) Delete(ctx context.Context, messageID, userID, emoji string) (map[string]int, error) {
	var counts map[string]int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMessage(tx, messageID); err != nil {
			return err
		}
		res := tx.Where("object_id = ? AND object_type = ? AND user_id = ? AND emoji = ?",
			messageID, model.ReactionOnMessage, userID, emoji).
			Delete(&model.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var err error
		counts, err = storeCounts(tx, messageID)
		return err
	})
	return counts, err
}

// Counts groups the live reaction rows of a message by emoji.
func (r *ReactionRepo) Counts(ctx context.Context, messageID string) (map[string]int, error) {
	return countReactions(r.db.WithContext(ctx), messageID)
}

func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID string) ([]ReactionDetail, error) {
	var out []ReactionDetail
	err := r.db.WithContext(ctx).
		Table("reactions AS r").
		Select(`r.user_id AS user_id, r.emoji AS emoji,
			COALESCE(u.full_name, '') AS full_name,
			COALESCE(u.first_name, '') AS first_name,
			COALESCE(u.last_name, '') AS last_name,
			COALESCE(u.profile_picture, '') AS profile_picture`).
		Joins("LEFT JOIN users u ON u.id = r.user_id").
		Where("r.object_id = ? AND r.object_type = ?", messageID, model.ReactionOnMessage).
		Order("r.created_at ASC").
		Scan(&out).Error
	return out, err
}

// lockMessage takes the message row lock so concurrent reaction writers on
// the same message serialize their recount.
func lockMessage(tx *gorm.DB, messageID string) error {
	res := tx.Exec("UPDATE messages SET updated_at = ? WHERE id = ?", time.Now(), messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func countReactions(db *gorm.DB, messageID string) (map[string]int, error) {
	var rows []struct {
		Emoji string
		Total int
	}
	err := db.Model(&model.Reaction{}).
		Select("emoji, COUNT(*) AS total").
		Where("object_id = ? AND object_type = ?", messageID, model.ReactionOnMessage).
		Group("emoji").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Emoji] = row.Total
	}
	return counts, nil
}

func storeCounts(tx *gorm.DB, messageID string) (map[string]int, error) {
	counts, err := countReactions(tx, messageID)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(counts)
	if err != nil {
		return nil, err
	}
	if err := tx.Exec("UPDATE messages SET reactions_count = ? WHERE id = ?", string(encoded), messageID).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
