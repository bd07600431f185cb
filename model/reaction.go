package model

import "time"

const ReactionOnMessage = "message"

type Reaction struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ObjectID   string    `gorm:"size:36;not null;uniqueIndex:idx_reaction_owner,priority:1" json:"objectId"`
	ObjectType string    `gorm:"size:32;not null;uniqueIndex:idx_reaction_owner,priority:2" json:"objectType"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:idx_reaction_owner,priority:3" json:"userId"`
	Emoji      string    `gorm:"size:64;not null" json:"emoji"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
