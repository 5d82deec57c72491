package model

import "time"

// Conversation is a bot-chat thread exclusively owned by one user.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserUID   string    `gorm:"column:user_uid;size:128;index" json:"userUid"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "bot_conversations"
}
