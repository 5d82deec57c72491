package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Recommendation is one grounded entry on an assistant message. ListingID
// always references a listing that was in the candidate set for that turn.
type Recommendation struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// Message is a single turn in a bot conversation. Messages are immutable
// once written; ordering within a conversation is insertion order.
type Message struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	ConversationID  string         `gorm:"column:conversation_id;size:36;index" json:"conversationId"`
	Role            string         `gorm:"size:16;not null" json:"role"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Recommendations datatypes.JSON `gorm:"type:jsonb" json:"recommendations,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "bot_messages"
}

// DecodeRecommendations unpacks the persisted recommendation entries.
// A missing or corrupt column decodes to an empty list.
func (m *Message) DecodeRecommendations() []Recommendation {
	if len(m.Recommendations) == 0 {
		return nil
	}
	var recs []Recommendation
	if err := json.Unmarshal(m.Recommendations, &recs); err != nil {
		return nil
	}
	return recs
}

func EncodeRecommendations(recs []Recommendation) (datatypes.JSON, error) {
	if recs == nil {
		recs = []Recommendation{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
