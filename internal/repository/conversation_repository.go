package repository

import (
	"context"
	"errors"
	"time"

	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	Conversation model.Conversation
	LastMessage  *model.Message
	MessageCount int64
}

type ConversationRepository interface {
	Create(ctx context.Context, userUID string) (*model.Conversation, error)
	// FindByIDAndOwner verifies ownership as part of the lookup; a
	// conversation owned by someone else is indistinguishable from a
	// missing one.
	FindByIDAndOwner(ctx context.Context, id, userUID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userUID string) ([]ConversationSummary, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID string) ([]model.Message, error)
	RecentMessages(ctx context.Context, convID string, limit int) ([]model.Message, error)
	Touch(ctx context.Context, convID string) error
	DeleteWithMessages(ctx context.Context, id, userUID string) error
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) Create(ctx context.Context, userUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	cv := model.Conversation{ID: uuid.NewString(), UserUID: userUID}
	if err := r.db.WithContext(ctx).Create(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByIDAndOwner(ctx context.Context, id, userUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_uid = ?", id, userUID).
		First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userUID string) ([]ConversationSummary, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var convs []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", userUID).
		Order("updated_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	summaries := make([]ConversationSummary, 0, len(convs))
	for _, cv := range convs {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("conversation_id = ?", cv.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		var last model.Message
		err := r.db.WithContext(ctx).
			Where("conversation_id = ?", cv.ID).
			Order("created_at DESC").
			First(&last).Error
		summary := ConversationSummary{Conversation: cv, MessageCount: count}
		if err == nil {
			m := last
			summary.LastMessage = &m
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentMessages returns the most recent limit messages in chronological
// (oldest-first) order. Older turns simply fall out of the window.
func (r *conversationRepository) RecentMessages(ctx context.Context, convID string, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if limit <= 0 {
		limit = 10
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, convID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update("updated_at", time.Now()).Error
}

// DeleteWithMessages removes the conversation and all of its messages.
// Returns gorm.ErrRecordNotFound when the caller does not own it.
func (r *conversationRepository) DeleteWithMessages(ctx context.Context, id, userUID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_uid = ?", id, userUID).Delete(&model.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error
	})
}
