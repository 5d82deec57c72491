package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/chatctx"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"github.com/edimarket/marketplace-backend/internal/vecindex"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput         = errors.New("invalid_input")
	ErrConversationNotFound = errors.New("conversation_not_found")
)

// Recommender is the chat-model dependency of ChatService; satisfied by
// ai.RecommendClient.
type Recommender interface {
	Recommend(ctx context.Context, in ai.RecommendInput) (*ai.RecommendResult, error)
}

// ChatResult is what a completed turn returns to the caller.
type ChatResult struct {
	ConversationID  string
	Text            string
	Recommendations []model.Recommendation
}

type ChatOptions struct {
	TopK          int
	MinSimilarity float64
	HistoryLimit  int
}

type ChatService interface {
	// Chat runs one recommendation turn. An empty conversationID creates
	// a new conversation owned by userUID; a conversationID the caller
	// does not own fails with ErrConversationNotFound.
	Chat(ctx context.Context, userUID, conversationID, message string) (*ChatResult, error)
	ListConversations(ctx context.Context, userUID string) ([]repository.ConversationSummary, error)
	GetConversation(ctx context.Context, userUID, id string) (*model.Conversation, []model.Message, error)
	DeleteConversation(ctx context.Context, userUID, id string) error
}

type chatService struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	index       vecindex.Index
	embedder    Embedder
	recommender Recommender
	opts        ChatOptions
}

func NewChatService(convRepo repository.ConversationRepository, listingRepo repository.ListingRepository, index vecindex.Index, embedder Embedder, recommender Recommender, opts ChatOptions) ChatService {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = 0.3
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &chatService{
		convRepo:    convRepo,
		listingRepo: listingRepo,
		index:       index,
		embedder:    embedder,
		recommender: recommender,
		opts:        opts,
	}
}

func (s *chatService) Chat(ctx context.Context, userUID, conversationID, message string) (*ChatResult, error) {
	rid := chatctx.RID(ctx)

	// Fail fast before any write or remote call.
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	cv, err := s.resolveConversation(ctx, userUID, conversationID)
	if err != nil {
		return nil, err
	}
	ctx = chatctx.WithConversationID(ctx, cv.ID)

	// The user's message is persisted before anything that can fail
	// remotely, so it survives a failed turn.
	userMsg := &model.Message{ConversationID: cv.ID, Role: model.RoleUser, Content: message}
	if err := s.convRepo.CreateMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.convRepo.RecentMessages(ctx, cv.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}

	// Retrieval embeds only the current message, not the history.
	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		log.Printf("[chat] rid=%s conv=%s stage=embed_fail err=%v", rid, cv.ID, err)
		return nil, err
	}
	matches, err := s.index.Query(ctx, vec, s.opts.TopK, s.opts.MinSimilarity)
	if err != nil {
		return nil, err
	}
	cands, err := s.resolveCandidates(ctx, matches)
	if err != nil {
		return nil, err
	}
	log.Printf("[chat] rid=%s conv=%s stage=retrieved candidates=%d", rid, cv.ID, len(cands))

	turns := make([]ai.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ai.ChatTurn{Role: m.Role, Content: m.Content})
	}
	res, err := s.recommender.Recommend(ctx, ai.RecommendInput{History: turns, Candidates: cands})
	if err != nil {
		log.Printf("[chat] rid=%s conv=%s stage=model_fail err=%v", rid, cv.ID, err)
		return nil, err
	}

	// Ground truth is the candidate set, not the model's claims.
	valid := ai.FilterToCandidates(res.Recommendations, cands)
	if dropped := len(res.Recommendations) - len(valid); dropped > 0 {
		log.Printf("[chat] rid=%s conv=%s stage=validate dropped=%d", rid, cv.ID, dropped)
	}

	encoded, err := model.EncodeRecommendations(valid)
	if err != nil {
		return nil, err
	}
	assistantMsg := &model.Message{
		ConversationID:  cv.ID,
		Role:            model.RoleAssistant,
		Content:         res.Text,
		Recommendations: encoded,
	}
	if err := s.convRepo.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	if err := s.convRepo.Touch(ctx, cv.ID); err != nil {
		log.Printf("[chat] rid=%s conv=%s stage=touch_fail err=%v", rid, cv.ID, err)
	}

	log.Printf("[chat] rid=%s conv=%s stage=done recommendations=%d", rid, cv.ID, len(valid))
	return &ChatResult{ConversationID: cv.ID, Text: res.Text, Recommendations: valid}, nil
}

func (s *chatService) resolveConversation(ctx context.Context, userUID, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return s.convRepo.Create(ctx, userUID)
	}
	cv, err := s.convRepo.FindByIDAndOwner(ctx, conversationID, userUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return cv, nil
}

// resolveCandidates denormalizes index matches into prompt candidates,
// re-checking listing status so anything that went non-active since the
// query is dropped before the model ever sees it.
func (s *chatService) resolveCandidates(ctx context.Context, matches []vecindex.Match) ([]ai.Candidate, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(matches))
	simByID := make(map[string]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ListingID)
		simByID[m.ListingID] = m.Similarity
	}
	listings, err := s.listingRepo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	cands := make([]ai.Candidate, 0, len(listings))
	for _, l := range listings {
		category := ""
		if l.Category != nil {
			category = *l.Category
		}
		cands = append(cands, ai.Candidate{
			ListingID:   l.ID,
			Title:       l.Title,
			Description: l.Description,
			Category:    category,
			PricePence:  l.PricePence,
			Similarity:  simByID[l.ID],
		})
	}
	return cands, nil
}

func (s *chatService) ListConversations(ctx context.Context, userUID string) ([]repository.ConversationSummary, error) {
	return s.convRepo.ListByUser(ctx, userUID)
}

func (s *chatService) GetConversation(ctx context.Context, userUID, id string) (*model.Conversation, []model.Message, error) {
	cv, err := s.convRepo.FindByIDAndOwner(ctx, id, userUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, err
	}
	msgs, err := s.convRepo.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return cv, msgs, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, userUID, id string) error {
	if err := s.convRepo.DeleteWithMessages(ctx, id, userUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}
