package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

// In-memory stand-ins for the repositories and remote clients, so the
// service tests exercise the real orchestration logic end to end.

type fakeConvRepo struct {
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	seq           int
	createErr     error
	touched       []string
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
	}
}

func (r *fakeConvRepo) Create(_ context.Context, userUID string) (*model.Conversation, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	cv := &model.Conversation{
		ID:        fmt.Sprintf("conv-%d", r.seq),
		UserUID:   userUID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.conversations[cv.ID] = cv
	return cv, nil
}

func (r *fakeConvRepo) FindByIDAndOwner(_ context.Context, id, userUID string) (*model.Conversation, error) {
	cv, ok := r.conversations[id]
	if !ok || cv.UserUID != userUID {
		return nil, gorm.ErrRecordNotFound
	}
	return cv, nil
}

func (r *fakeConvRepo) ListByUser(_ context.Context, userUID string) ([]repository.ConversationSummary, error) {
	var out []repository.ConversationSummary
	for _, cv := range r.conversations {
		if cv.UserUID != userUID {
			continue
		}
		s := repository.ConversationSummary{Conversation: *cv, MessageCount: int64(len(r.messages[cv.ID]))}
		if msgs := r.messages[cv.ID]; len(msgs) > 0 {
			m := msgs[len(msgs)-1]
			s.LastMessage = &m
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeConvRepo) CreateMessage(_ context.Context, msg *model.Message) error {
	if _, ok := r.conversations[msg.ConversationID]; !ok {
		return errors.New("unknown conversation")
	}
	r.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", r.seq)
	}
	msg.CreatedAt = time.Now()
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *fakeConvRepo) ListMessages(_ context.Context, convID string) ([]model.Message, error) {
	return append([]model.Message(nil), r.messages[convID]...), nil
}

func (r *fakeConvRepo) RecentMessages(_ context.Context, convID string, limit int) ([]model.Message, error) {
	msgs := r.messages[convID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]model.Message(nil), msgs...), nil
}

func (r *fakeConvRepo) Touch(_ context.Context, convID string) error {
	r.touched = append(r.touched, convID)
	return nil
}

func (r *fakeConvRepo) DeleteWithMessages(_ context.Context, id, userUID string) error {
	cv, ok := r.conversations[id]
	if !ok || cv.UserUID != userUID {
		return gorm.ErrRecordNotFound
	}
	delete(r.conversations, id)
	delete(r.messages, id)
	return nil
}

func (r *fakeConvRepo) SetDB(_ *gorm.DB) {}

type fakeListingRepo struct {
	listings map[string]*model.Listing
	seq      int
	saveErr  error
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[string]*model.Listing)}
}

func (r *fakeListingRepo) Create(_ context.Context, listing *model.Listing) error {
	r.seq++
	if listing.ID == "" {
		listing.ID = fmt.Sprintf("listing-%d", r.seq)
	}
	cp := *listing
	r.listings[listing.ID] = &cp
	return nil
}

func (r *fakeListingRepo) Save(_ context.Context, listing *model.Listing) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *listing
	r.listings[listing.ID] = &cp
	return nil
}

func (r *fakeListingRepo) FindByID(_ context.Context, id string) (*model.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeListingRepo) FindActiveByIDs(_ context.Context, ids []string) ([]model.Listing, error) {
	var out []model.Listing
	for _, id := range ids {
		if l, ok := r.listings[id]; ok && l.Status == model.ListingStatusActive {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) List(_ context.Context, limit, offset int, status, category string) ([]model.Listing, int64, error) {
	var out []model.Listing
	for _, l := range r.listings {
		if status != "" && l.Status != status {
			continue
		}
		if category != "" && (l.Category == nil || *l.Category != category) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeListingRepo) ListBySeller(_ context.Context, sellerUID string) ([]model.Listing, error) {
	var out []model.Listing
	for _, l := range r.listings {
		if l.SellerUID == sellerUID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) SetDB(_ *gorm.DB) {}

type fakeEmbedder struct {
	vecs  map[string][]float32
	def   []float32
	err   error
	calls []string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	return e.def, nil
}

type fakeRecommender struct {
	result *ai.RecommendResult
	err    error
	lastIn *ai.RecommendInput
	calls  int
}

func (r *fakeRecommender) Recommend(_ context.Context, in ai.RecommendInput) (*ai.RecommendResult, error) {
	r.calls++
	cp := in
	r.lastIn = &cp
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &ai.RecommendResult{Text: "ok"}, nil
}
