package service

import (
	"context"
	"errors"
	"testing"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/vecindex"
)

type chatFixture struct {
	convs       *fakeConvRepo
	listings    *fakeListingRepo
	index       *vecindex.Memory
	embedder    *fakeEmbedder
	recommender *fakeRecommender
	svc         ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		convs:       newFakeConvRepo(),
		listings:    newFakeListingRepo(),
		index:       vecindex.NewMemory(3),
		embedder:    &fakeEmbedder{def: []float32{1, 0, 0}},
		recommender: &fakeRecommender{},
	}
	f.svc = NewChatService(f.convs, f.listings, f.index, f.embedder, f.recommender, ChatOptions{})
	return f
}

func (f *chatFixture) addListing(t *testing.T, id, title, status string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	err := f.listings.Create(ctx, &model.Listing{ID: id, SellerUID: "seller", Title: title, Description: "d", Status: status})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if vec != nil {
		if err := f.index.Upsert(ctx, id, vec); err != nil {
			t.Fatalf("index upsert: %v", err)
		}
	}
}

func TestChatCreatesConversation(t *testing.T) {
	f := newChatFixture(t)
	f.recommender.result = &ai.RecommendResult{Text: "hi there"}

	res, err := f.svc.Chat(context.Background(), "user-1", "", "looking for a bike")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.ConversationID == "" {
		t.Fatalf("no conversation created")
	}
	if res.Text != "hi there" {
		t.Fatalf("text=%q", res.Text)
	}

	msgs := f.convs.messages[res.ConversationID]
	if len(msgs) != 2 {
		t.Fatalf("got=%d messages want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "looking for a bike" {
		t.Fatalf("first message=%+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].Content != "hi there" {
		t.Fatalf("second message=%+v", msgs[1])
	}
	if len(f.convs.touched) != 1 {
		t.Fatalf("touched=%v want one touch", f.convs.touched)
	}
}

func TestChatReusesExistingConversation(t *testing.T) {
	f := newChatFixture(t)
	cv, _ := f.convs.Create(context.Background(), "user-1")

	res, err := f.svc.Chat(context.Background(), "user-1", cv.ID, "hello again")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.ConversationID != cv.ID {
		t.Fatalf("conv=%s want %s", res.ConversationID, cv.ID)
	}
	if len(f.convs.conversations) != 1 {
		t.Fatalf("a second conversation was created")
	}
}

func TestChatForeignConversation(t *testing.T) {
	f := newChatFixture(t)
	cv, _ := f.convs.Create(context.Background(), "owner")

	_, err := f.svc.Chat(context.Background(), "intruder", cv.ID, "hi")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err=%v want ErrConversationNotFound", err)
	}
	if len(f.convs.messages[cv.ID]) != 0 {
		t.Fatalf("messages were written to a foreign conversation")
	}
	if f.recommender.calls != 0 {
		t.Fatalf("model was called")
	}
}

func TestChatEmptyMessageFailsFast(t *testing.T) {
	f := newChatFixture(t)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Chat(context.Background(), "user-1", "", msg)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("message=%q err=%v want ErrInvalidInput", msg, err)
		}
	}
	if len(f.convs.conversations) != 0 {
		t.Fatalf("conversation created for empty message")
	}
	if len(f.embedder.calls) != 0 || f.recommender.calls != 0 {
		t.Fatalf("remote calls made for empty message")
	}
}

func TestChatDropsHallucinatedIDs(t *testing.T) {
	f := newChatFixture(t)
	f.addListing(t, "real", "Bike", model.ListingStatusActive, []float32{1, 0, 0})
	f.recommender.result = &ai.RecommendResult{
		Text: "try these",
		Recommendations: []model.Recommendation{
			{ListingID: "real", Reason: "matches"},
			{ListingID: "made-up", Reason: "does not exist"},
		},
	}

	res, err := f.svc.Chat(context.Background(), "user-1", "", "bike please")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].ListingID != "real" {
		t.Fatalf("recommendations=%+v want only real", res.Recommendations)
	}

	msgs := f.convs.messages[res.ConversationID]
	stored := msgs[1].DecodeRecommendations()
	if len(stored) != 1 || stored[0].ListingID != "real" {
		t.Fatalf("stored=%+v want only real", stored)
	}
}

func TestChatSkipsNonActiveCandidates(t *testing.T) {
	f := newChatFixture(t)
	f.addListing(t, "active", "Bike", model.ListingStatusActive, []float32{1, 0, 0})
	f.addListing(t, "sold", "Other Bike", model.ListingStatusSold, []float32{1, 0, 0})

	_, err := f.svc.Chat(context.Background(), "user-1", "", "bike please")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	cands := f.recommender.lastIn.Candidates
	if len(cands) != 1 || cands[0].ListingID != "active" {
		t.Fatalf("candidates=%+v want only active", cands)
	}
}

func TestChatNoCandidates(t *testing.T) {
	f := newChatFixture(t)
	f.recommender.result = &ai.RecommendResult{Text: "what are you after?"}

	res, err := f.svc.Chat(context.Background(), "user-1", "", "something obscure")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(f.recommender.lastIn.Candidates) != 0 {
		t.Fatalf("candidates=%+v want none", f.recommender.lastIn.Candidates)
	}
	if len(res.Recommendations) != 0 {
		t.Fatalf("recommendations=%+v want none", res.Recommendations)
	}
}

func TestChatModelFailureKeepsUserMessage(t *testing.T) {
	f := newChatFixture(t)
	f.recommender.err = ai.ErrModelUnavailable

	_, err := f.svc.Chat(context.Background(), "user-1", "", "hello")
	if !errors.Is(err, ai.ErrModelUnavailable) {
		t.Fatalf("err=%v want ErrModelUnavailable", err)
	}

	if len(f.convs.conversations) != 1 {
		t.Fatalf("conversation missing after model failure")
	}
	for _, msgs := range f.convs.messages {
		if len(msgs) != 1 || msgs[0].Role != model.RoleUser {
			t.Fatalf("messages=%+v want the user message only", msgs)
		}
	}
}

func TestChatEmbedFailureKeepsUserMessage(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.err = ai.ErrEmbeddingUnavailable

	_, err := f.svc.Chat(context.Background(), "user-1", "", "hello")
	if !errors.Is(err, ai.ErrEmbeddingUnavailable) {
		t.Fatalf("err=%v want ErrEmbeddingUnavailable", err)
	}
	if f.recommender.calls != 0 {
		t.Fatalf("model called despite embedding failure")
	}
	for _, msgs := range f.convs.messages {
		if len(msgs) != 1 || msgs[0].Role != model.RoleUser {
			t.Fatalf("messages=%+v want the user message only", msgs)
		}
	}
}

func TestChatHistoryWindow(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	cv, _ := f.convs.Create(ctx, "user-1")
	for i := 0; i < 15; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		err := f.convs.CreateMessage(ctx, &model.Message{ConversationID: cv.ID, Role: role, Content: "older turn"})
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	_, err := f.svc.Chat(ctx, "user-1", cv.ID, "the newest message")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	history := f.recommender.lastIn.History
	if len(history) != 10 {
		t.Fatalf("got=%d history turns want 10", len(history))
	}
	// chronological order, ending with the turn just persisted
	last := history[len(history)-1]
	if last.Role != model.RoleUser || last.Content != "the newest message" {
		t.Fatalf("last turn=%+v want the current message", last)
	}
}

func TestDeleteConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	cv, _ := f.convs.Create(ctx, "user-1")

	if err := f.svc.DeleteConversation(ctx, "someone-else", cv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err=%v want ErrConversationNotFound", err)
	}
	if err := f.svc.DeleteConversation(ctx, "user-1", cv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := f.svc.GetConversation(ctx, "user-1", cv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err=%v want ErrConversationNotFound after delete", err)
	}
}
