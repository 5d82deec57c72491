package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"github.com/edimarket/marketplace-backend/internal/vecindex"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")
var ErrForbidden = errors.New("forbidden")

// Embedder is the embedding dependency of the services; satisfied by
// ai.EmbeddingClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchResult is one semantic-search hit with its denormalized listing.
type SearchResult struct {
	Listing    model.Listing
	Similarity float64
}

type ListingUpdate struct {
	Title       *string
	Description *string
	Category    *string
	PricePence  *int64
	Status      *string
}

type ListingService interface {
	Create(ctx context.Context, sellerUID, title, description string, pricePence int64, category *string) (*model.Listing, error)
	Update(ctx context.Context, id, sellerUID string, upd ListingUpdate) (*model.Listing, error)
	Get(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, limit, offset int, status, category string) ([]model.Listing, int64, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Listing, error)
	Search(ctx context.Context, query string, k int, minSimilarity float64) ([]SearchResult, error)
}

type listingService struct {
	repo     repository.ListingRepository
	index    vecindex.Index
	embedder Embedder
}

func NewListingService(repo repository.ListingRepository, index vecindex.Index, embedder Embedder) ListingService {
	return &listingService{repo: repo, index: index, embedder: embedder}
}

func (s *listingService) Create(ctx context.Context, sellerUID, title, description string, pricePence int64, category *string) (*model.Listing, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if sellerUID == "" {
		return nil, errors.New("seller is required")
	}
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	if description == "" {
		return nil, errors.New("invalid description")
	}
	if pricePence < 0 {
		return nil, errors.New("price must be non-negative")
	}
	if category != nil {
		trimmed := strings.TrimSpace(*category)
		if trimmed == "" {
			category = nil
		} else {
			category = &trimmed
		}
	}

	listing := &model.Listing{
		SellerUID:   sellerUID,
		Title:       title,
		Description: description,
		Category:    category,
		PricePence:  pricePence,
		Status:      model.ListingStatusActive,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}
	s.syncEmbedding(ctx, listing)
	return listing, nil
}

func (s *listingService) Update(ctx context.Context, id, sellerUID string, upd ListingUpdate) (*model.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if listing.SellerUID != sellerUID {
		return nil, ErrForbidden
	}

	textChanged := false
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" || len(t) > 120 {
			return nil, errors.New("invalid title")
		}
		if t != listing.Title {
			listing.Title = t
			textChanged = true
		}
	}
	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		if d == "" {
			return nil, errors.New("invalid description")
		}
		if d != listing.Description {
			listing.Description = d
			textChanged = true
		}
	}
	if upd.Category != nil {
		c := strings.TrimSpace(*upd.Category)
		var next *string
		if c != "" {
			next = &c
		}
		if !equalCategory(listing.Category, next) {
			listing.Category = next
			textChanged = true
		}
	}
	if upd.PricePence != nil {
		if *upd.PricePence < 0 {
			return nil, errors.New("price must be non-negative")
		}
		listing.PricePence = *upd.PricePence
	}
	if upd.Status != nil {
		if !model.ValidListingStatus(*upd.Status) {
			return nil, errors.New("invalid status")
		}
		listing.Status = *upd.Status
	}

	// The listing text is the embedding input, so a text change
	// invalidates the stored vector until re-embedding succeeds.
	if textChanged {
		listing.Embedding = nil
	}
	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, err
	}
	s.syncEmbedding(ctx, listing)
	return listing, nil
}

// syncEmbedding keeps the vector index consistent with the listing row:
// active listings get embedded (when needed) and upserted, everything
// else is removed. Embedding failures are non-fatal; the listing simply
// stays out of retrieval until the next write.
func (s *listingService) syncEmbedding(ctx context.Context, listing *model.Listing) {
	if listing.Status != model.ListingStatusActive {
		if err := s.index.Remove(ctx, listing.ID); err != nil {
			log.Printf("[index] listing=%s stage=remove_fail err=%v", listing.ID, err)
		}
		return
	}
	if listing.Embedding == nil {
		vec, err := s.embedder.Embed(ctx, ai.SearchText(listing.Title, listing.Description, listing.Category))
		if err != nil {
			log.Printf("[index] listing=%s stage=embed_fail err=%v", listing.ID, err)
			return
		}
		v := pgvector.NewVector(vec)
		listing.Embedding = &v
		if err := s.repo.Save(ctx, listing); err != nil {
			log.Printf("[index] listing=%s stage=save_embedding_fail err=%v", listing.ID, err)
			return
		}
	}
	if err := s.index.Upsert(ctx, listing.ID, listing.Embedding.Slice()); err != nil {
		log.Printf("[index] listing=%s stage=upsert_fail err=%v", listing.ID, err)
	}
}

func (s *listingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *listingService) List(ctx context.Context, limit, offset int, status, category string) ([]model.Listing, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, status, category)
}

func (s *listingService) ListBySeller(ctx context.Context, sellerUID string) ([]model.Listing, error) {
	return s.repo.ListBySeller(ctx, sellerUID)
}

func (s *listingService) Search(ctx context.Context, query string, k int, minSimilarity float64) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.Query(ctx, vec, k, minSimilarity)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	byID := make(map[string]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ListingID)
		byID[m.ListingID] = m.Similarity
	}
	listings, err := s.repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(listings))
	for _, l := range listings {
		results = append(results, SearchResult{Listing: l, Similarity: byID[l.ID]})
	}
	return results, nil
}

func equalCategory(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
