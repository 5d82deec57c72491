package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	Save(ctx context.Context, listing *model.Listing) error
	FindByID(ctx context.Context, id string) (*model.Listing, error)
	FindActiveByIDs(ctx context.Context, ids []string) ([]model.Listing, error)
	List(ctx context.Context, limit, offset int, status, category string) ([]model.Listing, int64, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Listing, error)
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) Save(ctx context.Context, listing *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindActiveByIDs returns only the listings that are currently active,
// preserving the order of ids. Used to re-check candidate eligibility
// right before a model call.
func (r *listingRepository) FindActiveByIDs(ctx context.Context, ids []string) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Listing
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, model.ListingStatusActive).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.Listing, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	ordered := make([]model.Listing, 0, len(rows))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

func (r *listingRepository) List(ctx context.Context, limit, offset int, status, category string) ([]model.Listing, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Model(&model.Listing{})
	if status = strings.TrimSpace(status); status != "" {
		q = q.Where("status = ?", status)
	}
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var listings []model.Listing
	if err := q.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var listings []model.Listing
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ?", sellerUID).
		Order("created_at desc").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}
