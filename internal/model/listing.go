package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

const (
	ListingStatusActive    = "active"
	ListingStatusReserved  = "reserved"
	ListingStatusSold      = "sold"
	ListingStatusWithdrawn = "withdrawn"
)

// EmbeddingDim is the dimensionality of listing embeddings. Changing it
// requires re-embedding every listing; the column type below must match.
const EmbeddingDim = 768

type Listing struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	SellerUID   string           `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	Title       string           `gorm:"size:120;not null" json:"title"`
	Description string           `gorm:"type:text;not null" json:"description"`
	Category    *string          `gorm:"size:64;index" json:"category,omitempty"`
	PricePence  int64            `gorm:"column:price_pence;not null" json:"pricePence"`
	Status      string           `gorm:"size:16;not null;default:active;index" json:"status"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// Retrievable reports whether the listing is eligible for vector search:
// only active listings with a present embedding are queryable.
func (l *Listing) Retrievable() bool {
	return l.Status == ListingStatusActive && l.Embedding != nil
}

func ValidListingStatus(s string) bool {
	switch s {
	case ListingStatusActive, ListingStatusReserved, ListingStatusSold, ListingStatusWithdrawn:
		return true
	}
	return false
}
