package vecindex

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// PGVector answers nearest-neighbour queries straight off the listings
// table using the pgvector cosine-distance operator. Eligibility (active
// status, present embedding) is enforced at query time, so a listing
// whose status changes is excluded from the next query without any
// explicit index maintenance.
type PGVector struct {
	db *gorm.DB
}

func NewPGVector(db *gorm.DB) *PGVector {
	return &PGVector{db: db}
}

func (p *PGVector) SetDB(db *gorm.DB) {
	p.db = db
}

func (p *PGVector) Upsert(ctx context.Context, listingID string, vec []float32) error {
	if p.db == nil {
		return ErrDBNotReady
	}
	return p.db.WithContext(ctx).
		Table("listings").
		Where("id = ?", listingID).
		Update("embedding", pgvector.NewVector(vec)).Error
}

func (p *PGVector) Remove(ctx context.Context, listingID string) error {
	if p.db == nil {
		return ErrDBNotReady
	}
	return p.db.WithContext(ctx).
		Table("listings").
		Where("id = ?", listingID).
		Update("embedding", gorm.Expr("NULL")).Error
}

func (p *PGVector) Query(ctx context.Context, vec []float32, k int, minSimilarity float64) ([]Match, error) {
	if p.db == nil {
		return nil, ErrDBNotReady
	}
	if k <= 0 {
		k = DefaultTopK
	}
	qv := pgvector.NewVector(vec)
	var rows []struct {
		ID         string
		Similarity float64
	}
	// <=> is cosine distance; similarity = 1 - distance.
	err := p.db.WithContext(ctx).Raw(`
		SELECT id, 1 - (embedding <=> ?) AS similarity
		FROM listings
		WHERE status = 'active'
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> ?) >= ?
		ORDER BY embedding <=> ?, id
		LIMIT ?`,
		qv, qv, minSimilarity, qv, k,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, Match{ListingID: r.ID, Similarity: r.Similarity})
	}
	return matches, nil
}
