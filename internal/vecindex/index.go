package vecindex

import (
	"context"
	"errors"
)

// DefaultTopK bounds the candidate count when the caller passes k <= 0.
const DefaultTopK = 8

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one nearest-neighbour hit. Similarity is cosine similarity
// mapped to [-1, 1]; 1 means the query equals the stored vector.
type Match struct {
	ListingID  string
	Similarity float64
}

// Index answers nearest-neighbour queries over listing embeddings.
// Query results are ordered by descending similarity, ties broken by
// ascending listing id, and never include a match strictly below
// minSimilarity. An empty result is not an error.
type Index interface {
	Upsert(ctx context.Context, listingID string, vec []float32) error
	Remove(ctx context.Context, listingID string) error
	Query(ctx context.Context, vec []float32, k int, minSimilarity float64) ([]Match, error)
}
