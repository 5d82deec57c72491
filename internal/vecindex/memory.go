package vecindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force cosine-similarity index guarded by a RWMutex.
// It is used by tests and as a fallback when no database is configured;
// upserts are visible to concurrent queries as soon as they return.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float32
}

func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, vectors: make(map[string][]float32)}
}

func (m *Memory) Upsert(_ context.Context, listingID string, vec []float32) error {
	if m.dim > 0 && len(vec) != m.dim {
		return ErrDimensionMismatch
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	m.mu.Lock()
	m.vectors[listingID] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, listingID string) error {
	m.mu.Lock()
	delete(m.vectors, listingID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Query(_ context.Context, vec []float32, k int, minSimilarity float64) ([]Match, error) {
	if m.dim > 0 && len(vec) != m.dim {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		k = DefaultTopK
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.vectors))
	for id, v := range m.vectors {
		sim := cosine(vec, v)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{ListingID: id, Similarity: sim})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ListingID < matches[j].ListingID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len reports the number of indexed listings.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
