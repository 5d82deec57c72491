package vecindex

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
)

func seedIndex(t *testing.T, m *Memory, vecs map[string][]float32) {
	t.Helper()
	for id, v := range vecs {
		if err := m.Upsert(context.Background(), id, v); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
}

func TestQuerySelfSimilarityFirst(t *testing.T) {
	m := NewMemory(3)
	seedIndex(t, m, map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
	})

	got, err := m.Query(context.Background(), []float32{1, 0, 0}, 10, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) == 0 || got[0].ListingID != "a" {
		t.Fatalf("got=%v want a first", got)
	}
	if math.Abs(got[0].Similarity-1) > 1e-6 {
		t.Fatalf("self similarity=%v want 1", got[0].Similarity)
	}
}

func TestQueryOrderingNonIncreasing(t *testing.T) {
	m := NewMemory(3)
	seedIndex(t, m, map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.8, 0.2, 0},
		"c": {0.2, 0.8, 0},
		"d": {0, 0, 1},
	})

	got, err := m.Query(context.Background(), []float32{1, 0.1, 0}, 10, -1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Fatalf("results not sorted at %d: %v", i, got)
		}
	}
}

func TestQueryThresholdExcludes(t *testing.T) {
	m := NewMemory(3)
	seedIndex(t, m, map[string][]float32{
		"near": {1, 0, 0},
		"far":  {0, 1, 0},
	})

	got, err := m.Query(context.Background(), []float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ListingID != "near" {
		t.Fatalf("got=%v want only near", got)
	}
	for _, match := range got {
		if match.Similarity < 0.5 {
			t.Fatalf("match below threshold: %v", match)
		}
	}
}

func TestQueryTieBreaksByID(t *testing.T) {
	m := NewMemory(3)
	seedIndex(t, m, map[string][]float32{
		"b": {1, 0, 0},
		"a": {1, 0, 0},
		"c": {2, 0, 0}, // same direction, same cosine
	})

	got, err := m.Query(context.Background(), []float32{1, 0, 0}, 10, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got=%d matches want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ListingID != want {
			t.Fatalf("position %d got=%s want=%s (%v)", i, got[i].ListingID, want, got)
		}
	}
}

func TestQueryRespectsK(t *testing.T) {
	m := NewMemory(3)
	for i := 0; i < 10; i++ {
		seedIndex(t, m, map[string][]float32{fmt.Sprintf("l%02d", i): {1, float32(i) * 0.01, 0}})
	}

	got, err := m.Query(context.Background(), []float32{1, 0, 0}, 4, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got=%d matches want 4", len(got))
	}
}

func TestUpsertOverwrites(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	seedIndex(t, m, map[string][]float32{"a": {1, 0, 0}})
	if err := m.Upsert(ctx, "a", []float32{0, 1, 0}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("len=%d want 1", m.Len())
	}

	got, err := m.Query(ctx, []float32{0, 1, 0}, 1, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Similarity < 0.999 {
		t.Fatalf("got=%v want updated vector for a", got)
	}
}

func TestRemove(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	seedIndex(t, m, map[string][]float32{"a": {1, 0, 0}, "b": {0, 1, 0}})

	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Remove(ctx, "missing"); err != nil {
		t.Fatalf("remove missing id: %v", err)
	}

	got, err := m.Query(ctx, []float32{1, 0, 0}, 10, -1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, match := range got {
		if match.ListingID == "a" {
			t.Fatalf("removed listing still returned: %v", got)
		}
	}
}

func TestDimensionMismatch(t *testing.T) {
	m := NewMemory(3)
	if err := m.Upsert(context.Background(), "a", []float32{1, 0}); err != ErrDimensionMismatch {
		t.Fatalf("upsert err=%v want ErrDimensionMismatch", err)
	}
	if _, err := m.Query(context.Background(), []float32{1, 0, 0, 0}, 5, 0); err != ErrDimensionMismatch {
		t.Fatalf("query err=%v want ErrDimensionMismatch", err)
	}
}

func TestZeroVectorNeverMatches(t *testing.T) {
	m := NewMemory(3)
	seedIndex(t, m, map[string][]float32{"a": {1, 0, 0}})

	got, err := m.Query(context.Background(), []float32{0, 0, 0}, 5, 0.1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got=%v want no matches for zero query", got)
	}
}

func TestConcurrentUpsertAndQuery(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := m.Upsert(ctx, id, []float32{1, float32(i), 0}); err != nil {
					t.Errorf("upsert: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := m.Query(ctx, []float32{1, 0, 0}, 5, 0); err != nil {
					t.Errorf("query: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if m.Len() != 200 {
		t.Fatalf("len=%d want 200", m.Len())
	}
}
