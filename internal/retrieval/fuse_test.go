package retrieval

import (
	"math"
	"testing"

	"github.com/campusbrain/campusbrain/internal/domain"
)

func makeHit(id string, rank int) domain.Hit {
	return domain.Hit{ID: id, Rank: rank, Payload: domain.Payload{Text: "text-" + id}}
}

func makeHits(ids ...string) []domain.Hit {
	hits := make([]domain.Hit, len(ids))
	for i, id := range ids {
		hits[i] = makeHit(id, i)
	}
	return hits
}

func TestFuseRRF_DisjointLists(t *testing.T) {
	dense := makeHits("a", "b")
	sparse := makeHits("c", "d")

	results := FuseRRF(dense, sparse, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	ids := make(map[string]bool)
	for _, h := range results {
		ids[h.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !ids[id] {
			t.Errorf("missing result %s", id)
		}
	}
}

func TestFuseRRF_ScoresSumAcrossModalities(t *testing.T) {
	dense := makeHits("a", "b", "c")
	sparse := makeHits("b", "d", "a")

	results := FuseRRF(dense, sparse, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	want := map[string]float64{
		"a": 1.0/61 + 1.0/63,
		"b": 1.0/62 + 1.0/61,
		"c": 1.0 / 63,
		"d": 1.0 / 62,
	}
	for _, h := range results {
		if math.Abs(h.Score-want[h.ID]) > 1e-12 {
			t.Errorf("score(%s) = %.9f, want %.9f", h.ID, h.Score, want[h.ID])
		}
	}

	// b: 1/62+1/61 > a: 1/61+1/63 > d: 1/62 > c: 1/63
	wantOrder := []string{"b", "a", "d", "c"}
	for i, id := range wantOrder {
		if results[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, results[i].ID, id)
		}
	}
}

func TestFuseRRF_SortedDescending(t *testing.T) {
	dense := makeHits("a", "b", "c", "d")
	sparse := makeHits("d", "c", "e")

	results := FuseRRF(dense, sparse, 10)
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	for i, h := range results {
		if h.Rank != i {
			t.Errorf("rank at %d = %d, want %d", i, h.Rank, i)
		}
	}
}

func TestFuseRRF_TieBreaksByDenseRank(t *testing.T) {
	// equal-rank hits from disjoint lists tie exactly
	dense := makeHits("a", "b")
	sparse := makeHits("c", "d")

	results := FuseRRF(dense, sparse, 10)
	// a ties c (rank 0 each), b ties d (rank 1 each); dense wins ties
	wantOrder := []string{"a", "c", "b", "d"}
	for i, id := range wantOrder {
		if results[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, results[i].ID, id)
		}
	}
}

func TestFuseRRF_KeepsDensePayloadOnOverlap(t *testing.T) {
	dense := []domain.Hit{{ID: "a", Payload: domain.Payload{Text: "from dense", URL: "https://x/a"}}}
	sparse := []domain.Hit{{ID: "a", Payload: domain.Payload{Text: "from sparse"}}}

	results := FuseRRF(dense, sparse, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Payload.Text != "from dense" {
		t.Errorf("payload = %q, want dense payload", results[0].Payload.Text)
	}
}

func TestFuseRRF_TruncatesToTopK(t *testing.T) {
	dense := makeHits("a", "b", "c")
	sparse := makeHits("d", "e", "f")

	results := FuseRRF(dense, sparse, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		if got := FuseRRF(nil, nil, 10); len(got) != 0 {
			t.Fatalf("expected 0 results, got %d", len(got))
		}
	})

	t.Run("dense empty", func(t *testing.T) {
		results := FuseRRF(nil, makeHits("a"), 10)
		if len(results) != 1 || results[0].ID != "a" {
			t.Fatalf("unexpected results: %v", results)
		}
	})

	t.Run("sparse empty", func(t *testing.T) {
		results := FuseRRF(makeHits("a", "b"), nil, 10)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
	})
}
