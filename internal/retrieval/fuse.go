package retrieval

import (
	"sort"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// FuseRRF merges dense and sparse hit lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i + 1) for each ranking where d appears.
// When a hit appears in both lists, the dense payload is kept. Ties in fused
// score break by original dense rank, with sparse-only hits ordered after.
func FuseRRF(dense, sparse []domain.Hit, topK int) []domain.Hit {
	type scored struct {
		hit       domain.Hit
		score     float64
		denseRank int
		otherRank int
	}

	const unranked = 1 << 30

	merged := make(map[string]*scored, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))

	for rank, h := range dense {
		merged[h.ID] = &scored{
			hit:       h,
			score:     1.0 / float64(rrfK+rank+1),
			denseRank: rank,
			otherRank: unranked,
		}
		order = append(order, h.ID)
	}

	for rank, h := range sparse {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[h.ID]; ok {
			existing.score += s
			// dense payload takes priority
		} else {
			merged[h.ID] = &scored{hit: h, score: s, denseRank: unranked, otherRank: rank}
			order = append(order, h.ID)
		}
	}

	results := make([]*scored, 0, len(order))
	for _, id := range order {
		results = append(results, merged[id])
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].denseRank != results[j].denseRank {
			return results[i].denseRank < results[j].denseRank
		}
		return results[i].otherRank < results[j].otherRank
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	out := make([]domain.Hit, len(results))
	for i, s := range results {
		out[i] = s.hit
		out[i].Score = s.score
		out[i].Rank = i
	}
	return out
}
