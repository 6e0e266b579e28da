package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// Searcher is the consumer interface over the chunk store (ISP).
type Searcher interface {
	SearchDense(ctx context.Context, vector []float32, topK int, course string) ([]domain.Hit, error)
	SearchSparse(ctx context.Context, query string, topK int, course string) ([]domain.Hit, error)
}

// SearchHybrid runs dense and sparse search and fuses the two rankings.
// It returns the fused hits plus the best dense similarity, which is the
// signal the score gate compares against. A dense failure fails the call;
// a sparse failure degrades to the dense-only list unchanged.
func SearchHybrid(
	ctx context.Context, s Searcher, logger *zap.Logger,
	vector []float32, query string, topK int, course string,
) ([]domain.Hit, float64, error) {
	dense, err := s.SearchDense(ctx, vector, topK, course)
	if err != nil {
		return nil, 0, fmt.Errorf("dense search: %w", err)
	}

	bestScore := 0.0
	if len(dense) > 0 {
		bestScore = dense[0].Score
	}

	sparse, err := s.SearchSparse(ctx, query, topK, course)
	if err != nil {
		logger.Warn("sparse search failed, falling back to dense only", zap.Error(err))
		if len(dense) > topK {
			dense = dense[:topK]
		}
		return dense, bestScore, nil
	}

	return FuseRRF(dense, sparse, topK), bestScore, nil
}
