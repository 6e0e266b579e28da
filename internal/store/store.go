package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/campusbrain/campusbrain/internal/db"
	"github.com/campusbrain/campusbrain/internal/domain"
)

// backend is the consumer interface for chunk storage operations (ISP).
type backend interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Config holds chunk index parameters.
type Config struct {
	IndexName       string
	KeyPrefix       string
	Dim             int
	HNSWM           int
	HNSWEFConstruct int
}

// Store persists course material chunks and serves dense and sparse search over them.
type Store struct {
	backend backend
	cfg     Config
}

// New creates a chunk store on the given backend.
func New(b backend, cfg Config) *Store {
	if cfg.IndexName == "" {
		cfg.IndexName = "chunks-idx"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chunk:"
	}
	return &Store{backend: b, cfg: cfg}
}

var returnFields = []string{"text", "title", "section", "url", "course", "__vector_score"}

// EnsureCollection creates the chunk index if it does not exist yet.
// The vector dimension is fixed at creation time.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.backend.IndexExists(ctx, s.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", s.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(s.cfg.IndexName).
		Prefix(s.cfg.KeyPrefix).
		Tag("course").
		Text("text").
		VectorHNSW("vector", s.cfg.Dim, db.DistanceCosine, s.cfg.HNSWM, s.cfg.HNSWEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := s.backend.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", s.cfg.IndexName, err)
	}
	return nil
}

// Upsert stores chunks with their embedding vectors. Point ids are
// normalized: numeric and UUID ids are kept, anything else gets a fresh UUID.
// The caller's raw id survives as the original_id field either way, and any
// extra chunk metadata is kept as a JSON payload field.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks vs %d vectors", domain.ErrInvalidArgument, len(chunks), len(vectors))
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i, c := range chunks {
		if s.cfg.Dim > 0 && len(vectors[i]) != s.cfg.Dim {
			return fmt.Errorf("%w: chunk %s has dim %d, index wants %d",
				domain.ErrVectorDimMismatch, c.ID, len(vectors[i]), s.cfg.Dim)
		}
		id := NormalizePointID(c.ID)
		fields := map[string]string{
			"original_id": c.ID,
			"text":        c.Text,
			"title":       c.Title,
			"section":     c.Section,
			"url":         c.URL,
			"course":      c.Course,
			"vector":      encodeVector(vectors[i]),
		}
		if len(c.Extra) > 0 {
			raw, err := json.Marshal(c.Extra)
			if err != nil {
				return fmt.Errorf("%w: chunk %s payload: %v", domain.ErrInvalidArgument, c.ID, err)
			}
			fields["payload"] = string(raw)
		}
		items = append(items, db.HashSetItem{
			Key:    s.cfg.KeyPrefix + id,
			Fields: fields,
		})
	}

	if err := s.backend.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(items), err)
	}
	return nil
}

// SearchDense runs vector similarity search. Hits carry 0-based ranks in
// result order. An empty course searches all courses.
func (s *Store) SearchDense(ctx context.Context, vector []float32, topK int, course string) ([]domain.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    s.cfg.IndexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
		Filters:      s.courseFilter(course),
	}

	sr, err := s.backend.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search dense: %w", err)
	}
	return s.toHits(sr), nil
}

// SearchSparse runs BM25 keyword search. Hits carry 0-based ranks in
// result order.
func (s *Store) SearchSparse(ctx context.Context, query string, topK int, course string) ([]domain.Hit, error) {
	q := &db.TextQuery{
		IndexName:    s.cfg.IndexName,
		Query:        query,
		TopK:         topK,
		ReturnFields: returnFields,
		Filters:      s.courseFilter(course),
	}

	sr, err := s.backend.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search sparse: %w", err)
	}
	return s.toHits(sr), nil
}

func (s *Store) courseFilter(course string) []db.TagFilter {
	if course == "" {
		return nil
	}
	return []db.TagFilter{{Field: "course", Value: course}}
}

func (s *Store) toHits(sr *db.SearchResult) []domain.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		hits = append(hits, domain.Hit{
			ID:    strings.TrimPrefix(entry.Key, s.cfg.KeyPrefix),
			Score: entry.Score,
			Rank:  i,
			Payload: domain.Payload{
				Text:    entry.Fields["text"],
				Title:   entry.Fields["title"],
				Section: entry.Fields["section"],
				URL:     entry.Fields["url"],
				Course:  entry.Fields["course"],
			},
		})
	}
	return hits
}

// NormalizePointID maps an arbitrary source id onto a valid point id.
// Unsigned integer strings and UUIDs pass through, everything else is
// replaced with a fresh random UUID.
func NormalizePointID(raw string) string {
	if raw == "" {
		return uuid.NewString()
	}
	if _, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return raw
	}
	if _, err := uuid.Parse(raw); err == nil {
		return raw
	}
	return uuid.NewString()
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
