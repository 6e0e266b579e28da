package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// Embedder turns texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists chunks with their vectors.
type ChunkStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// Indexer embeds course material chunks and writes them to the vector store.
type Indexer struct {
	embedder Embedder
	store    ChunkStore
	logger   *zap.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(embedder Embedder, store ChunkStore, logger *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, store: store, logger: logger}
}

// IndexResult reports how many points were written and at what dimensionality.
type IndexResult struct {
	Count int `json:"count"`
	Dim   int `json:"dim"`
}

// Index embeds the chunks and upserts them. The embedded text carries the
// title and section as labeled prefix lines so the vector captures document
// structure, while the stored payload keeps the raw text.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.Chunk) (IndexResult, error) {
	if len(chunks) == 0 {
		return IndexResult{}, nil
	}

	normalized := make([]domain.Chunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			return IndexResult{}, fmt.Errorf("%w: chunk %q has no text", domain.ErrInvalidArgument, c.ID)
		}
		if c.Section == "" {
			c.Section = sectionFromExtra(c.Extra)
		}
		normalized[i] = c
		texts[i] = embedText(c)
	}
	chunks = normalized

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return IndexResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return IndexResult{}, fmt.Errorf("%w: embedded %d of %d chunks",
			domain.ErrEmbeddingProviderError, len(vectors), len(chunks))
	}

	if err := ix.store.EnsureCollection(ctx); err != nil {
		return IndexResult{}, fmt.Errorf("ensure collection: %w", err)
	}
	if err := ix.store.Upsert(ctx, chunks, vectors); err != nil {
		return IndexResult{}, fmt.Errorf("upsert chunks: %w", err)
	}

	dim := len(vectors[0])
	ix.logger.Info("indexed chunks", zap.Int("count", len(chunks)), zap.Int("dim", dim))
	return IndexResult{Count: len(chunks), Dim: dim}, nil
}

// sectionFromExtra pulls a section label out of caller metadata, tolerating
// the key casings seen in real exports.
func sectionFromExtra(extra map[string]any) string {
	for _, key := range []string{"section", "SECTION", "Section"} {
		if v, ok := extra[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// embedText prefixes title and section labels onto the chunk body.
func embedText(c domain.Chunk) string {
	var parts []string
	if c.Title != "" {
		parts = append(parts, "Title: "+c.Title)
	}
	if c.Section != "" {
		parts = append(parts, "Section: "+c.Section)
	}
	parts = append(parts, c.Text)
	return strings.Join(parts, "\n\n")
}
