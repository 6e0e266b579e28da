package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/chat"
	"github.com/campusbrain/campusbrain/internal/domain"
	"github.com/campusbrain/campusbrain/internal/retrieval"
)

type fakeEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f.embedFn(ctx, texts)
}

type fakeChunkStore struct {
	ensureFn func(ctx context.Context) error
	upsertFn func(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

func (f *fakeChunkStore) EnsureCollection(ctx context.Context) error { return f.ensureFn(ctx) }

func (f *fakeChunkStore) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	return f.upsertFn(ctx, chunks, vectors)
}

type fakeSearcher struct {
	denseFn  func(ctx context.Context, vector []float32, topK int, course string) ([]domain.Hit, error)
	sparseFn func(ctx context.Context, query string, topK int, course string) ([]domain.Hit, error)
}

func (f *fakeSearcher) SearchDense(ctx context.Context, vector []float32, topK int, course string) ([]domain.Hit, error) {
	return f.denseFn(ctx, vector, topK, course)
}

func (f *fakeSearcher) SearchSparse(ctx context.Context, query string, topK int, course string) ([]domain.Hit, error) {
	return f.sparseFn(ctx, query, topK, course)
}

type fakeCompleter struct {
	completeFn func(ctx context.Context, req chat.Request) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req chat.Request) (string, error) {
	return f.completeFn(ctx, req)
}

func identityVectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
	}
	return out
}

// --- Indexer ---

func TestIndex_PrefixesTitleAndSection(t *testing.T) {
	var embedded []string
	emb := &fakeEmbedder{embedFn: func(_ context.Context, texts []string) ([][]float32, error) {
		embedded = texts
		return identityVectors(len(texts), 4), nil
	}}
	st := &fakeChunkStore{
		ensureFn: func(_ context.Context) error { return nil },
		upsertFn: func(_ context.Context, _ []domain.Chunk, _ [][]float32) error { return nil },
	}

	ix := NewIndexer(emb, st, zap.NewNop())
	res, err := ix.Index(context.Background(), []domain.Chunk{
		{ID: "1", Title: "Regex", Section: "Week 2", Text: "body text"},
		{ID: "2", Text: "plain"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 2 || res.Dim != 4 {
		t.Errorf("result = %+v, want count 2 dim 4", res)
	}
	if embedded[0] != "Title: Regex\n\nSection: Week 2\n\nbody text" {
		t.Errorf("embedded[0] = %q", embedded[0])
	}
	if embedded[1] != "plain" {
		t.Errorf("embedded[1] = %q", embedded[1])
	}
}

func TestIndex_SectionFromExtraPayload(t *testing.T) {
	var embedded []string
	emb := &fakeEmbedder{embedFn: func(_ context.Context, texts []string) ([][]float32, error) {
		embedded = texts
		return identityVectors(len(texts), 4), nil
	}}
	var gotChunks []domain.Chunk
	st := &fakeChunkStore{
		ensureFn: func(_ context.Context) error { return nil },
		upsertFn: func(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
			gotChunks = chunks
			return nil
		},
	}

	ix := NewIndexer(emb, st, zap.NewNop())
	_, err := ix.Index(context.Background(), []domain.Chunk{
		{ID: "1", Text: "body", Extra: map[string]any{"section": "Week 5"}},
		{ID: "2", Text: "body", Extra: map[string]any{"SECTION": "Exams"}},
		{ID: "3", Text: "body", Section: "Explicit", Extra: map[string]any{"section": "ignored"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedded[0] != "Section: Week 5\n\nbody" {
		t.Errorf("embedded[0] = %q", embedded[0])
	}
	if embedded[1] != "Section: Exams\n\nbody" {
		t.Errorf("embedded[1] = %q", embedded[1])
	}
	// an explicit section wins over metadata
	if embedded[2] != "Section: Explicit\n\nbody" {
		t.Errorf("embedded[2] = %q", embedded[2])
	}
	if gotChunks[0].Section != "Week 5" || gotChunks[1].Section != "Exams" {
		t.Errorf("stored sections = %q, %q", gotChunks[0].Section, gotChunks[1].Section)
	}
}

func TestIndex_EmptyInput(t *testing.T) {
	ix := NewIndexer(&fakeEmbedder{}, &fakeChunkStore{}, zap.NewNop())
	res, err := ix.Index(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 0 || res.Dim != 0 {
		t.Errorf("result = %+v, want zero", res)
	}
}

func TestIndex_BlankChunkText(t *testing.T) {
	ix := NewIndexer(&fakeEmbedder{}, &fakeChunkStore{}, zap.NewNop())
	_, err := ix.Index(context.Background(), []domain.Chunk{{ID: "1", Text: "  "}})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestIndex_UpsertReceivesVectors(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(_ context.Context, texts []string) ([][]float32, error) {
		return identityVectors(len(texts), 3), nil
	}}
	var gotChunks []domain.Chunk
	var gotVectors [][]float32
	st := &fakeChunkStore{
		ensureFn: func(_ context.Context) error { return nil },
		upsertFn: func(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
			gotChunks, gotVectors = chunks, vectors
			return nil
		},
	}

	ix := NewIndexer(emb, st, zap.NewNop())
	if _, err := ix.Index(context.Background(), []domain.Chunk{{ID: "9", Text: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotChunks) != 1 || gotChunks[0].ID != "9" {
		t.Errorf("unexpected chunks: %v", gotChunks)
	}
	if len(gotVectors) != 1 || len(gotVectors[0]) != 3 {
		t.Errorf("unexpected vectors: %v", gotVectors)
	}
}

// --- Answerer ---

func answererWith(t *testing.T, reply string, hits []domain.Hit, best float64) (*Answerer, *int) {
	t.Helper()
	retrievalCalls := 0
	emb := &fakeEmbedder{embedFn: func(_ context.Context, texts []string) ([][]float32, error) {
		return identityVectors(len(texts), 2), nil
	}}
	searcher := &fakeSearcher{
		denseFn: func(_ context.Context, _ []float32, _ int, _ string) ([]domain.Hit, error) {
			retrievalCalls++
			for i := range hits {
				hits[i].Score = best
			}
			return hits, nil
		},
		sparseFn: func(_ context.Context, _ string, _ int, _ string) ([]domain.Hit, error) {
			return nil, nil
		},
	}
	comp := &fakeCompleter{completeFn: func(_ context.Context, _ chat.Request) (string, error) {
		return reply, nil
	}}
	a := NewAnswerer(emb, searcher, comp, retrieval.DefaultConfig(), zap.NewNop())
	return a, &retrievalCalls
}

func contextHits() []domain.Hit {
	return []domain.Hit{
		{ID: "1", Payload: domain.Payload{Title: "Lecture 4", URL: "https://docs/l4", Text: "content about regex"}},
	}
}

func TestAnswer_SmallTalkSkipsRetrieval(t *testing.T) {
	a, calls := answererWith(t, "Hello! USED_CONTEXT=YES", contextHits(), 0.9)

	ans, err := a.Answer(context.Background(), "hi", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *calls != 0 {
		t.Error("retrieval must be skipped for small talk")
	}
	// even with a lying YES marker, empty context means no citation
	if ans.PrimaryURL != "" {
		t.Errorf("primary url = %q, want empty", ans.PrimaryURL)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("expected no sources, got %v", ans.Sources)
	}
}

func TestAnswer_MarkerYesSurfacesURL(t *testing.T) {
	a, _ := answererWith(t, "The answer. USED_CONTEXT=YES", contextHits(), 0.9)

	ans, err := a.Answer(context.Background(), "when is the regex lecture?", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Reply != "The answer." {
		t.Errorf("reply = %q, marker must be stripped", ans.Reply)
	}
	if ans.PrimaryURL != "https://docs/l4" {
		t.Errorf("primary url = %q, want https://docs/l4", ans.PrimaryURL)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Idx != 1 {
		t.Errorf("unexpected sources: %v", ans.Sources)
	}
}

func TestAnswer_MarkerNoSuppressesURL(t *testing.T) {
	a, _ := answererWith(t, "The answer. USED_CONTEXT=NO", contextHits(), 0.9)

	ans, err := a.Answer(context.Background(), "when is the regex lecture?", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.PrimaryURL != "" {
		t.Errorf("primary url = %q, want empty", ans.PrimaryURL)
	}
}

func TestAnswer_MissingMarkerFailsClosed(t *testing.T) {
	a, _ := answererWith(t, "The answer with no marker.", contextHits(), 0.9)

	ans, err := a.Answer(context.Background(), "when is the regex lecture?", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.PrimaryURL != "" {
		t.Errorf("primary url = %q, want empty when marker absent", ans.PrimaryURL)
	}
	if ans.Reply != "The answer with no marker." {
		t.Errorf("reply = %q", ans.Reply)
	}
}

func TestAnswer_WeakScoreDropsContext(t *testing.T) {
	a, _ := answererWith(t, "Reply. USED_CONTEXT=YES", contextHits(), 0.1)

	ans, err := a.Answer(context.Background(), "an obscure question", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("expected no sources below gate, got %v", ans.Sources)
	}
	if ans.PrimaryURL != "" {
		t.Errorf("primary url = %q, want empty", ans.PrimaryURL)
	}
	if ans.BestScore != 0.1 {
		t.Errorf("best score = %f, want 0.1", ans.BestScore)
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	a, _ := answererWith(t, "x", nil, 0)
	_, err := a.Answer(context.Background(), "   ", 0, "")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBuildPrompt_NumberedBlocks(t *testing.T) {
	entries := []retrieval.Entry{
		{Title: "Lecture 4", Text: "regex content"},
		{Text: "untitled content"},
	}

	p := buildPrompt("what is a regex?", entries)
	if !strings.Contains(p, "[1] Lecture 4\nregex content") {
		t.Errorf("missing titled block:\n%s", p)
	}
	if !strings.Contains(p, "[2]\nuntitled content") {
		t.Errorf("missing untitled block:\n%s", p)
	}
	if !strings.HasSuffix(p, "Question: what is a regex?") {
		t.Errorf("prompt must end with the question:\n%s", p)
	}
}

func TestStripMarker(t *testing.T) {
	tests := []struct {
		raw   string
		reply string
		used  bool
	}{
		{"answer USED_CONTEXT=YES", "answer", true},
		{"answer USED_CONTEXT=NO", "answer", false},
		{"answer used_context=yes", "answer", true},
		{"answer", "answer", false},
		{"USED_CONTEXT=YES in the middle stays", "USED_CONTEXT=YES in the middle stays", false},
	}
	for _, tc := range tests {
		reply, used := stripMarker(tc.raw)
		if reply != tc.reply || used != tc.used {
			t.Errorf("stripMarker(%q) = (%q, %v), want (%q, %v)", tc.raw, reply, used, tc.reply, tc.used)
		}
	}
}
