package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/chat"
	"github.com/campusbrain/campusbrain/internal/domain"
	"github.com/campusbrain/campusbrain/internal/retrieval"
)

// Completer runs a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (string, error)
}

// Answer generation defaults. topK adapts to question length when the
// caller does not pin it.
const (
	topKTiny    = 8
	topKShort   = 12
	topKDefault = 18

	tinyQuestionLen  = 40
	shortQuestionLen = 80

	defaultTemperature = 0.0
	defaultMaxTokens   = 280
)

var usedContextRe = regexp.MustCompile(`(?i)\s*USED_CONTEXT=(YES|NO)\s*$`)

// Answerer answers questions over the indexed course material.
type Answerer struct {
	embedder  Embedder
	searcher  retrieval.Searcher
	completer Completer
	assemble  retrieval.Config
	logger    *zap.Logger
}

// NewAnswerer creates an answerer.
func NewAnswerer(
	embedder Embedder, searcher retrieval.Searcher, completer Completer,
	assemble retrieval.Config, logger *zap.Logger,
) *Answerer {
	return &Answerer{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		assemble:  assemble,
		logger:    logger,
	}
}

// Source is one cited context entry in an answer.
type Source struct {
	Idx   int     `json:"idx"`
	Title string  `json:"title,omitempty"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// Answer is the result of a retrieval-augmented answer.
type Answer struct {
	Reply      string   `json:"reply"`
	PrimaryURL string   `json:"primary_url,omitempty"`
	BestScore  float64  `json:"best_score"`
	Sources    []Source `json:"sources"`
}

// Answer retrieves context for the question and generates a cited reply.
// Small-talk questions skip retrieval entirely. The primary URL surfaces
// only when context was assembled AND the model's own trailing marker says
// it used that context; an absent marker counts as not used.
func (a *Answerer) Answer(ctx context.Context, question string, topK int, model string) (Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return Answer{}, fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}

	if topK <= 0 {
		topK = adaptiveTopK(q)
	}

	var (
		entries   []retrieval.Entry
		bestScore float64
	)

	if !retrieval.IsSmallTalk(q) {
		vecs, err := a.embedder.Embed(ctx, []string{q})
		if err != nil {
			return Answer{}, fmt.Errorf("embed question: %w", err)
		}

		hits, best, err := retrieval.SearchHybrid(ctx, a.searcher, a.logger, vecs[0], q, topK, "")
		if err != nil {
			return Answer{}, err
		}
		bestScore = best
		entries = retrieval.Assemble(hits, best, a.assemble)
	}

	raw, err := a.completer.Complete(ctx, chat.Request{
		Model:       model,
		System:      systemPrompt,
		User:        buildPrompt(q, entries),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	reply, usedContext := stripMarker(raw)

	answer := Answer{
		Reply:     reply,
		BestScore: bestScore,
		Sources:   make([]Source, 0, len(entries)),
	}
	for i, e := range entries {
		answer.Sources = append(answer.Sources, Source{
			Idx:   i + 1,
			Title: e.Title,
			URL:   e.URL,
			Score: e.Score,
		})
	}

	if len(entries) > 0 && usedContext {
		answer.PrimaryURL = entries[0].URL
	}

	a.logger.Info("answered question",
		zap.Int("context_entries", len(entries)),
		zap.Float64("best_score", bestScore),
		zap.Bool("used_context", usedContext),
	)
	return answer, nil
}

func adaptiveTopK(q string) int {
	switch {
	case len(q) <= tinyQuestionLen:
		return topKTiny
	case len(q) <= shortQuestionLen:
		return topKShort
	default:
		return topKDefault
	}
}

const systemPrompt = `You are a concise assistant for university course material.
Respond briefly, no intro or conclusion. Format: steps as a short numbered list; otherwise 2-4 short sentences.
When context blocks are provided, answer only from them; if the information is not in the context, say you don't know.
End your reply with the exact marker USED_CONTEXT=YES if your answer relied on the provided context, otherwise USED_CONTEXT=NO.`

// buildPrompt renders the context as numbered cited blocks followed by the
// question. URLs are deliberately kept out of the prompt so the model cannot
// leak them into the reply text; attribution happens in the response shape.
func buildPrompt(question string, entries []retrieval.Entry) string {
	var b strings.Builder
	if len(entries) > 0 {
		b.WriteString("Context:\n")
		for i, e := range entries {
			if e.Title != "" {
				fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, e.Title, e.Text)
			} else {
				fmt.Fprintf(&b, "[%d]\n%s\n\n", i+1, e.Text)
			}
		}
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// stripMarker removes the trailing usage marker and reports whether the
// model claimed it used the context. No marker means no claim.
func stripMarker(raw string) (string, bool) {
	m := usedContextRe.FindStringSubmatch(raw)
	reply := strings.TrimSpace(usedContextRe.ReplaceAllString(raw, ""))
	if m == nil {
		return reply, false
	}
	return reply, strings.EqualFold(m[1], "YES")
}
