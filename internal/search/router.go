package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/board"
	"github.com/campusbrain/campusbrain/internal/chat"
)

// Completer runs a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (string, error)
}

const (
	routerMaxTokens   = 300
	categoryMaxTokens = 200
	maxRefinedLimit   = 50
)

// Refinement is the router's structured reading of the user query. CourseID
// and CourseCode are parsed but never applied: course resolution has already
// happened by the time the router runs, and the model must not override it.
type Refinement struct {
	CourseID        int    `json:"courseId"`
	CourseCode      string `json:"courseCode"`
	Status          string `json:"status"`
	TextQuery       string `json:"textQuery"`
	Limit           int    `json:"limit"`
	CategoryHint    string `json:"categoryHint"`
	SubcategoryHint string `json:"subcategoryHint"`
}

// Router asks a chat model to refine search parameters and to pick a
// category from a course's real tree. Model failures and unparseable output
// degrade to zero values so the rule-based path keeps working.
type Router struct {
	completer Completer
	model     string
	logger    *zap.Logger
}

// NewRouter creates a router using the given model.
func NewRouter(completer Completer, model string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{completer: completer, model: model, logger: logger}
}

const routerSystemPrompt = `You translate a natural language query about a course discussion board into structured filters.
You receive a JSON object with userQuery and courses (the user's enrolled courses with id, code, name).
Output ONLY a JSON object of this shape:
{"courseId"?: number, "courseCode"?: string, "status"?: "all"|"unread"|"unanswered"|"resolved"|"instructors"|"approved"|"new_replies"|"favorites", "textQuery"?: string, "limit"?: number, "categoryHint"?: string, "subcategoryHint"?: string}
Status rules: default "all"; map phrasings in English or French to the closest filter ("sans réponse" -> "unanswered", "non lus" -> "unread", "posts des profs" -> "instructors", "approuvés" -> "approved"). If the query says "all" together with a specific filter, use the specific filter.
textQuery must be short search terms, never the full sentence.
If the user mentions an assignment or homework number, set categoryHint "assignments" and a subcategoryHint like "assignment 4".
If the user asks for a few posts ("first 5", "latest 10"), set limit accordingly.
Respond with raw JSON only, no markdown, no extra text.`

// Refine asks the model for refined search parameters. It never fails: any
// completion or parse problem returns the zero Refinement and the caller
// continues with rule-based defaults.
func (r *Router) Refine(ctx context.Context, query string, courses []board.Course) Refinement {
	input, err := json.Marshal(map[string]any{
		"userQuery": query,
		"courses":   courses,
	})
	if err != nil {
		return Refinement{}
	}

	raw, err := r.completer.Complete(ctx, chat.Request{
		Model:     r.model,
		System:    routerSystemPrompt,
		User:      fmt.Sprintf("Here is the input as JSON:\n\n%s\n\nReturn ONLY the JSON object.", input),
		MaxTokens: routerMaxTokens,
	})
	if err != nil {
		r.logger.Warn("router refinement failed", zap.Error(err))
		return Refinement{}
	}

	var out Refinement
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		r.logger.Warn("router returned unparseable output",
			zap.String("raw", head(raw, 200)), zap.Error(err))
		return Refinement{}
	}

	if out.Limit > maxRefinedLimit {
		out.Limit = maxRefinedLimit
	}
	if out.Limit < 0 {
		out.Limit = 0
	}
	if !board.ValidStatus(board.Status(out.Status)) {
		out.Status = ""
	}
	return out
}

const categorySystemPrompt = `You select the most relevant discussion board category and optional subcategory for a user query.
You receive a JSON object with userQuery, course, and categoryTree (categories plus subcategories per category).
Pick the single best category from the categories array; pick a subcategory only when one of its children clearly matches.
Both values must match an entry of the input exactly; use "none" when nothing fits.
Respond with raw JSON only: {"chosenCategory": "<exact name>"|"none", "chosenSubcategory": "<exact name>"|"none"}`

// PickCategory asks the model to choose a category and subcategory from the
// course's real tree and validates the answer against it, exact match first,
// case-insensitive as fallback. Anything else, including "none", collapses to
// empty. A subcategory is only considered under an accepted category.
func (r *Router) PickCategory(ctx context.Context, query string, course board.Course, tree board.CategoryTree) (string, string) {
	if len(tree.Categories) == 0 {
		return "", ""
	}

	input, err := json.Marshal(map[string]any{
		"userQuery":    query,
		"course":       course,
		"categoryTree": tree,
	})
	if err != nil {
		return "", ""
	}

	raw, err := r.completer.Complete(ctx, chat.Request{
		Model:     r.model,
		System:    categorySystemPrompt,
		User:      fmt.Sprintf("Here is the input as JSON:\n\n%s\n\nReturn ONLY the JSON object.", input),
		MaxTokens: categoryMaxTokens,
	})
	if err != nil {
		r.logger.Warn("category selection failed", zap.Error(err))
		return "", ""
	}

	var out struct {
		ChosenCategory    string `json:"chosenCategory"`
		ChosenSubcategory string `json:"chosenSubcategory"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		r.logger.Warn("category selection returned unparseable output",
			zap.String("raw", head(raw, 200)), zap.Error(err))
		return "", ""
	}

	category := matchTreeEntry(out.ChosenCategory, tree.Categories)
	if category == "" {
		return "", ""
	}
	subcategory := matchTreeEntry(out.ChosenSubcategory, tree.Subcategories[category])
	return category, subcategory
}

// matchTreeEntry validates a model-chosen name against the real entries.
func matchTreeEntry(value string, entries []string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		return ""
	}
	for _, e := range entries {
		if e == value {
			return e
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e, value) {
			return e
		}
	}
	return ""
}

// extractJSON returns the first balanced {...} span of raw, tolerating prose
// around the object. Raw is returned unchanged when no balanced span exists.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return raw
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
