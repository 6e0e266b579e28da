package search

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/board"
)

// RequestParams are the final validated fetch parameters for one search.
type RequestParams struct {
	CourseID       int
	FetchOptions   board.FetchOptions
	ResolvedCourse board.Course
}

// treeFetcher supplies the real category tree of a course.
type treeFetcher interface {
	CategoryTree(ctx context.Context, courseID int) (board.CategoryTree, error)
}

// Builder orchestrates course resolution, router refinement, and category
// resolution into fetch parameters. Everything the model contributes is
// re-validated against ground truth before use.
type Builder struct {
	trees  treeFetcher
	router *Router
	logger *zap.Logger
}

// NewBuilder creates a builder.
func NewBuilder(trees treeFetcher, router *Router, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{trees: trees, router: router, logger: logger}
}

// Build resolves the parsed query into request parameters, or a tagged
// *Error when the course cannot be resolved or the board is unreachable.
func (b *Builder) Build(ctx context.Context, parsed ParsedQuery, courses []board.Course) (RequestParams, error) {
	course, err := ResolveCourse(parsed, courses)
	if err != nil {
		return RequestParams{}, err
	}

	refined := b.router.Refine(ctx, parsed.OriginalQuery, courses)

	status := board.Status(refined.Status)
	if status == "" {
		status = board.StatusAll
	}

	textQuery := refined.TextQuery
	if textQuery == "" {
		textQuery = parsed.TextQuery
	}
	textQuery = cleanCourseAliases(textQuery, course.Code)
	if textQuery == "" {
		// Alias cleanup ate the whole query; better to search the raw
		// parsed text than to fall back to a plain listing.
		textQuery = parsed.TextQuery
	}
	textQuery = ensureAssignmentPhrase(textQuery, parsed)

	categoryHint := refined.CategoryHint
	if categoryHint == "" {
		categoryHint = parsed.CategoryHint
	}

	opts := board.FetchOptions{
		CourseID: course.ID,
		Limit:    refined.Limit,
		Status:   status,
		Query:    textQuery,
	}

	if categoryHint != "" {
		category, subcategory, err := b.resolveCategory(ctx, course, parsed, categoryHint)
		if err != nil {
			return RequestParams{}, classify(err)
		}
		opts.Category = category
		opts.Subcategory = subcategory
	}

	b.logger.Debug("built search request",
		zap.Int("course_id", course.ID),
		zap.String("status", string(opts.Status)),
		zap.String("query", opts.Query),
		zap.String("category", opts.Category),
		zap.String("subcategory", opts.Subcategory),
	)

	return RequestParams{
		CourseID:       course.ID,
		FetchOptions:   opts,
		ResolvedCourse: course,
	}, nil
}

// resolveCategory fetches the course's real tree, asks the model to pick an
// entry, and falls back to synonym scoring when the model yields nothing.
func (b *Builder) resolveCategory(ctx context.Context, course board.Course, parsed ParsedQuery, hint string) (string, string, error) {
	tree, err := b.trees.CategoryTree(ctx, course.ID)
	if err != nil {
		return "", "", err
	}

	category, subcategory := b.router.PickCategory(ctx, parsed.OriginalQuery, course, tree)
	if category == "" {
		category = resolveCategoryByRules(tree, hint, parsed.AssignmentIndex)
	}
	if category != "" && subcategory == "" {
		subcategory = resolveSubcategoryByRules(tree, category, parsed)
	}
	return category, subcategory, nil
}

// cleanCourseAliases removes the resolved course's aliases from the text
// query so "posts about compsec firewall" searches for "firewall".
func cleanCourseAliases(textQuery, courseCode string) string {
	if textQuery == "" || courseCode == "" {
		return textQuery
	}
	for _, alias := range courseSynonyms[courseCode] {
		if alias == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
		textQuery = re.ReplaceAllString(textQuery, "")
	}
	return strings.Join(strings.Fields(textQuery), " ")
}

// ensureAssignmentPhrase prefixes "assignment N" (or the label the user
// actually wrote) when an assignment index was detected but alias cleanup
// stripped the phrase out of the text query.
func ensureAssignmentPhrase(textQuery string, parsed ParsedQuery) string {
	if parsed.CategoryHint != "assignments" || parsed.AssignmentIndex <= 0 {
		return textQuery
	}

	originalLower := strings.ToLower(parsed.OriginalQuery)
	label := "assignment"
	if strings.Contains(originalLower, "homework") {
		label = "homework"
	} else if strings.Contains(originalLower, "hw") {
		label = "hw"
	}

	idx := strconv.Itoa(parsed.AssignmentIndex)
	cleanedLower := strings.ToLower(textQuery)
	if strings.Contains(cleanedLower, label) && strings.Contains(cleanedLower, idx) {
		return textQuery
	}

	phrase := label + " " + idx
	if textQuery == "" {
		return phrase
	}
	return phrase + " " + textQuery
}
