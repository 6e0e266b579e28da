// Package search turns a free-text request like "show unread posts in comsec"
// into validated fetch parameters for the discussion board, and normalizes the
// fetched threads into a stable post shape. Resolution is closed-world: a
// course is only ever picked from the caller's enrolled set.
package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/campusbrain/campusbrain/internal/board"
)

// ParsedQuery is what the rule-based parser understood from the user text.
// Status and Limit are not extracted here: status vocabulary is open-ended,
// so both come from router refinement and are validated by the builder.
type ParsedQuery struct {
	OriginalQuery string
	// CourseQuery is a course code or name candidate, empty when nothing
	// course-shaped was found. Resolution then falls back to the synonym
	// table over the original query.
	CourseQuery string
	Status      board.Status
	Limit       int
	// CategoryHint is the user's phrasing ("problem set", "hw"), not a real
	// board category. It seeds the rule-based category fallback when the
	// model yields nothing; the model's own hint takes precedence.
	CategoryHint    string
	AssignmentIndex int
	TextQuery       string
	DateFrom        string
	DateTo          string
}

var (
	courseCodeRe = regexp.MustCompile(`[A-Z]{2,4}-\d{2,3}`)
	courseNameRe = regexp.MustCompile(`(?i)\b(?:in|from)\s+([A-Za-z0-9\-()/ ]+)$`)
	psNumberRe   = regexp.MustCompile(`\bps\d+`)

	assignmentRes = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)(?:st|nd|rd|th)?\s+assigne?ment`),
		regexp.MustCompile(`assigne?ment\s+(\d+)`),
		regexp.MustCompile(`homeworks?\s+(\d+)`),
		regexp.MustCompile(`hw\s*(\d+)`),
	}
)

var exercisePrefixes = []string{
	"module ", "exo ", "exercise ", "exercice ", "assignment ", "assignement ", "hw ",
}

// Parse extracts course, category, and date hints from free text. It never
// fails: anything it cannot extract stays at its zero value and downstream
// layers decide what that means.
func Parse(text string) ParsedQuery {
	lower := strings.ToLower(text)

	parsed := ParsedQuery{OriginalQuery: text}

	parsed.CategoryHint = detectCategoryHint(lower)

	if idx, ok := extractAssignmentIndex(lower); ok {
		parsed.AssignmentIndex = idx
		if parsed.CategoryHint == "" {
			parsed.CategoryHint = "assignments"
		}
	} else if containsAny(lower, []string{"assignment", "assignement", "homework", "hw "}) && parsed.CategoryHint == "" {
		parsed.CategoryHint = "assignments"
	}

	parsed.CourseQuery = extractCourseQuery(text)
	parsed.DateFrom, parsed.DateTo = extractDateRange(lower, time.Now())
	parsed.TextQuery = extractTextQuery(text, parsed.CourseQuery, parsed.CategoryHint)

	return parsed
}

func extractCourseQuery(text string) string {
	if m := courseCodeRe.FindString(text); m != "" {
		return m
	}
	m := courseNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimRight(strings.TrimSpace(m[1]), ".,!?")
	lowerName := strings.ToLower(name)
	for _, p := range exercisePrefixes {
		if strings.HasPrefix(lowerName, p) {
			return ""
		}
	}
	return name
}

func detectCategoryHint(lower string) string {
	switch {
	case strings.Contains(lower, "problem set") ||
		strings.Contains(lower, "problemset") ||
		strings.Contains(lower, "ps ") ||
		psNumberRe.MatchString(lower) ||
		strings.Contains(lower, "feuille") ||
		strings.Contains(lower, "exo"):
		return "problem sets"
	case strings.Contains(lower, "lecture") || strings.Contains(lower, "cours"):
		return "lectures"
	case strings.Contains(lower, "project") || strings.Contains(lower, "projet"):
		return "project"
	case strings.Contains(lower, "general") || strings.Contains(lower, "général"):
		return "general"
	case strings.Contains(lower, "bootcamp"):
		return "bootcamp"
	}
	return ""
}

func extractAssignmentIndex(lower string) (int, bool) {
	for _, re := range assignmentRes {
		if m := re.FindStringSubmatch(lower); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err == nil {
				return idx, true
			}
		}
	}
	return 0, false
}

func extractDateRange(lower string, now time.Time) (string, string) {
	switch {
	case strings.Contains(lower, "yesterday") || strings.Contains(lower, "hier"):
		d := now.AddDate(0, 0, -1).UTC().Format(time.RFC3339)
		return d, d
	case strings.Contains(lower, "today") || strings.Contains(lower, "aujourd'hui"):
		d := now.UTC().Format(time.RFC3339)
		return d, d
	}
	return "", ""
}

// stopWords are boilerplate removed from the free-text query sent to the
// board's search endpoint.
var stopWords = []string{
	"show", "find", "display", "list", "lookup", "look up", "search",
	"forum", "thread", "threads", "discussion", "discussions",
	"post", "posts", "question", "questions", "message", "messages",
	"about", "regarding", "please", "all", "the", "in", "on", "of",
}

// extractTextQuery strips the course reference, category phrasing, and
// boilerplate from the input, leaving the terms worth searching for.
func extractTextQuery(input, courseQuery, categoryHint string) string {
	s := strings.ToLower(input)

	if courseQuery != "" {
		s = strings.ReplaceAll(s, strings.ToLower(courseQuery), "")
	}

	if categoryHint != "" {
		s = strings.ReplaceAll(s, strings.ToLower(categoryHint), "")
		for _, syn := range categorySynonymsFor(categoryHint) {
			// exo/exos stay: they often carry the exercise number context
			if syn == "exo" || syn == "exos" {
				continue
			}
			s = removeWord(s, syn)
		}
	}

	for _, w := range stopWords {
		s = removeWord(s, w)
	}

	return strings.Join(strings.Fields(s), " ")
}

func removeWord(s, word string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.ReplaceAllString(s, "")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips accents and punctuation. Both sides of
// every fuzzy comparison in this package go through it.
func normalizeText(s string) string {
	out, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
