package search

import (
	"fmt"
	"strings"

	"github.com/campusbrain/campusbrain/internal/board"
)

// courseSynonyms maps a course code to the phrasings students actually use.
// Resolution only consults entries whose code appears in the caller's
// enrolled set, so a synonym can never surface a course the user lacks.
var courseSynonyms = map[string][]string{
	"CS-311":    {"swent", "the software enterprise", "software enterprise"},
	"COM-301":   {"compsec", "comsec", "computer security", "security"},
	"COM-300":   {"modstock", "modeles stochastiques", "modèles stochastiques", "stochastics"},
	"COM-302":   {"sigproc", "signal processing", "signal proc"},
	"MATH-203":  {"analysis 3", "analys 3", "ana3", "analysis iii", "analyse 3", "analyse iii"},
	"PROBESTAT": {"probastat", "proba stat", "probability and statistics", "probability & statistics"},
}

// ResolveCourse resolves the parsed course reference against the caller's
// enrolled courses: code substring, then name substring, then the synonym
// table over the original query. Resolution is closed-world; when nothing
// matches it returns a tagged INVALID_QUERY error, never a default course.
func ResolveCourse(parsed ParsedQuery, courses []board.Course) (board.Course, error) {
	if q := strings.ToLower(parsed.CourseQuery); q != "" {
		for _, c := range courses {
			if c.Code != "" && strings.Contains(strings.ToLower(c.Code), q) {
				return c, nil
			}
		}
		for _, c := range courses {
			if c.Name != "" && strings.Contains(strings.ToLower(c.Name), q) {
				return c, nil
			}
		}
	}

	if c, ok := resolveCourseFromSynonyms(parsed.OriginalQuery, courses); ok {
		return c, nil
	}

	msg := "no course detected in the query"
	if parsed.CourseQuery != "" {
		msg = fmt.Sprintf("could not match course %q to any of your courses", parsed.CourseQuery)
	}
	return board.Course{}, &Error{Code: CodeInvalidQuery, Message: msg}
}

func resolveCourseFromSynonyms(originalQuery string, courses []board.Course) (board.Course, bool) {
	normalized := normalizeText(originalQuery)
	for _, c := range courses {
		if c.Code == "" {
			continue
		}
		for _, alias := range courseSynonyms[c.Code] {
			if na := normalizeText(alias); na != "" && strings.Contains(normalized, na) {
				return c, true
			}
		}
	}
	return board.Course{}, false
}
