package search

import (
	"strconv"
	"strings"

	"github.com/campusbrain/campusbrain/internal/board"
)

// categorySynonyms maps canonical category keys to the phrasings they cover.
// These keys exist only inside this package; the board's real category names
// are matched against them by score.
var categorySynonyms = map[string][]string{
	"problem sets": {
		"problem set", "problem sets", "ps", "ps1", "ps2",
		"exercise", "exercises", "exercice", "exercices",
		"exo", "exos", "sheet", "series",
	},
	"lectures": {"lecture", "lectures", "cours", "slides"},
	"project":  {"project", "projet"},
	"general":  {"general", "général"},
	"assignments": {
		"assignment", "assignments", "assignement",
		"homework", "homeworks", "hw",
		"programming assignments", "programming assignment",
	},
}

const (
	categoryExactScore   = 1.0
	categoryPartialScore = 0.8
	categoryAcceptScore  = 0.7
	subcategoryAccept    = 1.0
	subcategoryStrong    = 2.0
	subcategoryTokenBump = 0.1
)

// canonicalCategoryKey finds the best synonym-table key for a user hint.
// Empty when no key scores at all.
func canonicalCategoryKey(hint string) string {
	nHint := normalizeText(hint)
	bestKey, bestScore := "", 0.0
	for key, synonyms := range categorySynonyms {
		score := 0.0
		nKey := normalizeText(key)
		switch {
		case nKey == nHint:
			score = categoryExactScore
		case strings.Contains(nKey, nHint) || strings.Contains(nHint, nKey):
			score = categoryPartialScore
		default:
			for _, syn := range synonyms {
				nSyn := normalizeText(syn)
				if nSyn == nHint {
					score = categoryExactScore
					break
				}
				if strings.Contains(nSyn, nHint) || strings.Contains(nHint, nSyn) {
					score = categoryPartialScore
					break
				}
			}
		}
		if score > bestScore {
			bestScore, bestKey = score, key
		}
	}
	return bestKey
}

// categorySynonymsFor returns the normalized synonyms behind a hint, or the
// hint itself when it maps to no canonical key.
func categorySynonymsFor(hint string) []string {
	synonyms := []string{hint}
	if key := canonicalCategoryKey(hint); key != "" {
		synonyms = categorySynonyms[key]
	}
	out := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		out = append(out, normalizeText(s))
	}
	return out
}

// resolveCategoryByRules scores the course's real category names against the
// hint's synonyms and returns the best one above the acceptance threshold.
// Assignment hints get special handling so "Programming Assignments" style
// names win when an assignment index is known.
func resolveCategoryByRules(tree board.CategoryTree, hint string, assignmentIndex int) string {
	if hint == "" {
		return ""
	}

	key := canonicalCategoryKey(hint)
	synonyms := categorySynonymsFor(hint)

	bestName, bestScore := "", 0.0
	for _, name := range tree.Categories {
		nCat := normalizeText(name)
		score := 0.0

		if key == "assignments" {
			score = scoreAssignmentCategory(nCat, assignmentIndex)
		} else {
			for _, nSyn := range synonyms {
				switch {
				case nCat == nSyn:
					score = max(score, categoryExactScore)
				case strings.Contains(nCat, nSyn) || strings.Contains(nSyn, nCat):
					score = max(score, categoryPartialScore)
				}
			}
		}

		if score > bestScore {
			bestScore, bestName = score, name
		}
	}

	if bestScore >= categoryAcceptScore {
		return bestName
	}
	return ""
}

func scoreAssignmentCategory(nCat string, assignmentIndex int) float64 {
	assignmentish := strings.Contains(nCat, "assignment") || strings.Contains(nCat, "assignement")
	if assignmentIndex > 0 {
		if assignmentish && strings.Contains(nCat, strconv.Itoa(assignmentIndex)) {
			return categoryExactScore
		}
		if strings.Contains(nCat, "assignments") {
			return categoryPartialScore
		}
		return 0
	}
	if assignmentish ||
		strings.Contains(nCat, "homework") ||
		strings.HasPrefix(nCat, "hw") {
		return categoryPartialScore
	}
	return 0
}

// resolveSubcategoryByRules picks a subcategory under an accepted category.
// Strong matches pair the assignment label with its index ("Assignment 4 -
// Sniffing Traffic", "HW2"); query tokens appearing in the name nudge the
// score. Below the acceptance threshold nothing is returned.
func resolveSubcategoryByRules(tree board.CategoryTree, category string, parsed ParsedQuery) string {
	subs := tree.Subcategories[category]
	if len(subs) == 0 {
		return ""
	}

	normalizedQuery := normalizeText(parsed.OriginalQuery)
	idx := parsed.AssignmentIndex
	assignmentHint := parsed.CategoryHint == "assignments"

	bestName, bestScore := "", 0.0
	for _, name := range subs {
		nName := normalizeText(name)
		score := 0.0

		if assignmentHint && idx > 0 {
			hwish := strings.Contains(nName, "homework") || strings.HasPrefix(nName, "hw")
			switch {
			case strings.Contains(nName, "assignment") && strings.Contains(nName, strconv.Itoa(idx)):
				score = subcategoryStrong
			case hwish && strings.Contains(nName, strconv.Itoa(idx)):
				score = subcategoryStrong
			case strings.Contains(nName, "assignment") || hwish:
				score = subcategoryAccept
			}
		} else if assignmentHint && strings.Contains(nName, "assignment") {
			score = subcategoryAccept
		}

		for _, tok := range strings.Fields(normalizedQuery) {
			if len(tok) > 2 && strings.Contains(nName, tok) {
				score += subcategoryTokenBump
			}
		}

		if score > bestScore {
			bestScore, bestName = score, name
		}
	}

	if bestScore >= subcategoryAccept {
		return bestName
	}
	return ""
}
