// Package intent is a generic ordered pattern matcher for recognizing
// action requests ("post this on the board", "fetch the third homework")
// in free text. Intents are declarative data: a list of match patterns
// optionally guarded by block patterns that veto the whole intent, so a
// question ABOUT the board is never mistaken for a request to post on it.
package intent

import (
	"regexp"
	"strings"
)

// Config is one detectable intent. Block patterns are checked first: if any
// of them matches, the intent is skipped without trying its match patterns.
type Config struct {
	ID            string
	MatchPatterns []*regexp.Regexp
	BlockPatterns []*regexp.Regexp
}

// Result reports the outcome of a detection pass.
type Result struct {
	Detected       bool
	IntentID       string
	MatchedPattern string
}

// Detect evaluates configs in order against the trimmed input and returns
// the first intent whose match patterns fire. At most one intent is
// reported per call.
func Detect(input string, configs []Config) Result {
	trimmed := strings.TrimSpace(input)

	for _, cfg := range configs {
		if anyMatch(cfg.BlockPatterns, trimmed) {
			continue
		}
		for _, p := range cfg.MatchPatterns {
			if p.MatchString(trimmed) {
				return Result{
					Detected:       true,
					IntentID:       cfg.ID,
					MatchedPattern: p.String(),
				}
			}
		}
	}
	return Result{}
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
