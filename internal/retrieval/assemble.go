package retrieval

import (
	"regexp"
	"strings"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// Assembly defaults.
const (
	DefaultScoreGate    = 0.35
	DefaultMaxPerSource = 2
	DefaultMaxSources   = 3
	DefaultBudget       = 1600
	DefaultSnippetLimit = 600

	smallTalkMaxLen = 30

	// Per-entry allowance for the citation header around each snippet.
	entryOverhead = 50
)

var smallTalkRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup|thanks|thank you|ok|okay|cool|bye|goodbye|good (morning|evening|night)|salut|bonjour|bonsoir|coucou|merci|ça va|ca va|au revoir)\s*[!.?]*\s*$`)

// IsSmallTalk reports whether the query is a short greeting for which
// retrieval should be skipped entirely.
func IsSmallTalk(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) <= smallTalkMaxLen && smallTalkRe.MatchString(q)
}

// Config holds context assembly parameters.
type Config struct {
	ScoreGate    float64
	MaxPerSource int
	MaxSources   int
	Budget       int
	SnippetLimit int
}

// DefaultConfig returns the standard assembly parameters.
func DefaultConfig() Config {
	return Config{
		ScoreGate:    DefaultScoreGate,
		MaxPerSource: DefaultMaxPerSource,
		MaxSources:   DefaultMaxSources,
		Budget:       DefaultBudget,
		SnippetLimit: DefaultSnippetLimit,
	}
}

// Entry is one assembled context snippet with its attribution.
type Entry struct {
	Title string
	URL   string
	Text  string
	Score float64
}

// Assemble turns fused hits into an ordered, diversified context under a hard
// character budget. bestScore is the top similarity from the underlying dense
// search; below the gate all candidates are dropped rather than forcing a weak
// answer. Per source (url, else title, else id) at most MaxPerSource snippets
// survive, across at most MaxSources sources, ordered by each source's best
// hit. A snippet that alone would blow the remaining budget is skipped whole,
// never truncated mid-text.
func Assemble(hits []domain.Hit, bestScore float64, cfg Config) []Entry {
	if len(hits) == 0 || bestScore < cfg.ScoreGate {
		return nil
	}

	// group by source key, keeping fused order inside each group
	groupOrder := make([]string, 0, len(hits))
	groups := make(map[string][]domain.Hit, len(hits))
	for _, h := range hits {
		key := h.GroupKey()
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		if len(groups[key]) < cfg.MaxPerSource {
			groups[key] = append(groups[key], h)
		}
	}

	// hits are sorted by fused score, so group discovery order already
	// ranks groups by their best hit
	if len(groupOrder) > cfg.MaxSources {
		groupOrder = groupOrder[:cfg.MaxSources]
	}

	budget := cfg.Budget
	seen := make(map[string]struct{})
	var entries []Entry

	for _, key := range groupOrder {
		for _, h := range groups[key] {
			text := h.Payload.Text
			if r := []rune(text); len(r) > cfg.SnippetLimit {
				text = string(r[:cfg.SnippetLimit])
			}

			dedupeKey := h.Payload.Title + "|" + head(text, 160)
			if _, dup := seen[dedupeKey]; dup {
				continue
			}
			if len(text)+entryOverhead > budget {
				continue
			}

			entries = append(entries, Entry{
				Title: h.Payload.Title,
				URL:   h.Payload.URL,
				Text:  text,
				Score: h.Score,
			})
			seen[dedupeKey] = struct{}{}
			budget -= len(text) + entryOverhead
		}
	}

	return entries
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
