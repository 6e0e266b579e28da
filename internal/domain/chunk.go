package domain

// Chunk is a unit of course material prepared for indexing. Extra carries
// opaque caller metadata that is stored with the point but never interpreted
// beyond section derivation.
type Chunk struct {
	ID      string
	Text    string
	Title   string
	Section string
	URL     string
	Course  string
	Extra   map[string]any
}

// Payload carries the stored fields of a retrieved chunk.
type Payload struct {
	Text    string
	Title   string
	Section string
	URL     string
	Course  string
}

// Hit is a single retrieval result with its provenance.
type Hit struct {
	ID      string
	Score   float64
	Rank    int // 0-based position within its source result list
	Payload Payload
}

// GroupKey identifies the source document of a hit: URL when present,
// else title, else the point id. Used to cap how many snippets a single
// document contributes to an answer context.
func (h Hit) GroupKey() string {
	if h.Payload.URL != "" {
		return h.Payload.URL
	}
	if h.Payload.Title != "" {
		return h.Payload.Title
	}
	return h.ID
}
