package domain

// FilterResult maps one post to its stage-1 relevance judgment.
type FilterResult struct {
	PostID     string
	IsRelevant bool
	Summary    string
	Language   string
}

// CategoryResult maps one post to its stage-2 classification.
type CategoryResult struct {
	PostID          string
	Categories      []string
	ImportanceScore float64
	Keywords        []string
}

// MergedTopic is a cluster of semantically related posts produced by
// the merge stage. Transient: consumed to build briefing items, never
// persisted directly.
type MergedTopic struct {
	PostIDs         []string
	Headline        string
	BodyBullets     []string
	PrimaryCategory string
	ImportanceScore float64
	Sources         []string
	SourceURLs      []string
}
