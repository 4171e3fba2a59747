package domain

import "time"

// BriefingItem is one ranked entry in a briefing, built from a merged topic.
type BriefingItem struct {
	ID              string
	BriefingID      string
	Headline        string
	Body            string
	ImportanceScore float64
	CategoryName    string
	SortOrder       int
	SourceCount     int
	SourcesSummary  string
	SourcePostIDs   []string
	SourceURLs      []string
}

// Briefing is the rendered periodic digest document.
type Briefing struct {
	ID                 string
	Title              string
	BriefingType       string
	PeriodStart        time.Time
	PeriodEnd          time.Time
	GeneratedAt        time.Time
	TotalPostsAnalyzed int
	TotalItems         int
	ContentText        string
	ContentHTML        string
	EmailSent          bool
	EmailSentAt        *time.Time
	Items              []BriefingItem
}
