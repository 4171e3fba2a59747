package domain

import "time"

// Post is a single item harvested from a social platform.
//
// (Source, ExternalID) is the natural dedup key; ContentHash is a
// secondary, format-independent dedup signal computed at collection
// time. AI-derived fields are filled by the processing pipeline.
type Post struct {
	ID         string
	Source     string
	ExternalID string
	URL        string
	Author     string
	AuthorURL  string

	ContentText string
	ContentHTML string
	MediaURLs   []string

	EngagementLikes    int
	EngagementReposts  int
	EngagementComments int
	EngagementViews    int

	PublishedAt time.Time
	CollectedAt time.Time

	Summary         string
	ImportanceScore float64
	Language        string
	IsRelevant      *bool
	CategoryNames   []string
	Keywords        []string

	ContentHash    string
	DedupClusterID string
	BriefedAt      *time.Time
}

// Processed reports whether the post has been through the AI pipeline.
func (p Post) Processed() bool {
	return p.Summary != ""
}

// Relevant reports whether stage 1 judged the post relevant.
// Unprocessed posts are not relevant until judged.
func (p Post) Relevant() bool {
	return p.IsRelevant != nil && *p.IsRelevant
}
