package ports

import (
	"context"
	"time"

	"techbriefing/internal/domain"
)

// SourceAdapter is the per-platform collection capability. Adapters are
// opaque, possibly slow, possibly flaky; the coordinator owns retries
// and failure isolation.
type SourceAdapter interface {
	// SourceName is the stable identifier of the platform.
	SourceName() string
	// Collect runs one harvesting pass. It may fail with a
	// session-expired or transient CollectError.
	Collect(ctx context.Context) ([]domain.Post, error)
	// SessionValid is a cheap login check. Adapters with no login
	// concept always return true.
	SessionValid(ctx context.Context) bool
}

// PostSearch carries the optional filters for PostRepository.Search.
type PostSearch struct {
	Query    string
	Source   string
	Category string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// PostRepository persists collected posts in the document store.
type PostRepository interface {
	// SaveMany upserts posts keyed by (source, external_id). Existing
	// posts are silently ignored, not overwritten. Returns the count
	// actually inserted.
	SaveMany(ctx context.Context, posts []domain.Post) (int, error)
	// GetUnprocessed returns posts with no AI summary yet, newest first.
	GetUnprocessed(ctx context.Context, limit int) ([]domain.Post, error)
	// GetUnbriefed returns relevant, processed posts that have not been
	// included in any briefing yet.
	GetUnbriefed(ctx context.Context, limit int) ([]domain.Post, error)
	// Update writes back the AI-derived fields of a post.
	Update(ctx context.Context, post domain.Post) error
	// DeleteMany permanently removes posts. Returns the count deleted.
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Search(ctx context.Context, q PostSearch) ([]domain.Post, error)
	CountBySource(ctx context.Context, start, end time.Time) (map[string]int, error)
	// MarkBriefed stamps briefed_at on the given posts.
	MarkBriefed(ctx context.Context, ids []string, at time.Time) error
}

// RunLedger persists the lifecycle state of collection attempts.
type RunLedger interface {
	Save(ctx context.Context, run domain.CollectionRun) error
	Update(ctx context.Context, run domain.CollectionRun) error
	GetRecent(ctx context.Context, limit int) ([]domain.CollectionRun, error)
	// CountConsecutiveFailures counts failed runs for a source, newest
	// first, stopping at the first non-failed run.
	CountConsecutiveFailures(ctx context.Context, source string) (int, error)
	GetLastSuccessful(ctx context.Context, source string) (*domain.CollectionRun, error)
}

// BriefingRepository stores rendered briefings and their items.
type BriefingRepository interface {
	Save(ctx context.Context, briefing *domain.Briefing) error
	Update(ctx context.Context, briefing *domain.Briefing) error
	GetLatest(ctx context.Context) (*domain.Briefing, error)
	GetAll(ctx context.Context, limit int) ([]domain.Briefing, error)
}

// CategoryRepository stores the static category taxonomy.
type CategoryRepository interface {
	Upsert(ctx context.Context, category domain.Category) error
	GetAll(ctx context.Context) ([]domain.Category, error)
}

// AIProcessor wraps the model API behind the three pipeline stages.
// Implementations degrade to documented safe defaults on stage failure
// rather than returning errors for individual chunks.
type AIProcessor interface {
	FilterAndSummarize(ctx context.Context, posts []domain.Post) ([]domain.FilterResult, error)
	Categorize(ctx context.Context, posts []domain.Post) ([]domain.CategoryResult, error)
	DeduplicateAndMerge(ctx context.Context, posts []domain.Post) ([]domain.MergedTopic, error)
}

// Notifier delivers briefings and operational alerts. Failures are
// reported to the caller, never fatal to the pipeline.
type Notifier interface {
	SendBriefing(ctx context.Context, briefing *domain.Briefing) error
	SendAlert(ctx context.Context, title, message string) error
}
