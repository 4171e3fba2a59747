package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// ProcessStats summarizes one processing cycle.
type ProcessStats struct {
	Total       int
	Relevant    int
	FilteredOut int
	Deleted     int
}

// ProcessPosts drives the filter and categorize stages over the
// unprocessed backlog, persisting judgments for relevant posts and
// deleting the noise.
type ProcessPosts struct {
	posts  ports.PostRepository
	ai     ports.AIProcessor
	limit  int
	logger *slog.Logger
}

// NewProcessPosts wires the coordinator. limit bounds how many posts
// one cycle pulls from the backlog.
func NewProcessPosts(posts ports.PostRepository, ai ports.AIProcessor, limit int, logger *slog.Logger) *ProcessPosts {
	if limit <= 0 {
		limit = 200
	}
	return &ProcessPosts{posts: posts, ai: ai, limit: limit, logger: logger}
}

// Execute runs one processing cycle. An empty backlog is a clean no-op.
func (uc *ProcessPosts) Execute(ctx context.Context) (ProcessStats, error) {
	var stats ProcessStats

	batch, err := uc.posts.GetUnprocessed(ctx, uc.limit)
	if err != nil {
		return stats, fmt.Errorf("load unprocessed posts: %w", err)
	}
	stats.Total = len(batch)
	if len(batch) == 0 {
		uc.info("no unprocessed posts")
		return stats, nil
	}

	filtered, err := uc.ai.FilterAndSummarize(ctx, batch)
	if err != nil {
		return stats, fmt.Errorf("filter posts: %w", err)
	}

	judgments := map[string]domain.FilterResult{}
	for _, r := range filtered {
		judgments[r.PostID] = r
	}

	var relevant []domain.Post
	var irrelevantIDs []string
	var unjudged int
	for _, post := range batch {
		r, ok := judgments[post.ID]
		if !ok {
			// No judgment means no verdict: the post stays in the
			// backlog for the next cycle instead of being destroyed.
			unjudged++
			continue
		}
		if !r.IsRelevant {
			irrelevantIDs = append(irrelevantIDs, post.ID)
			continue
		}
		post.IsRelevant = boolPtr(true)
		post.Summary = r.Summary
		post.Language = r.Language
		relevant = append(relevant, post)
	}
	stats.Relevant = len(relevant)
	stats.FilteredOut = len(irrelevantIDs)
	if unjudged > 0 {
		uc.info("posts left unjudged, kept for next cycle", "count", unjudged)
	}

	// Only relevant posts earn a categorize call.
	if len(relevant) > 0 {
		categorized, err := uc.ai.Categorize(ctx, relevant)
		if err != nil {
			return stats, fmt.Errorf("categorize posts: %w", err)
		}
		classes := map[string]domain.CategoryResult{}
		for _, r := range categorized {
			classes[r.PostID] = r
		}
		for i := range relevant {
			if r, ok := classes[relevant[i].ID]; ok {
				relevant[i].CategoryNames = r.Categories
				relevant[i].ImportanceScore = r.ImportanceScore
				relevant[i].Keywords = r.Keywords
			}
		}
	}

	for _, post := range relevant {
		if err := uc.posts.Update(ctx, post); err != nil {
			return stats, fmt.Errorf("update post %s: %w", post.ID, err)
		}
	}

	if len(irrelevantIDs) > 0 {
		deleted, err := uc.posts.DeleteMany(ctx, irrelevantIDs)
		if err != nil {
			return stats, fmt.Errorf("delete irrelevant posts: %w", err)
		}
		stats.Deleted = deleted
	}

	uc.info("processing cycle complete",
		"total", stats.Total,
		"relevant", stats.Relevant,
		"filtered_out", stats.FilteredOut,
		"deleted", stats.Deleted)
	return stats, nil
}

func (uc *ProcessPosts) info(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Info(msg, args...)
	}
}

func boolPtr(b bool) *bool { return &b }
