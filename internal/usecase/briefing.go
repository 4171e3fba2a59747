package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"techbriefing/internal/briefing"
	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// GenerateBriefing merges unbriefed posts into topics and compiles the
// ranked digest for a period.
type GenerateBriefing struct {
	posts         ports.PostRepository
	briefings     ports.BriefingRepository
	ai            ports.AIProcessor
	compiler      *briefing.Compiler
	notifier      ports.Notifier
	limit         int
	minImportance float64
	logger        *slog.Logger
	now           func() time.Time
}

// NewGenerateBriefing wires the briefing pipeline. Posts below
// minImportance never make it into the merge stage.
func NewGenerateBriefing(
	posts ports.PostRepository,
	briefings ports.BriefingRepository,
	ai ports.AIProcessor,
	compiler *briefing.Compiler,
	notifier ports.Notifier,
	limit int,
	minImportance float64,
	logger *slog.Logger,
) *GenerateBriefing {
	if limit <= 0 {
		limit = 200
	}
	return &GenerateBriefing{
		posts:         posts,
		briefings:     briefings,
		ai:            ai,
		compiler:      compiler,
		notifier:      notifier,
		limit:         limit,
		minImportance: minImportance,
		logger:        logger,
		now:           time.Now,
	}
}

// Execute builds the briefing for the period and marks the posts it
// consumed. Without eligible posts it returns the placeholder briefing,
// which is never persisted.
func (uc *GenerateBriefing) Execute(ctx context.Context, periodStart, periodEnd time.Time) (*domain.Briefing, error) {
	posts, err := uc.posts.GetUnbriefed(ctx, uc.limit)
	if err != nil {
		return nil, fmt.Errorf("load unbriefed posts: %w", err)
	}
	total := len(posts)

	eligible := posts[:0:0]
	for _, p := range posts {
		if p.ImportanceScore >= uc.minImportance {
			eligible = append(eligible, p)
		}
	}

	if len(eligible) == 0 {
		uc.info("no eligible posts, placeholder briefing", "unbriefed", total)
		return uc.compiler.Compile(nil, periodStart, periodEnd, total), nil
	}

	topics, err := uc.ai.DeduplicateAndMerge(ctx, eligible)
	if err != nil {
		return nil, fmt.Errorf("merge topics: %w", err)
	}

	b := uc.compiler.Compile(topics, periodStart, periodEnd, total)
	if err := uc.briefings.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("save briefing: %w", err)
	}

	ids := make([]string, 0, len(eligible))
	for _, p := range eligible {
		ids = append(ids, p.ID)
	}
	if err := uc.posts.MarkBriefed(ctx, ids, uc.now()); err != nil {
		return nil, fmt.Errorf("mark posts briefed: %w", err)
	}

	uc.info("briefing generated",
		"items", b.TotalItems,
		"topics", len(topics),
		"posts", len(eligible))
	return b, nil
}

// Send delivers the briefing and stamps the delivery on success.
// Delivery failure is reported as false, never as a pipeline error.
func (uc *GenerateBriefing) Send(ctx context.Context, b *domain.Briefing) bool {
	if b == nil || b.TotalItems == 0 {
		return false
	}

	if err := uc.notifier.SendBriefing(ctx, b); err != nil {
		uc.error("briefing delivery failed", "briefing", b.ID, "error", err)
		return false
	}

	sentAt := uc.now()
	b.EmailSent = true
	b.EmailSentAt = &sentAt
	if err := uc.briefings.Update(ctx, b); err != nil {
		uc.error("record briefing delivery", "briefing", b.ID, "error", err)
	}
	return true
}

func (uc *GenerateBriefing) info(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Info(msg, args...)
	}
}

func (uc *GenerateBriefing) error(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Error(msg, args...)
	}
}
