package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"techbriefing/internal/domain"
	"techbriefing/internal/fingerprint"
	"techbriefing/internal/ports"
	"techbriefing/internal/retry"
)

// CollectPosts runs one collection cycle for a single source: session
// check, retry-wrapped collect, fingerprinting, idempotent persist,
// and a run record that always reaches a terminal status.
type CollectPosts struct {
	adapter ports.SourceAdapter
	posts   ports.PostRepository
	ledger  ports.RunLedger
	retrier *retry.Retrier
	logger  *slog.Logger
	now     func() time.Time
}

// NewCollectPosts wires the coordinator for one source. A nil retrier
// gets the default budget with session-expiry excluded from retries.
func NewCollectPosts(adapter ports.SourceAdapter, posts ports.PostRepository, ledger ports.RunLedger, retrier *retry.Retrier, logger *slog.Logger) *CollectPosts {
	if retrier == nil {
		retrier = retry.New(retry.DefaultConfig(), func(err error) bool {
			return !domain.IsSessionExpired(err)
		}, logger)
	}
	return &CollectPosts{
		adapter: adapter,
		posts:   posts,
		ledger:  ledger,
		retrier: retrier,
		logger:  logger,
		now:     time.Now,
	}
}

// Execute runs the cycle and returns the terminal run record. The only
// error it propagates is session expiry, which the caller must alert
// on; every other failure is folded into the run record.
func (uc *CollectPosts) Execute(ctx context.Context) (domain.CollectionRun, error) {
	source := uc.adapter.SourceName()
	run := domain.NewCollectionRun(uuid.NewString(), source, uc.now())

	// Persist the running state first so a crash mid-cycle leaves
	// visible evidence in the ledger.
	if err := uc.ledger.Save(ctx, run); err != nil {
		return run, fmt.Errorf("save run record: %w", err)
	}

	var sessionErr error
	err := uc.cycle(ctx, &run)
	switch {
	case err == nil:
		run.Complete(domain.RunSuccess, uc.now(), "")
		uc.info("collection complete", "source", source, "saved", run.PostsCollected)
	case domain.IsSessionExpired(err):
		run.Complete(domain.RunFailed, uc.now(), err.Error())
		sessionErr = err
		uc.error("session expired, manual re-login required", "source", source)
	default:
		run.Complete(domain.RunFailed, uc.now(), err.Error())
		uc.error("collection failed", "source", source, "error", err)
	}

	// The terminal status is written exactly once, whatever path the
	// cycle took.
	if err := uc.ledger.Update(ctx, run); err != nil {
		uc.error("update run record", "source", source, "error", err)
	}

	return run, sessionErr
}

func (uc *CollectPosts) cycle(ctx context.Context, run *domain.CollectionRun) error {
	if !uc.adapter.SessionValid(ctx) {
		return domain.NewSessionExpired(run.Source)
	}

	posts, err := uc.collectWithRetry(ctx, run.Source)
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].ContentHash = fingerprint.Compute(posts[i].ContentText)
	}

	// Duplicates are dropped by the keyed upsert; saved counts only
	// genuinely new posts, which may be fewer than collected.
	saved, err := uc.posts.SaveMany(ctx, posts)
	if err != nil {
		return fmt.Errorf("persist posts: %w", err)
	}
	run.PostsCollected = saved

	uc.info("posts persisted", "source", run.Source, "collected", len(posts), "saved", saved)
	return nil
}

func (uc *CollectPosts) collectWithRetry(ctx context.Context, source string) ([]domain.Post, error) {
	var posts []domain.Post
	err := uc.retrier.Do(ctx, func() error {
		var collectErr error
		posts, collectErr = uc.adapter.Collect(ctx)
		return collectErr
	})
	if err != nil {
		if domain.IsSessionExpired(err) {
			return nil, err
		}
		return nil, domain.NewTerminal(source, uc.retrier.MaxAttempts(), err)
	}
	return posts, nil
}

func (uc *CollectPosts) info(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Info(msg, args...)
	}
}

func (uc *CollectPosts) error(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Error(msg, args...)
	}
}
