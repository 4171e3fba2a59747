package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
	"techbriefing/internal/retry"
)

type fakeAdapter struct {
	name         string
	sessionValid bool
	posts        []domain.Post
	errs         []error
	calls        int
}

func (f *fakeAdapter) SourceName() string { return f.name }

func (f *fakeAdapter) SessionValid(context.Context) bool { return f.sessionValid }

func (f *fakeAdapter) Collect(context.Context) ([]domain.Post, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.posts, nil
}

type fakePostRepo struct {
	ports.PostRepository

	saved     []domain.Post
	saveCount int
	saveErr   error
}

func (f *fakePostRepo) SaveMany(_ context.Context, posts []domain.Post) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, posts...)
	return f.saveCount, nil
}

type fakeLedger struct {
	ports.RunLedger

	saved   []domain.CollectionRun
	updated []domain.CollectionRun
	saveErr error
}

func (f *fakeLedger) Save(_ context.Context, run domain.CollectionRun) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeLedger) Update(_ context.Context, run domain.CollectionRun) error {
	f.updated = append(f.updated, run)
	return nil
}

// fastRetrier keeps the default budget but drops the waits so tests
// run instantly.
func fastRetrier() *retry.Retrier {
	return retry.New(retry.Config{MaxAttempts: 3, Factor: 2}, func(err error) bool {
		return !domain.IsSessionExpired(err)
	}, nil)
}

func TestCollectSuccessRecordsInsertedCount(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name:         "threads",
		sessionValid: true,
		posts: []domain.Post{
			{ExternalID: "a", ContentText: "first post"},
			{ExternalID: "b", ContentText: "second post"},
			{ExternalID: "a", ContentText: "first post"},
		},
	}
	repo := &fakePostRepo{saveCount: 2}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	run, err := uc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunSuccess, run.Status)
	assert.Equal(t, 2, run.PostsCollected, "count reflects inserts, not collected posts")
	require.NotNil(t, run.CompletedAt)

	// Every post got a fingerprint before persistence; identical content
	// fingerprints identically.
	require.Len(t, repo.saved, 3)
	for _, p := range repo.saved {
		assert.NotEmpty(t, p.ContentHash)
	}
	assert.Equal(t, repo.saved[0].ContentHash, repo.saved[2].ContentHash)
	assert.NotEqual(t, repo.saved[0].ContentHash, repo.saved[1].ContentHash)

	// Ledger saw the running state, then exactly one terminal update.
	require.Len(t, ledger.saved, 1)
	assert.Equal(t, domain.RunRunning, ledger.saved[0].Status)
	require.Len(t, ledger.updated, 1)
	assert.Equal(t, domain.RunSuccess, ledger.updated[0].Status)
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name:         "threads",
		sessionValid: true,
		posts:        []domain.Post{{ExternalID: "a", ContentText: "x"}},
		errs:         []error{errors.New("flaky"), errors.New("flaky again"), nil},
	}
	repo := &fakePostRepo{saveCount: 1}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	run, err := uc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, adapter.calls, "two transient failures then success")
	assert.Equal(t, domain.RunSuccess, run.Status)
}

func TestCollectExhaustedRetriesFailsRun(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name:         "threads",
		sessionValid: true,
		errs:         []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	repo := &fakePostRepo{}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	run, err := uc.Execute(context.Background())

	require.NoError(t, err, "only session expiry propagates to the caller")
	assert.Equal(t, 3, adapter.calls)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "3 attempts failed")
	assert.Empty(t, repo.saved)

	require.Len(t, ledger.updated, 1)
	assert.Equal(t, domain.RunFailed, ledger.updated[0].Status)
}

func TestCollectSessionExpiredPropagates(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "threads", sessionValid: false}
	repo := &fakePostRepo{}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	run, err := uc.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsSessionExpired(err))
	assert.Zero(t, adapter.calls, "no collection attempt on an expired session")

	// The failure is recorded AND re-raised.
	assert.Equal(t, domain.RunFailed, run.Status)
	require.Len(t, ledger.updated, 1)
	assert.Contains(t, ledger.updated[0].ErrorMessage, "session expired")
}

func TestCollectPersistenceFailureFailsRun(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name:         "threads",
		sessionValid: true,
		posts:        []domain.Post{{ExternalID: "a", ContentText: "x"}},
	}
	repo := &fakePostRepo{saveErr: errors.New("connection reset")}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	run, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "connection reset")
}

func TestCollectRunTimestamps(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "threads", sessionValid: true}
	repo := &fakePostRepo{}
	ledger := &fakeLedger{}

	uc := NewCollectPosts(adapter, repo, ledger, fastRetrier(), nil)
	base := time.Date(2026, 2, 10, 5, 0, 0, 0, time.UTC)
	ticks := 0
	uc.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	run, err := uc.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, run.CompletedAt.After(run.StartedAt))
}
