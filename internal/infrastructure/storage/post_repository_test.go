package storage

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techbriefing/internal/ports"
)

func TestDeleteManyCountsRemovedRows(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostRepository(mock)

	ids := []string{"a", "b", "c"}
	mock.ExpectExec(`DELETE FROM posts WHERE id = ANY`).
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := repo.DeleteMany(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
}

func TestDeleteManyEmptyInputSkipsQuery(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostRepository(mock)

	deleted, err := repo.DeleteMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestMarkBriefedStampsAllPosts(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostRepository(mock)

	ids := []string{"p1", "p2"}
	at := time.Date(2026, 2, 10, 6, 30, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE posts SET briefed_at`).
		WithArgs(ids, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, repo.MarkBriefed(context.Background(), ids, at))
}

func TestCountBySource(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostRepository(mock)

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()

	mock.ExpectQuery(`SELECT source, COUNT\(\*\) FROM posts`).
		WithArgs(start, end).
		WillReturnRows(pgxmock.NewRows([]string{"source", "count"}).
			AddRow("threads", 12).
			AddRow("x", 30))

	counts, err := repo.CountBySource(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"threads": 12, "x": 30}, counts)
}

func TestSearchBuildsDynamicFilters(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostRepository(mock)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE (.+)source = \$\d`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "external_id", "url", "author", "author_url",
			"content_text", "content_html", "media_urls",
			"engagement_likes", "engagement_reposts", "engagement_comments", "engagement_views",
			"published_at", "collected_at",
			"summary", "importance_score", "language", "is_relevant", "category_names", "keywords",
			"content_hash", "dedup_cluster_id", "briefed_at",
		}))

	_, err := repo.Search(context.Background(), ports.PostSearch{
		Query:  "gpu",
		Source: "threads",
		Limit:  10,
	})
	require.NoError(t, err)
}
