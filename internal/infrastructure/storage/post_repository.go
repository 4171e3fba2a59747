package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

const postColumns = `id, source, external_id, url, author, author_url,
	content_text, content_html, media_urls,
	engagement_likes, engagement_reposts, engagement_comments, engagement_views,
	published_at, collected_at,
	summary, importance_score, language, is_relevant, category_names, keywords,
	content_hash, dedup_cluster_id, briefed_at`

// PostRepository persists posts in the posts table.
type PostRepository struct {
	db DB
}

var _ ports.PostRepository = (*PostRepository)(nil)

// NewPostRepository wires a DB handle.
func NewPostRepository(db DB) *PostRepository {
	return &PostRepository{db: db}
}

// SaveMany bulk-upserts posts keyed by (source, external_id). Existing
// rows are left untouched; the return value counts rows actually
// inserted, which can be lower than len(posts).
func (r *PostRepository) SaveMany(ctx context.Context, posts []domain.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	const stmt = `INSERT INTO posts (` + postColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		ON CONFLICT (source, external_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, p := range posts {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		batch.Queue(stmt,
			p.ID, p.Source, p.ExternalID, p.URL, p.Author, nullable(p.AuthorURL),
			p.ContentText, nullable(p.ContentHTML), p.MediaURLs,
			p.EngagementLikes, p.EngagementReposts, p.EngagementComments, p.EngagementViews,
			nullTime(p.PublishedAt), p.CollectedAt,
			nullable(p.Summary), nullFloat(p.ImportanceScore), nullable(p.Language),
			p.IsRelevant, p.CategoryNames, p.Keywords,
			nullable(p.ContentHash), nullable(p.DedupClusterID), p.BriefedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range posts {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("upsert post: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetUnprocessed returns posts with no summary yet, newest first.
func (r *PostRepository) GetUnprocessed(ctx context.Context, limit int) ([]domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts
		WHERE summary IS NULL
		ORDER BY collected_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	return scanPosts(rows)
}

// GetUnbriefed returns relevant processed posts not yet included in a
// briefing.
func (r *PostRepository) GetUnbriefed(ctx context.Context, limit int) ([]domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts
		WHERE is_relevant = TRUE AND summary IS NOT NULL AND briefed_at IS NULL
		ORDER BY collected_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unbriefed: %w", err)
	}
	return scanPosts(rows)
}

// Update writes back the AI-derived fields of a post.
func (r *PostRepository) Update(ctx context.Context, post domain.Post) error {
	const stmt = `UPDATE posts SET
		summary = $2, importance_score = $3, language = $4,
		is_relevant = $5, category_names = $6, keywords = $7,
		dedup_cluster_id = $8
		WHERE id = $1`

	_, err := r.db.Exec(ctx, stmt,
		post.ID,
		nullable(post.Summary), nullFloat(post.ImportanceScore), nullable(post.Language),
		post.IsRelevant, post.CategoryNames, post.Keywords,
		nullable(post.DedupClusterID),
	)
	if err != nil {
		return fmt.Errorf("update post %s: %w", post.ID, err)
	}
	return nil
}

// DeleteMany permanently removes posts by id.
func (r *PostRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Search filters posts by free text, source, category and period. The
// WHERE clause shape depends on which filters are set, so the query is
// built dynamically.
func (r *PostRepository) Search(ctx context.Context, q ports.PostSearch) ([]domain.Post, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(postColumns).
		From("posts").
		OrderBy("collected_at DESC")

	if q.Query != "" {
		pattern := "%" + q.Query + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"content_text": pattern},
			sq.ILike{"summary": pattern},
		})
	}
	if q.Source != "" {
		builder = builder.Where(sq.Eq{"source": q.Source})
	}
	if q.Category != "" {
		builder = builder.Where("? = ANY(category_names)", q.Category)
	}
	if !q.Start.IsZero() {
		builder = builder.Where(sq.GtOrEq{"collected_at": q.Start})
	}
	if !q.End.IsZero() {
		builder = builder.Where(sq.LtOrEq{"collected_at": q.End})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	builder = builder.Limit(uint64(limit)).Offset(uint64(q.Offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return scanPosts(rows)
}

// CountBySource counts posts collected in [start, end] per source.
func (r *PostRepository) CountBySource(ctx context.Context, start, end time.Time) (map[string]int, error) {
	const query = `SELECT source, COUNT(*) FROM posts
		WHERE collected_at >= $1 AND collected_at <= $2
		GROUP BY source`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return counts, nil
}

// MarkBriefed stamps briefed_at on the given posts.
func (r *PostRepository) MarkBriefed(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx, `UPDATE posts SET briefed_at = $2 WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("mark briefed: %w", err)
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var authorURL, contentHTML, summary, language, contentHash, clusterID *string
		var importance *float64
		var publishedAt *time.Time

		err := rows.Scan(
			&p.ID, &p.Source, &p.ExternalID, &p.URL, &p.Author, &authorURL,
			&p.ContentText, &contentHTML, &p.MediaURLs,
			&p.EngagementLikes, &p.EngagementReposts, &p.EngagementComments, &p.EngagementViews,
			&publishedAt, &p.CollectedAt,
			&summary, &importance, &language, &p.IsRelevant, &p.CategoryNames, &p.Keywords,
			&contentHash, &clusterID, &p.BriefedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}

		p.AuthorURL = deref(authorURL)
		p.ContentHTML = deref(contentHTML)
		p.Summary = deref(summary)
		p.Language = deref(language)
		p.ContentHash = deref(contentHash)
		p.DedupClusterID = deref(clusterID)
		if importance != nil {
			p.ImportanceScore = *importance
		}
		if publishedAt != nil {
			p.PublishedAt = *publishedAt
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
