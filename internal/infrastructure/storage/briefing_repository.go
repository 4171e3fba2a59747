package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// BriefingRepository stores briefings and their ordered items.
type BriefingRepository struct {
	db DB
}

var _ ports.BriefingRepository = (*BriefingRepository)(nil)

// NewBriefingRepository wires a DB handle.
func NewBriefingRepository(db DB) *BriefingRepository {
	return &BriefingRepository{db: db}
}

const briefingColumns = `id, title, briefing_type, period_start, period_end, generated_at,
	total_posts_analyzed, total_items, content_text, content_html, email_sent, email_sent_at`

// Save inserts a briefing and all of its items.
func (r *BriefingRepository) Save(ctx context.Context, b *domain.Briefing) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	const stmt = `INSERT INTO briefings (` + briefingColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.db.Exec(ctx, stmt,
		b.ID, b.Title, b.BriefingType, b.PeriodStart, b.PeriodEnd, b.GeneratedAt,
		b.TotalPostsAnalyzed, b.TotalItems, b.ContentText, b.ContentHTML,
		b.EmailSent, b.EmailSentAt)
	if err != nil {
		return fmt.Errorf("insert briefing: %w", err)
	}

	if len(b.Items) == 0 {
		return nil
	}

	const itemStmt = `INSERT INTO briefing_items
		(id, briefing_id, headline, body, importance_score, category_name,
		 sort_order, source_count, sources_summary, source_post_ids, source_urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	batch := &pgx.Batch{}
	for i := range b.Items {
		item := &b.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.BriefingID = b.ID
		batch.Queue(itemStmt,
			item.ID, item.BriefingID, item.Headline, item.Body,
			item.ImportanceScore, item.CategoryName, item.SortOrder,
			item.SourceCount, item.SourcesSummary, item.SourcePostIDs, item.SourceURLs)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range b.Items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert briefing item: %w", err)
		}
	}
	return nil
}

// Update flips the delivery flags of a stored briefing.
func (r *BriefingRepository) Update(ctx context.Context, b *domain.Briefing) error {
	const stmt = `UPDATE briefings SET email_sent = $2, email_sent_at = $3 WHERE id = $1`

	_, err := r.db.Exec(ctx, stmt, b.ID, b.EmailSent, b.EmailSentAt)
	if err != nil {
		return fmt.Errorf("update briefing %s: %w", b.ID, err)
	}
	return nil
}

// GetLatest returns the newest briefing with its items, or nil when
// none exist yet.
func (r *BriefingRepository) GetLatest(ctx context.Context) (*domain.Briefing, error) {
	const query = `SELECT ` + briefingColumns + ` FROM briefings
		ORDER BY generated_at DESC
		LIMIT 1`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest briefing: %w", err)
	}

	briefings, err := scanBriefings(rows)
	if err != nil || len(briefings) == 0 {
		return nil, err
	}

	b := &briefings[0]
	if err := r.loadItems(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetAll lists briefings newest first, without items.
func (r *BriefingRepository) GetAll(ctx context.Context, limit int) ([]domain.Briefing, error) {
	const query = `SELECT ` + briefingColumns + ` FROM briefings
		ORDER BY generated_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query briefings: %w", err)
	}
	return scanBriefings(rows)
}

func (r *BriefingRepository) loadItems(ctx context.Context, b *domain.Briefing) error {
	const query = `SELECT id, briefing_id, headline, body, importance_score, category_name,
		sort_order, source_count, sources_summary, source_post_ids, source_urls
		FROM briefing_items
		WHERE briefing_id = $1
		ORDER BY sort_order ASC`

	rows, err := r.db.Query(ctx, query, b.ID)
	if err != nil {
		return fmt.Errorf("query briefing items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.BriefingItem
		err := rows.Scan(&item.ID, &item.BriefingID, &item.Headline, &item.Body,
			&item.ImportanceScore, &item.CategoryName, &item.SortOrder,
			&item.SourceCount, &item.SourcesSummary, &item.SourcePostIDs, &item.SourceURLs)
		if err != nil {
			return fmt.Errorf("scan briefing item: %w", err)
		}
		b.Items = append(b.Items, item)
	}
	return rows.Err()
}

func scanBriefings(rows pgx.Rows) ([]domain.Briefing, error) {
	defer rows.Close()

	var briefings []domain.Briefing
	for rows.Next() {
		var b domain.Briefing
		var contentText, contentHTML *string

		err := rows.Scan(&b.ID, &b.Title, &b.BriefingType, &b.PeriodStart, &b.PeriodEnd,
			&b.GeneratedAt, &b.TotalPostsAnalyzed, &b.TotalItems,
			&contentText, &contentHTML, &b.EmailSent, &b.EmailSentAt)
		if err != nil {
			return nil, fmt.Errorf("scan briefing: %w", err)
		}

		b.ContentText = deref(contentText)
		b.ContentHTML = deref(contentHTML)
		briefings = append(briefings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return briefings, nil
}
