package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// CategoryRepository stores the static taxonomy, seeded at startup.
type CategoryRepository struct {
	db DB
}

var _ ports.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository wires a DB handle.
func NewCategoryRepository(db DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Upsert inserts or refreshes a category keyed by name.
func (r *CategoryRepository) Upsert(ctx context.Context, c domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	const stmt = `INSERT INTO categories (id, name, name_ko, color, keywords)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET name_ko = EXCLUDED.name_ko,
		    color = EXCLUDED.color,
		    keywords = EXCLUDED.keywords`

	_, err := r.db.Exec(ctx, stmt, c.ID, c.Name, c.NameKo, c.Color, c.Keywords)
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", c.Name, err)
	}
	return nil
}

// GetAll lists categories in name order.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, name_ko, color, keywords FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NameKo, &c.Color, &c.Keywords); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return categories, nil
}
