package repository

import (
	"context"
	"errors"
	"fmt"

	"wb-aggregator/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// categoryRepository implements the CategoryRepository interface using PostgreSQL.
type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

// Create inserts a category.
func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at`

	if err := r.pool.QueryRow(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Str("name", c.Name).Msg("failed to create category")
		return fmt.Errorf("failed to create category: %w", err)
	}
	c.Notes = []model.CategoryNote{}

	return nil
}

// GetByID retrieves a category with its notes. Returns nil, nil when not found.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	query := `SELECT id, name, created_at FROM categories WHERE id = $1`

	var c model.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("category_id", id).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	notes, err := r.notes(ctx, &id)
	if err != nil {
		return nil, err
	}
	c.Notes = notes[id]
	if c.Notes == nil {
		c.Notes = []model.CategoryNote{}
	}

	return &c, nil
}

// List retrieves all categories with their notes, ordered by name.
func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	notes, err := r.notes(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Notes = notes[categories[i].ID]
		if categories[i].Notes == nil {
			categories[i].Notes = []model.CategoryNote{}
		}
	}

	return categories, nil
}

// notes loads notes grouped by category, for one category or all of them.
func (r *categoryRepository) notes(ctx context.Context, categoryID *int64) (map[int64][]model.CategoryNote, error) {
	query := `
		SELECT id, category_id, text, created_at
		FROM category_notes
		WHERE $1::BIGINT IS NULL OR category_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, categoryID)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query category notes")
		return nil, fmt.Errorf("failed to query category notes: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]model.CategoryNote)
	for rows.Next() {
		var n model.CategoryNote
		if err := rows.Scan(&n.ID, &n.CategoryID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category note: %w", err)
		}
		grouped[n.CategoryID] = append(grouped[n.CategoryID], n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category notes: %w", err)
	}

	return grouped, nil
}

// Update renames a category.
func (r *categoryRepository) Update(ctx context.Context, c *model.Category) (bool, error) {
	query := `UPDATE categories SET name = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return false, model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Int64("category_id", c.ID).Msg("failed to update category")
		return false, fmt.Errorf("failed to update category: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes a category; its goods are detached by the foreign key.
func (r *categoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("category_id", id).Msg("failed to delete category")
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// AddNote attaches a note to a category.
func (r *categoryRepository) AddNote(ctx context.Context, note *model.CategoryNote) error {
	query := `
		INSERT INTO category_notes (category_id, text)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query, note.CategoryID, note.Text).Scan(&note.ID, &note.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Int64("category_id", note.CategoryID).Msg("failed to create category note")
		return fmt.Errorf("failed to create category note: %w", err)
	}

	return nil
}

// DeleteNote removes a note from a category.
func (r *categoryRepository) DeleteNote(ctx context.Context, categoryID, noteID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM category_notes WHERE id = $1 AND category_id = $2`,
		noteID, categoryID,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("note_id", noteID).Msg("failed to delete category note")
		return false, fmt.Errorf("failed to delete category note: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
