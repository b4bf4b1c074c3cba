package service

import (
	"context"
	"fmt"
	"strings"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/rs/zerolog"
)

// categoryService implements CategoryService.
type categoryService struct {
	repo   repository.CategoryRepository
	cache  CatalogCache
	logger zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, catalogCache CatalogCache, logger zerolog.Logger) CategoryService {
	return &categoryService{
		repo:   repo,
		cache:  catalogCache,
		logger: logger.With().Str("service", "category").Logger(),
	}
}

func (s *categoryService) Create(ctx context.Context, req *model.CategoryRequest) (*model.Category, error) {
	c := &model.Category{Name: strings.TrimSpace(req.Name)}
	if c.Name == "" {
		return nil, model.NewValidationError("name is required")
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("category created")

	return c, nil
}

func (s *categoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if c == nil {
		return nil, model.ErrCategoryNotFound
	}
	return c, nil
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, id int64, req *model.CategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("name is required")
	}

	ok, err := s.repo.Update(ctx, &model.Category{ID: id, Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if !ok {
		return nil, model.ErrCategoryNotFound
	}

	return s.GetByID(ctx, id)
}

// Delete removes a category. Its goods lose the category, which changes
// filtered catalog listings.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if !ok {
		return model.ErrCategoryNotFound
	}

	invalidateCatalog(ctx, s.cache, s.logger)
	s.logger.Info().Int64("category_id", id).Msg("category deleted")

	return nil
}

func (s *categoryService) AddNote(ctx context.Context, categoryID int64, req *model.CategoryNoteRequest) (*model.CategoryNote, error) {
	note := &model.CategoryNote{CategoryID: categoryID, Text: strings.TrimSpace(req.Text)}
	if note.Text == "" {
		return nil, model.NewValidationError("text is required")
	}

	if err := s.repo.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add category note: %w", err)
	}
	return note, nil
}

func (s *categoryService) DeleteNote(ctx context.Context, categoryID, noteID int64) error {
	ok, err := s.repo.DeleteNote(ctx, categoryID, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete category note: %w", err)
	}
	if !ok {
		return model.ErrNoteNotFound
	}
	return nil
}
