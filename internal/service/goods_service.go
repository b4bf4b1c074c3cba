package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	searchLimit = 50
	// catalogLoadTimeout bounds a catalog load shared by coalesced readers.
	catalogLoadTimeout = 10 * time.Second
)

// goodsService implements GoodsService.
type goodsService struct {
	goodsRepo    repository.GoodsRepository
	stockRepo    repository.AvailabilityRepository
	availability AvailabilityService
	cache        CatalogCache
	cal          *calendar.Calendar
	sf           singleflight.Group
	logger       zerolog.Logger
}

// NewGoodsService creates a new goods service. catalogCache may be nil, in
// which case every catalog read goes to the database.
func NewGoodsService(
	goodsRepo repository.GoodsRepository,
	stockRepo repository.AvailabilityRepository,
	availability AvailabilityService,
	catalogCache CatalogCache,
	cal *calendar.Calendar,
	logger zerolog.Logger,
) GoodsService {
	return &goodsService{
		goodsRepo:    goodsRepo,
		stockRepo:    stockRepo,
		availability: availability,
		cache:        catalogCache,
		cal:          cal,
		logger:       logger.With().Str("service", "goods").Logger(),
	}
}

// Create stores new goods and generates their availability.
func (s *goodsService) Create(ctx context.Context, req *model.GoodsCreateRequest) (*model.Goods, error) {
	g := req.Goods()
	if g.EndDate.Before(g.StartDate) {
		return nil, model.NewValidationError("end_date must not be before start_date")
	}
	g.IsActive = g.InWindow(s.cal.Now())

	if err := s.goodsRepo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goods: %w", err)
	}

	// Goods stay created even when stock generation fails; an admin can
	// regenerate later.
	s.generate(ctx, g)
	s.invalidateCatalog(ctx)

	s.logger.Info().
		Int64("goods_id", g.ID).
		Str("article", g.Article).
		Bool("is_active", g.IsActive).
		Msg("goods created")

	return g, nil
}

// Update applies a partial update.
func (s *goodsService) Update(ctx context.Context, id int64, req *model.GoodsUpdateRequest) (*model.Goods, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := req.Apply(g)
	if g.EndDate.Before(g.StartDate) {
		return nil, model.NewValidationError("end_date must not be before start_date")
	}
	if scheduleChanged && req.IsActive == nil {
		g.IsActive = g.InWindow(s.cal.Now())
	}

	if err := s.goodsRepo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update goods: %w", err)
	}

	if scheduleChanged {
		s.generate(ctx, g)
	}
	s.invalidateCatalog(ctx)

	s.logger.Info().
		Int64("goods_id", g.ID).
		Bool("schedule_changed", scheduleChanged).
		Msg("goods updated")

	return g, nil
}

func (s *goodsService) generate(ctx context.Context, g *model.Goods) {
	if _, err := s.availability.Generate(ctx, g.ID, g.StartDate, g.EndDate, g.MinDaily, g.MaxDaily); err != nil {
		s.logger.Error().
			Err(err).
			Int64("goods_id", g.ID).
			Msg("failed to generate availability")
	}
}

// GetByID retrieves goods by ID.
func (s *goodsService) GetByID(ctx context.Context, id int64) (*model.Goods, error) {
	g, err := s.goodsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get goods: %w", err)
	}
	if g == nil {
		return nil, model.ErrGoodsNotFound
	}
	return g, nil
}

// List retrieves goods matching the filter.
func (s *goodsService) List(ctx context.Context, filter model.GoodsFilter) ([]model.Goods, error) {
	goods, err := s.goodsRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list goods: %w", err)
	}
	return goods, nil
}

// Search matches a query against goods names and articles.
func (s *goodsService) Search(ctx context.Context, query string) ([]model.Goods, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewValidationError("search query is required")
	}

	goods, err := s.goodsRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search goods: %w", err)
	}
	return goods, nil
}

// Hide soft-deletes goods.
func (s *goodsService) Hide(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if _, err := s.goodsRepo.SetHidden(ctx, []int64{id}, true); err != nil {
		return fmt.Errorf("failed to hide goods: %w", err)
	}
	s.invalidateCatalog(ctx)

	s.logger.Info().Int64("goods_id", id).Msg("goods hidden")

	return nil
}

// SetHidden hides or shows several goods.
func (s *goodsService) SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error) {
	if len(ids) == 0 {
		return 0, model.NewValidationError("ids must not be empty")
	}

	changed, err := s.goodsRepo.SetHidden(ctx, ids, hidden)
	if err != nil {
		return 0, fmt.Errorf("failed to update goods visibility: %w", err)
	}
	if changed > 0 {
		s.invalidateCatalog(ctx)
	}

	s.logger.Info().
		Int("requested", len(ids)).
		Int64("changed", changed).
		Bool("hidden", hidden).
		Msg("goods visibility updated")

	return changed, nil
}

// RegenerateAvailability re-runs the generator from the stored window and bounds.
func (s *goodsService) RegenerateAvailability(ctx context.Context, id int64) (int, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	created, err := s.availability.Generate(ctx, g.ID, g.StartDate, g.EndDate, g.MinDaily, g.MaxDaily)
	if err != nil {
		return 0, err
	}
	s.invalidateCatalog(ctx)

	return created, nil
}

// Catalog lists visible goods with stock left today. Past stock rows are
// purged on the way.
func (s *goodsService) Catalog(ctx context.Context, categoryID *int64) ([]model.CatalogItem, error) {
	today := s.cal.Today()

	if purged, err := s.stockRepo.PurgeBefore(ctx, today); err != nil {
		s.logger.Warn().Err(err).Msg("failed to purge past availability")
	} else if purged > 0 {
		s.logger.Debug().Int64("purged", purged).Msg("past availability purged")
	}

	key := catalogKey(today, categoryID)
	gen, cached := s.catalogGeneration(ctx)
	if cached {
		items, err := s.cache.Get(ctx, gen, key)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
	}

	// The load outlives any one caller: readers coalesced onto it must not
	// fail because the first of them went away.
	v, err, _ := s.sf.Do(strconv.FormatInt(gen, 10)+":"+key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLoadTimeout)
		defer cancel()

		items, err := s.goodsRepo.ListCatalog(loadCtx, today, s.cal.Now(), categoryID)
		if err != nil {
			return nil, err
		}
		if cached {
			if err := s.cache.Set(loadCtx, gen, key, items); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	return v.([]model.CatalogItem), nil
}

// catalogGeneration reports the cache generation to read and write under.
// The cache is bypassed when it is disabled or unreachable.
func (s *goodsService) catalogGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (s *goodsService) invalidateCatalog(ctx context.Context) {
	invalidateCatalog(ctx, s.cache, s.logger)
}

// invalidateCatalog drops cached catalog listings after a write.
func invalidateCatalog(ctx context.Context, c CatalogCache, logger zerolog.Logger) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

func catalogKey(day time.Time, categoryID *int64) string {
	category := "all"
	if categoryID != nil {
		category = strconv.FormatInt(*categoryID, 10)
	}
	return day.Format(time.DateOnly) + ":" + category
}
