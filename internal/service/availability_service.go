package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/rs/zerolog"
)

// maxGeneratedDays caps how far ahead stock is generated.
const maxGeneratedDays = 365

// availabilityService implements AvailabilityService.
type availabilityService struct {
	txm       repository.TxManager
	stockRepo repository.AvailabilityRepository
	cal       *calendar.Calendar
	intn      func(n int) int
	logger    zerolog.Logger
}

// NewAvailabilityService creates a new availability generator.
func NewAvailabilityService(
	txm repository.TxManager,
	stockRepo repository.AvailabilityRepository,
	cal *calendar.Calendar,
	logger zerolog.Logger,
) AvailabilityService {
	return &availabilityService{
		txm:       txm,
		stockRepo: stockRepo,
		cal:       cal,
		intn:      rand.IntN,
		logger:    logger.With().Str("service", "availability").Logger(),
	}
}

// Generate replaces the goods' stock from today onwards.
func (s *availabilityService) Generate(ctx context.Context, goodsID int64, start, end time.Time, minDaily, maxDaily int) (created int, err error) {
	today := s.cal.Today()
	first := s.cal.Day(start)
	if first.Before(today) {
		first = today
	}
	last := s.cal.Day(end)
	lo, hi := model.NormalizeBounds(minDaily, maxDaily)

	var rows []model.DailyAvailability
	for d := first; !d.After(last) && len(rows) < maxGeneratedDays; d = d.AddDate(0, 0, 1) {
		qty := lo + s.intn(hi-lo+1)
		rows = append(rows, model.DailyAvailability{
			GoodsID:           goodsID,
			Date:              d,
			AvailableQuantity: qty,
			InitialQuantity:   qty,
		})
	}

	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to generate availability: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	deleted, err := s.stockRepo.DeleteFrom(ctx, tx, goodsID, today)
	if err != nil {
		return 0, fmt.Errorf("failed to generate availability: %w", err)
	}

	if err = s.stockRepo.InsertBatch(ctx, tx, rows); err != nil {
		return 0, fmt.Errorf("failed to generate availability: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to commit transaction")
		return 0, fmt.Errorf("failed to generate availability: %w", err)
	}

	s.logger.Info().
		Int64("goods_id", goodsID).
		Int64("deleted", deleted).
		Int("created", len(rows)).
		Int("min_daily", lo).
		Int("max_daily", hi).
		Msg("availability generated")

	return len(rows), nil
}

// List retrieves stock rows matching the filter.
func (s *availabilityService) List(ctx context.Context, filter model.AvailabilityFilter) ([]model.DailyAvailability, error) {
	rows, err := s.stockRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return rows, nil
}
