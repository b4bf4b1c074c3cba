package worker

import (
	"context"
	"fmt"
	"time"

	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/rs/zerolog"
)

// CatalogInvalidator drops cached catalog listings after activity changes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Sweeper reconciles each goods row's active flag with its sale window and
// purges availability rows for past days.
type Sweeper struct {
	txm       repository.TxManager
	goodsRepo repository.GoodsRepository
	stockRepo repository.AvailabilityRepository
	cache     CatalogInvalidator
	cal       *calendar.Calendar
	interval  time.Duration
	logger    zerolog.Logger
}

// NewSweeper creates a sweeper that runs every interval. cache may be nil.
func NewSweeper(
	txm repository.TxManager,
	goodsRepo repository.GoodsRepository,
	stockRepo repository.AvailabilityRepository,
	cache CatalogInvalidator,
	cal *calendar.Calendar,
	interval time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		txm:       txm,
		goodsRepo: goodsRepo,
		stockRepo: stockRepo,
		cache:     cache,
		cal:       cal,
		interval:  interval,
		logger:    logger.With().Str("component", "activity-sweeper").Logger(),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Errors are logged and the next tick retries.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("activity sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("activity sweep failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("activity sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep flips is_active on every goods row whose flag disagrees with its
// window and returns how many rows changed. The transaction is committed only
// when something changed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	changed, err := s.reconcile(ctx)
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		if s.cache != nil {
			if cErr := s.cache.Invalidate(ctx); cErr != nil {
				s.logger.Warn().Err(cErr).Msg("failed to invalidate catalog cache")
			}
		}
		s.logger.Info().Int64("changed", changed).Msg("goods activity updated")
	}

	purged, err := s.stockRepo.PurgeBefore(ctx, s.cal.Today())
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to purge past availability")
	} else if purged > 0 {
		s.logger.Debug().Int64("rows", purged).Msg("past availability purged")
	}

	return changed, nil
}

func (s *Sweeper) reconcile(ctx context.Context) (changed int64, err error) {
	now := s.cal.Now()

	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin sweep: %w", err)
	}

	defer func() {
		if err != nil || changed == 0 {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	states, err := s.goodsRepo.ListActivity(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to list goods activity: %w", err)
	}

	changes := pendingChanges(states, now)
	if len(changes) == 0 {
		return 0, nil
	}

	changed, err = s.goodsRepo.SetActive(ctx, tx, changes)
	if err != nil {
		return 0, fmt.Errorf("failed to update goods activity: %w", err)
	}
	if changed == 0 {
		return 0, nil
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit sweep: %w", err)
	}

	return changed, nil
}

// pendingChanges lists the rows whose active flag should flip at now.
func pendingChanges(states []model.ActivityState, now time.Time) []model.ActivityChange {
	var changes []model.ActivityChange
	for _, st := range states {
		inWindow := !now.Before(st.StartDate) && !now.After(st.EndDate)
		if inWindow != st.IsActive {
			changes = append(changes, model.ActivityChange{ID: st.ID, IsActive: inWindow})
		}
	}
	return changes
}
