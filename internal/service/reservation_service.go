package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// notifyTimeout bounds the fire-and-forget enqueue after a reservation.
const notifyTimeout = 5 * time.Second

// reservationService implements ReservationService.
type reservationService struct {
	txm       repository.TxManager
	goodsRepo repository.GoodsRepository
	stockRepo repository.AvailabilityRepository
	resRepo   repository.ReservationRepository
	media     MediaStore
	notifier  Notifier
	cache     CatalogCache
	cal       *calendar.Calendar
	logger    zerolog.Logger
}

// ReservationDeps groups the collaborators of the reservation ledger.
// Media, Notifier and Cache are optional.
type ReservationDeps struct {
	TxManager    repository.TxManager
	Goods        repository.GoodsRepository
	Availability repository.AvailabilityRepository
	Reservations repository.ReservationRepository
	Media        MediaStore
	Notifier     Notifier
	Cache        CatalogCache
	Calendar     *calendar.Calendar
}

// NewReservationService creates a new reservation ledger.
func NewReservationService(deps ReservationDeps, logger zerolog.Logger) ReservationService {
	return &reservationService{
		txm:       deps.TxManager,
		goodsRepo: deps.Goods,
		stockRepo: deps.Availability,
		resRepo:   deps.Reservations,
		media:     deps.Media,
		notifier:  deps.Notifier,
		cache:     deps.Cache,
		cal:       deps.Calendar,
		logger:    logger.With().Str("service", "reservation").Logger(),
	}
}

// Reserve claims quantity of today's stock for the user. Nothing is written
// unless every precondition holds.
func (s *reservationService) Reserve(ctx context.Context, userID int64, req *model.ReservationRequest) (res *model.Reservation, err error) {
	g, err := s.goodsRepo.GetByID(ctx, req.GoodsID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve goods: %w", err)
	}
	if g == nil {
		return nil, model.ErrGoodsNotFound
	}
	if !g.IsActive || g.IsHidden {
		return nil, model.ErrGoodsUnavailable
	}

	today := s.cal.Today()
	exists, err := s.resRepo.HasActiveOnDate(ctx, userID, g.ID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve goods: %w", err)
	}
	if exists {
		return nil, model.ErrDuplicateReservation
	}

	lo, hi := g.DailyBounds()
	if req.Quantity < lo || req.Quantity > hi {
		return nil, model.NewDomainError(model.KindValidation, model.ErrCodeInvalidQuantity,
			fmt.Sprintf("Quantity must be between %d and %d", lo, hi))
	}

	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve goods: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if g.TotalSalesLimit != nil {
		if err = s.checkSalesLimit(ctx, tx, g.ID, *g.TotalSalesLimit, req.Quantity); err != nil {
			return nil, err
		}
	}

	decremented, err := s.stockRepo.Decrement(ctx, tx, g.ID, today, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve goods: %w", err)
	}
	if !decremented {
		return nil, s.stockShortage(ctx, tx, g.ID, today)
	}

	now := s.cal.Now()
	res = &model.Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		GoodsID:         g.ID,
		Quantity:        req.Quantity,
		ReservationDate: today,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err = s.resRepo.Create(ctx, tx, res); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", res.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to reserve goods: %w", err)
	}

	invalidateCatalog(ctx, s.cache, s.logger)
	s.notify(res, g)

	s.logger.Info().
		Str("reservation_id", res.ID.String()).
		Int64("user_id", userID).
		Int64("goods_id", g.ID).
		Int("quantity", req.Quantity).
		Msg("reservation created")

	return res, nil
}

// checkSalesLimit locks the goods row so concurrent reservations see each
// other's totals.
func (s *reservationService) checkSalesLimit(ctx context.Context, tx pgx.Tx, goodsID int64, limit, quantity int) error {
	if _, err := s.goodsRepo.GetForUpdate(ctx, tx, goodsID); err != nil {
		return fmt.Errorf("failed to reserve goods: %w", err)
	}

	reserved, err := s.resRepo.SumReservedQuantity(ctx, tx, goodsID)
	if err != nil {
		return fmt.Errorf("failed to reserve goods: %w", err)
	}
	if reserved+quantity > limit {
		s.logger.Debug().
			Int64("goods_id", goodsID).
			Int("reserved", reserved).
			Int("limit", limit).
			Msg("total sales limit reached")
		return model.ErrSalesLimitReached
	}

	return nil
}

// stockShortage explains a failed decrement.
func (s *reservationService) stockShortage(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time) error {
	row, err := s.stockRepo.Get(ctx, tx, goodsID, day)
	if err != nil {
		return fmt.Errorf("failed to reserve goods: %w", err)
	}
	if row == nil {
		return model.ErrNoAvailability
	}
	return model.ErrInsufficientStock
}

func (s *reservationService) notify(res *model.Reservation, g *model.Goods) {
	if s.notifier == nil {
		return
	}

	n := &model.Notification{
		ReservationID: res.ID,
		UserID:        res.UserID,
		GoodsData:     g.Summary(),
		Quantity:      res.Quantity,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Enqueue(ctx, n); err != nil {
			s.logger.Warn().
				Err(err).
				Str("reservation_id", n.ReservationID.String()).
				Msg("failed to enqueue notification")
		}
	}()
}

// Cancel refunds the reservation's stock and marks it canceled in one transaction.
func (s *reservationService) Cancel(ctx context.Context, id uuid.UUID, requester model.Requester) (res *model.Reservation, err error) {
	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	res, err = s.resRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if res == nil {
		return nil, model.ErrReservationNotFound
	}
	if !requester.Internal && res.UserID != requester.UserID {
		return nil, model.ErrNotOwner
	}

	if err = s.cancelLocked(ctx, tx, res); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	invalidateCatalog(ctx, s.cache, s.logger)

	s.logger.Info().
		Str("reservation_id", id.String()).
		Int64("user_id", res.UserID).
		Bool("internal", requester.Internal).
		Msg("reservation canceled")

	return res, nil
}

// cancelLocked refunds and cancels a reservation whose row is locked by tx.
func (s *reservationService) cancelLocked(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	if !res.Status.CanTransitionTo(model.StatusCanceled) {
		return model.ErrInvalidTransition
	}

	refunded, err := s.stockRepo.Increment(ctx, tx, res.GoodsID, res.ReservationDate, res.Quantity)
	if err != nil {
		return fmt.Errorf("failed to refund reservation: %w", err)
	}
	if !refunded {
		s.logger.Debug().
			Str("reservation_id", res.ID.String()).
			Time("date", res.ReservationDate).
			Msg("availability row no longer exists, nothing to refund")
	}

	ok, err := s.resRepo.Transition(ctx, tx, res.ID, res.Status, model.StatusCanceled)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if !ok {
		return model.ErrInvalidTransition
	}

	res.Status = model.StatusCanceled
	res.UpdatedAt = s.cal.Now()

	return nil
}

// Confirm records order or delivery evidence and advances the status.
// Media is stored only after the reservation is locked and moved, so a lost
// race or a rejected submission leaves nothing behind in the media store.
func (s *reservationService) Confirm(ctx context.Context, id uuid.UUID, requester model.Requester, req *model.ConfirmationRequest) (res *model.Reservation, err error) {
	from, to := req.Type.Transition()

	current, err := s.GetByID(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, model.ErrInvalidTransition
	}

	g, err := s.goodsRepo.GetByID(ctx, current.GoodsID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if g == nil {
		return nil, model.ErrGoodsNotFound
	}

	entries, uploads, err := s.checkConfirmation(req, g.Requirements(req.Type))
	if err != nil {
		return nil, err
	}

	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	var stored []string
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
			if len(stored) > 0 {
				s.logger.Error().
					Str("reservation_id", id.String()).
					Strs("media", stored).
					Msg("confirmation media stored for a rolled back confirmation")
			}
		}
	}()

	res, err = s.resRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if res == nil {
		return nil, model.ErrReservationNotFound
	}
	if res.Status != from {
		return nil, model.ErrInvalidTransition
	}

	ok, err := s.resRepo.Transition(ctx, tx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if !ok {
		return nil, model.ErrInvalidTransition
	}

	for i, data := range uploads {
		if data == nil {
			continue
		}
		key := fmt.Sprintf("reservations/%s/%s/%s", id, req.Type, entries[i].RequirementID)
		url, saveErr := s.media.Save(ctx, key, data)
		if saveErr != nil {
			s.logger.Error().Err(saveErr).Str("reservation_id", id.String()).Msg("failed to store confirmation media")
			err = fmt.Errorf("failed to store confirmation media: %w", saveErr)
			return nil, err
		}
		entries[i].MediaURL = url
		stored = append(stored, url)
	}

	confirmation := &model.Confirmation{Items: entries, SubmittedAt: s.cal.Now()}
	if err = s.resRepo.SetConfirmation(ctx, tx, id, req.Type, confirmation); err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	res.Status = to
	res.UpdatedAt = confirmation.SubmittedAt
	if req.Type == model.ConfirmationDelivery {
		res.DeliveryConfirmationData = confirmation
	} else {
		res.ConfirmationData = confirmation
	}

	s.logger.Info().
		Str("reservation_id", id.String()).
		Str("type", string(req.Type)).
		Str("status", string(to)).
		Int("items", len(confirmation.Items)).
		Msg("reservation confirmed")

	return res, nil
}

// checkConfirmation checks the submitted items against the requirement list.
// It returns one entry per requirement and, at the same index, the file to
// store for media requirements.
func (s *reservationService) checkConfirmation(req *model.ConfirmationRequest, reqs []model.Requirement) ([]model.ConfirmationEntry, [][]byte, error) {
	submitted := make(map[string]model.ConfirmationItemInput, len(req.Items))
	for _, item := range req.Items {
		submitted[item.RequirementID] = item
	}

	known := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		known[r.ID] = struct{}{}
	}
	for reqID := range submitted {
		if _, ok := known[reqID]; !ok {
			return nil, nil, model.NewValidationError(fmt.Sprintf("unknown requirement %q", reqID))
		}
	}

	entries := make([]model.ConfirmationEntry, 0, len(reqs))
	uploads := make([][]byte, 0, len(reqs))
	for _, r := range reqs {
		item, ok := submitted[r.ID]
		if !ok {
			return nil, nil, model.NewValidationError(fmt.Sprintf("requirement %q is missing", r.ID))
		}

		entry := model.ConfirmationEntry{RequirementID: r.ID, Type: r.Type, Title: r.Title}
		var data []byte
		if r.Type.IsMedia() {
			if len(item.Data) == 0 {
				return nil, nil, model.NewValidationError(fmt.Sprintf("requirement %q needs a file", r.ID))
			}
			if s.media == nil {
				return nil, nil, model.ErrMediaStoreDisabled
			}
			data = item.Data
		} else {
			value := strings.TrimSpace(item.Value)
			if value == "" {
				return nil, nil, model.NewValidationError(fmt.Sprintf("requirement %q needs a value", r.ID))
			}
			entry.Value = value
		}
		entries = append(entries, entry)
		uploads = append(uploads, data)
	}

	return entries, uploads, nil
}

// SetStatus moves a reservation to status on behalf of an admin. Cancelling
// through this path refunds stock exactly like Cancel.
func (s *reservationService) SetStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) (res *model.Reservation, err error) {
	if !status.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}

	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	res, err = s.resRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}
	if res == nil {
		return nil, model.ErrReservationNotFound
	}

	previous := res.Status
	if status == model.StatusCanceled {
		if err = s.cancelLocked(ctx, tx, res); err != nil {
			return nil, err
		}
	} else {
		if !res.Status.CanTransitionTo(status) {
			return nil, model.ErrInvalidTransition
		}
		ok, terr := s.resRepo.Transition(ctx, tx, id, res.Status, status)
		if terr != nil {
			return nil, fmt.Errorf("failed to update reservation status: %w", terr)
		}
		if !ok {
			return nil, model.ErrInvalidTransition
		}
		res.Status = status
		res.UpdatedAt = s.cal.Now()
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	if status == model.StatusCanceled {
		invalidateCatalog(ctx, s.cache, s.logger)
	}

	s.logger.Info().
		Str("reservation_id", id.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("reservation status changed")

	return res, nil
}

// GetByID retrieves a reservation visible to the requester.
func (s *reservationService) GetByID(ctx context.Context, id uuid.UUID, requester model.Requester) (*model.Reservation, error) {
	res, err := s.resRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, model.ErrReservationNotFound
	}
	if !requester.Internal && res.UserID != requester.UserID {
		return nil, model.ErrNotOwner
	}
	return res, nil
}

// ListByUser retrieves the user's reservations.
func (s *reservationService) ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error) {
	views, err := s.resRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return views, nil
}

// List retrieves reservations matching the filter.
func (s *reservationService) List(ctx context.Context, filter model.ReservationFilter) ([]model.ReservationView, error) {
	views, err := s.resRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return views, nil
}

// DailyCount counts the user's live reservations for today.
func (s *reservationService) DailyCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.resRepo.CountForUserOnDate(ctx, userID, s.cal.Today())
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}
