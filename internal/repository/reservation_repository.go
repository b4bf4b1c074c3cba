package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wb-aggregator/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const reservationColumns = `r.id, r.user_id, r.goods_id, r.quantity, r.reservation_date, r.status,
	r.confirmation_data, r.delivery_confirmation_data, r.created_at, r.updated_at`

// reservationRepository implements the ReservationRepository interface using PostgreSQL.
type reservationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReservationRepository {
	return &reservationRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "reservation").Logger(),
	}
}

func reservationDest(res *model.Reservation, status *string) []any {
	return []any{
		&res.ID, &res.UserID, &res.GoodsID, &res.Quantity, &res.ReservationDate, status,
		&res.ConfirmationData, &res.DeliveryConfirmationData, &res.CreatedAt, &res.UpdatedAt,
	}
}

// Create inserts a reservation within the provided transaction.
func (r *reservationRepository) Create(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (id, user_id, goods_id, quantity, reservation_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		res.ID, res.UserID, res.GoodsID, res.Quantity, res.ReservationDate,
		string(res.Status), res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug().
				Int64("user_id", res.UserID).
				Int64("goods_id", res.GoodsID).
				Msg("concurrent duplicate reservation rejected")
			return model.ErrDuplicateReservation
		}
		r.logger.Error().
			Err(err).
			Str("reservation_id", res.ID.String()).
			Msg("failed to create reservation")
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	r.logger.Debug().
		Str("reservation_id", res.ID.String()).
		Msg("reservation created successfully")

	return nil
}

// HasActiveOnDate reports whether the user holds a non-canceled reservation for the goods on day.
func (r *reservationRepository) HasActiveOnDate(ctx context.Context, userID, goodsID int64, day time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND goods_id = $2 AND reservation_date = $3 AND status <> 'canceled'
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, goodsID, day).Scan(&exists); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to check existing reservation")
		return false, fmt.Errorf("failed to check existing reservation: %w", err)
	}

	return exists, nil
}

// GetByID retrieves a reservation.
func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`

	return r.getOne(r.pool.QueryRow(ctx, query, id), id)
}

// GetForUpdate retrieves a reservation and locks its row.
func (r *reservationRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1 FOR UPDATE`

	return r.getOne(tx.QueryRow(ctx, query, id), id)
}

func (r *reservationRepository) getOne(row pgx.Row, id uuid.UUID) (*model.Reservation, error) {
	var (
		res    model.Reservation
		status string
	)
	if err := row.Scan(reservationDest(&res, &status)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("reservation_id", id.String()).Msg("reservation not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to query reservation")
		return nil, fmt.Errorf("failed to query reservation: %w", err)
	}
	res.Status = model.ReservationStatus(status)

	return &res, nil
}

// Transition moves the reservation from one status to another.
func (r *reservationRepository) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.ReservationStatus) (bool, error) {
	query := `
		UPDATE reservations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("reservation_id", id.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("failed to update reservation status")
		return false, fmt.Errorf("failed to update reservation status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetConfirmation stores the evidence submitted for a confirmation step.
func (r *reservationRepository) SetConfirmation(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind model.ConfirmationKind, data *model.Confirmation) error {
	query := `UPDATE reservations SET confirmation_data = $2, updated_at = NOW() WHERE id = $1`
	if kind == model.ConfirmationDelivery {
		query = `UPDATE reservations SET delivery_confirmation_data = $2, updated_at = NOW() WHERE id = $1`
	}

	if _, err := tx.Exec(ctx, query, id, data); err != nil {
		r.logger.Error().
			Err(err).
			Str("reservation_id", id.String()).
			Str("kind", string(kind)).
			Msg("failed to store confirmation")
		return fmt.Errorf("failed to store confirmation: %w", err)
	}

	return nil
}

// ListByUser retrieves the user's reservations, newest first.
func (r *reservationRepository) ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error) {
	return r.List(ctx, model.ReservationFilter{UserID: &userID, Limit: maxListLimit})
}

// List retrieves reservations matching the filter, newest first.
func (r *reservationRepository) List(ctx context.Context, f model.ReservationFilter) ([]model.ReservationView, error) {
	var (
		conds []string
		args  []any
	)
	where := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		where("r.status = $%d", string(*f.Status))
	}
	if f.GoodsID != nil {
		where("r.goods_id = $%d", *f.GoodsID)
	}
	if f.UserID != nil {
		where("r.user_id = $%d", *f.UserID)
	}

	query := `
		SELECT ` + reservationColumns + `, g.name, g.image, g.price, g.cashback_percent
		FROM reservations r
		JOIN goods g ON g.id = r.goods_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(f.Limit), max(f.Skip, 0))
	query += fmt.Sprintf(` ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query reservations")
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	views := make([]model.ReservationView, 0)
	for rows.Next() {
		var (
			v      model.ReservationView
			status string
		)
		dest := append(reservationDest(&v.Reservation, &status),
			&v.GoodsName, &v.GoodsImage, &v.GoodsPrice, &v.CashbackPercent)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan reservation row")
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		v.Status = model.ReservationStatus(status)
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating reservation rows")
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return views, nil
}

// CountForUserOnDate counts the user's non-canceled reservations for day.
func (r *reservationRepository) CountForUserOnDate(ctx context.Context, userID int64, day time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM reservations
		WHERE user_id = $1 AND reservation_date = $2 AND status <> 'canceled'
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, day).Scan(&count); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to count reservations")
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

// SumReservedQuantity totals the quantity of non-canceled reservations for the goods.
func (r *reservationRepository) SumReservedQuantity(ctx context.Context, tx pgx.Tx, goodsID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM reservations
		WHERE goods_id = $1 AND status <> 'canceled'
	`

	var total int
	if err := tx.QueryRow(ctx, query, goodsID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to sum reserved quantity")
		return 0, fmt.Errorf("failed to sum reserved quantity: %w", err)
	}

	return total, nil
}
