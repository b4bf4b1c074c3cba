package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wb-aggregator/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// availabilityRepository implements the AvailabilityRepository interface using PostgreSQL.
type availabilityRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAvailabilityRepository creates a new PostgreSQL-backed daily stock repository.
func NewAvailabilityRepository(pool *pgxpool.Pool, logger zerolog.Logger) AvailabilityRepository {
	return &availabilityRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "availability").Logger(),
	}
}

func scanAvailability(row rowScanner) (*model.DailyAvailability, error) {
	var a model.DailyAvailability
	if err := row.Scan(&a.ID, &a.GoodsID, &a.Date, &a.AvailableQuantity, &a.InitialQuantity); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteFrom removes the goods' rows dated on or after from.
func (r *availabilityRepository) DeleteFrom(ctx context.Context, tx pgx.Tx, goodsID int64, from time.Time) (int64, error) {
	query := `DELETE FROM daily_availability WHERE goods_id = $1 AND date >= $2`

	tag, err := tx.Exec(ctx, query, goodsID, from)
	if err != nil {
		r.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to delete availability")
		return 0, fmt.Errorf("failed to delete availability: %w", err)
	}

	return tag.RowsAffected(), nil
}

// InsertBatch inserts stock rows within the provided transaction.
func (r *availabilityRepository) InsertBatch(ctx context.Context, tx pgx.Tx, rows []model.DailyAvailability) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_availability (goods_id, date, available_quantity, initial_quantity)
		VALUES ($1, $2, $3, $4)
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row.GoodsID, row.Date, row.AvailableQuantity, row.InitialQuantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Int64("goods_id", rows[i].GoodsID).
				Time("date", rows[i].Date).
				Msg("failed to insert availability")
			return fmt.Errorf("failed to insert availability: %w", err)
		}
	}

	r.logger.Debug().
		Int64("goods_id", rows[0].GoodsID).
		Int("count", len(rows)).
		Msg("availability rows created successfully")

	return nil
}

// Decrement subtracts quantity from the day's stock only if enough is left.
func (r *availabilityRepository) Decrement(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error) {
	query := `
		UPDATE daily_availability
		SET available_quantity = available_quantity - $3
		WHERE goods_id = $1 AND date = $2 AND available_quantity >= $3
	`

	tag, err := tx.Exec(ctx, query, goodsID, day, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to decrement availability")
		return false, fmt.Errorf("failed to decrement availability: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Increment adds quantity back to the day's stock.
func (r *availabilityRepository) Increment(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error) {
	query := `
		UPDATE daily_availability
		SET available_quantity = available_quantity + $3
		WHERE goods_id = $1 AND date = $2
	`

	tag, err := tx.Exec(ctx, query, goodsID, day, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to increment availability")
		return false, fmt.Errorf("failed to increment availability: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Get retrieves the day's stock row.
func (r *availabilityRepository) Get(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time) (*model.DailyAvailability, error) {
	query := `
		SELECT id, goods_id, date, available_quantity, initial_quantity
		FROM daily_availability
		WHERE goods_id = $1 AND date = $2
	`

	a, err := scanAvailability(tx.QueryRow(ctx, query, goodsID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("goods_id", goodsID).Msg("failed to query availability")
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}

	return a, nil
}

// PurgeBefore deletes rows dated before day.
func (r *availabilityRepository) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	query := `DELETE FROM daily_availability WHERE date < $1`

	tag, err := r.pool.Exec(ctx, query, day)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to purge availability")
		return 0, fmt.Errorf("failed to purge availability: %w", err)
	}

	return tag.RowsAffected(), nil
}

// List retrieves stock rows matching the filter ordered by goods and date.
func (r *availabilityRepository) List(ctx context.Context, f model.AvailabilityFilter) ([]model.DailyAvailability, error) {
	var (
		conds []string
		args  []any
	)
	where := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.GoodsID != nil {
		where("goods_id = $%d", *f.GoodsID)
	}
	if f.From != nil {
		where("date >= $%d", *f.From)
	}
	if f.To != nil {
		where("date <= $%d", *f.To)
	}

	query := `SELECT id, goods_id, date, available_quantity, initial_quantity FROM daily_availability`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY goods_id, date`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query availability")
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	result := make([]model.DailyAvailability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan availability row")
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating availability rows")
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return result, nil
}
