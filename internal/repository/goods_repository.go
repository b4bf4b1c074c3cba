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

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

var goodsColumnNames = []string{
	"id", "name", "price", "cashback_percent", "article", "url", "image",
	"description", "purchase_guide", "start_date", "end_date", "min_daily",
	"max_daily", "total_sales_limit", "is_active", "is_hidden", "category_id",
	"confirmation_requirements", "delivery_confirmation_requirements",
	"created_at", "updated_at",
}

// goodsColumns renders the goods column list, optionally qualified by a table alias.
func goodsColumns(alias string) string {
	if alias == "" {
		return strings.Join(goodsColumnNames, ", ")
	}
	qualified := make([]string, len(goodsColumnNames))
	for i, c := range goodsColumnNames {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// goodsDest returns scan targets in goodsColumnNames order.
func goodsDest(g *model.Goods) []any {
	return []any{
		&g.ID, &g.Name, &g.Price, &g.CashbackPercent, &g.Article, &g.URL, &g.Image,
		&g.Description, &g.PurchaseGuide, &g.StartDate, &g.EndDate, &g.MinDaily,
		&g.MaxDaily, &g.TotalSalesLimit, &g.IsActive, &g.IsHidden, &g.CategoryID,
		&g.ConfirmationRequirements, &g.DeliveryConfirmationRequirements,
		&g.CreatedAt, &g.UpdatedAt,
	}
}

func requirementsOrEmpty(reqs []model.Requirement) []model.Requirement {
	if reqs == nil {
		return []model.Requirement{}
	}
	return reqs
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

// goodsRepository implements the GoodsRepository interface using PostgreSQL.
type goodsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewGoodsRepository creates a new PostgreSQL-backed goods repository.
func NewGoodsRepository(pool *pgxpool.Pool, logger zerolog.Logger) GoodsRepository {
	return &goodsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "goods").Logger(),
	}
}

// Create inserts goods and fills in the generated ID and timestamps.
func (r *goodsRepository) Create(ctx context.Context, g *model.Goods) error {
	query := `
		INSERT INTO goods (
			name, price, cashback_percent, article, url, image, description, purchase_guide,
			start_date, end_date, min_daily, max_daily, total_sales_limit, is_active, is_hidden,
			category_id, confirmation_requirements, delivery_confirmation_requirements
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		g.Name, g.Price, g.CashbackPercent, g.Article, g.URL, g.Image, g.Description, g.PurchaseGuide,
		g.StartDate, g.EndDate, g.MinDaily, g.MaxDaily, g.TotalSalesLimit, g.IsActive, g.IsHidden,
		g.CategoryID, requirementsOrEmpty(g.ConfirmationRequirements),
		requirementsOrEmpty(g.DeliveryConfirmationRequirements),
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Str("article", g.Article).Msg("failed to create goods")
		return fmt.Errorf("failed to create goods: %w", err)
	}

	r.logger.Debug().Int64("goods_id", g.ID).Msg("goods created successfully")

	return nil
}

// Update overwrites every mutable column of the goods row.
func (r *goodsRepository) Update(ctx context.Context, g *model.Goods) error {
	query := `
		UPDATE goods SET
			name = $2, price = $3, cashback_percent = $4, article = $5, url = $6, image = $7,
			description = $8, purchase_guide = $9, start_date = $10, end_date = $11,
			min_daily = $12, max_daily = $13, total_sales_limit = $14, is_active = $15,
			is_hidden = $16, category_id = $17, confirmation_requirements = $18,
			delivery_confirmation_requirements = $19, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		g.ID, g.Name, g.Price, g.CashbackPercent, g.Article, g.URL, g.Image,
		g.Description, g.PurchaseGuide, g.StartDate, g.EndDate,
		g.MinDaily, g.MaxDaily, g.TotalSalesLimit, g.IsActive,
		g.IsHidden, g.CategoryID, requirementsOrEmpty(g.ConfirmationRequirements),
		requirementsOrEmpty(g.DeliveryConfirmationRequirements),
	).Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrGoodsNotFound
		}
		if isForeignKeyViolation(err) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Int64("goods_id", g.ID).Msg("failed to update goods")
		return fmt.Errorf("failed to update goods: %w", err)
	}

	return nil
}

// GetByID retrieves goods by ID.
func (r *goodsRepository) GetByID(ctx context.Context, id int64) (*model.Goods, error) {
	query := `SELECT ` + goodsColumns("") + ` FROM goods WHERE id = $1`

	return r.getOne(r.pool.QueryRow(ctx, query, id), id)
}

// GetForUpdate retrieves goods by ID and locks the row.
func (r *goodsRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Goods, error) {
	query := `SELECT ` + goodsColumns("") + ` FROM goods WHERE id = $1 FOR UPDATE`

	return r.getOne(tx.QueryRow(ctx, query, id), id)
}

func (r *goodsRepository) getOne(row pgx.Row, id int64) (*model.Goods, error) {
	var g model.Goods
	if err := row.Scan(goodsDest(&g)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("goods_id", id).Msg("goods not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("goods_id", id).Msg("failed to query goods")
		return nil, fmt.Errorf("failed to query goods: %w", err)
	}
	return &g, nil
}

// List retrieves goods matching the filter, newest first.
func (r *goodsRepository) List(ctx context.Context, f model.GoodsFilter) ([]model.Goods, error) {
	var (
		conds []string
		args  []any
	)
	where := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != "" {
		where("name ILIKE $%d", "%"+f.Name+"%")
	}
	if f.Article != "" {
		where("article ILIKE $%d", "%"+f.Article+"%")
	}
	if f.MinPrice != nil {
		where("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where("price <= $%d", *f.MaxPrice)
	}
	if f.IsActive != nil {
		where("is_active = $%d", *f.IsActive)
	}
	if f.IsHidden != nil {
		where("is_hidden = $%d", *f.IsHidden)
	}
	if f.CategoryID != nil {
		where("category_id = $%d", *f.CategoryID)
	}

	query := `SELECT ` + goodsColumns("") + ` FROM goods`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(f.Limit), max(f.Skip, 0))
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// Search matches the query against name and article.
func (r *goodsRepository) Search(ctx context.Context, q string, limit int) ([]model.Goods, error) {
	query := `
		SELECT ` + goodsColumns("") + `
		FROM goods
		WHERE name ILIKE $1 OR article ILIKE $1
		ORDER BY id DESC
		LIMIT $2
	`

	return r.query(ctx, query, "%"+q+"%", clampLimit(limit))
}

func (r *goodsRepository) query(ctx context.Context, query string, args ...any) ([]model.Goods, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query goods")
		return nil, fmt.Errorf("failed to query goods: %w", err)
	}
	defer rows.Close()

	goods := make([]model.Goods, 0)
	for rows.Next() {
		var g model.Goods
		if err := rows.Scan(goodsDest(&g)...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan goods row")
			return nil, fmt.Errorf("failed to scan goods: %w", err)
		}
		goods = append(goods, g)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating goods rows")
		return nil, fmt.Errorf("error iterating goods: %w", err)
	}

	return goods, nil
}

// SetHidden changes the hidden flag of the given goods.
func (r *goodsRepository) SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error) {
	query := `
		UPDATE goods
		SET is_hidden = $1, updated_at = NOW()
		WHERE id = ANY($2) AND is_hidden <> $1
	`

	tag, err := r.pool.Exec(ctx, query, hidden, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Bool("hidden", hidden).Msg("failed to update goods visibility")
		return 0, fmt.Errorf("failed to update goods visibility: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ListCatalog retrieves visible goods with stock left on day.
func (r *goodsRepository) ListCatalog(ctx context.Context, day, now time.Time, categoryID *int64) ([]model.CatalogItem, error) {
	query := `
		SELECT ` + goodsColumns("g") + `, a.available_quantity
		FROM goods g
		JOIN daily_availability a ON a.goods_id = g.id AND a.date = $1
		WHERE g.is_active
			AND NOT g.is_hidden
			AND g.start_date <= $2
			AND g.end_date >= $2
			AND a.available_quantity > 0
			AND ($3::BIGINT IS NULL OR g.category_id = $3)
		ORDER BY g.id DESC
	`

	rows, err := r.pool.Query(ctx, query, day, now, categoryID)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query catalog")
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	items := make([]model.CatalogItem, 0)
	for rows.Next() {
		var item model.CatalogItem
		dest := append(goodsDest(&item.Goods), &item.AvailableToday)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan catalog row")
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating catalog rows")
		return nil, fmt.Errorf("error iterating catalog: %w", err)
	}

	return items, nil
}

// ListActivity retrieves the sale window and active flag of every goods row.
func (r *goodsRepository) ListActivity(ctx context.Context, tx pgx.Tx) ([]model.ActivityState, error) {
	query := `SELECT id, start_date, end_date, is_active FROM goods ORDER BY id`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query goods activity")
		return nil, fmt.Errorf("failed to query goods activity: %w", err)
	}
	defer rows.Close()

	var states []model.ActivityState
	for rows.Next() {
		var s model.ActivityState
		if err := rows.Scan(&s.ID, &s.StartDate, &s.EndDate, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan goods activity: %w", err)
		}
		states = append(states, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goods activity: %w", err)
	}

	return states, nil
}

// SetActive applies active-flag changes within the provided transaction.
func (r *goodsRepository) SetActive(ctx context.Context, tx pgx.Tx, changes []model.ActivityChange) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	query := `
		UPDATE goods
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1 AND is_active <> $2
	`

	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(query, c.ID, c.IsActive)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	var changed int64
	for i := range changes {
		tag, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Int64("goods_id", changes[i].ID).
				Msg("failed to update goods activity")
			return 0, fmt.Errorf("failed to update goods activity: %w", err)
		}
		changed += tag.RowsAffected()
	}

	return changed, nil
}
