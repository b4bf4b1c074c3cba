package repository

import (
	"context"
	"fmt"

	"wb-aggregator/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// adminRepository implements the AdminRepository interface using PostgreSQL.
type adminRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAdminRepository creates a new PostgreSQL-backed admin repository.
func NewAdminRepository(pool *pgxpool.Pool, logger zerolog.Logger) AdminRepository {
	return &adminRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "admin").Logger(),
	}
}

// IsAdmin reports whether the Telegram user is registered as an admin.
func (r *adminRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to check admin")
		return false, fmt.Errorf("failed to check admin: %w", err)
	}

	return exists, nil
}

// Upsert registers an admin, refreshing the name and superadmin flag if present.
func (r *adminRepository) Upsert(ctx context.Context, a *model.Admin) error {
	query := `
		INSERT INTO admins (user_id, full_name, is_superadmin)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), admins.full_name),
			is_superadmin = admins.is_superadmin OR EXCLUDED.is_superadmin
		RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query, a.UserID, a.FullName, a.IsSuperadmin).Scan(&a.CreatedAt); err != nil {
		r.logger.Error().Err(err).Int64("user_id", a.UserID).Msg("failed to upsert admin")
		return fmt.Errorf("failed to upsert admin: %w", err)
	}

	return nil
}

// List retrieves all admins.
func (r *adminRepository) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, full_name, is_superadmin, created_at FROM admins ORDER BY user_id`,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query admins")
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	admins := make([]model.Admin, 0)
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.UserID, &a.FullName, &a.IsSuperadmin, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}

	return admins, nil
}
