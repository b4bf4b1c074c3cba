package service

import (
	"context"
	"fmt"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"

	"github.com/rs/zerolog"
)

// adminService implements AdminService.
type adminService struct {
	repo   repository.AdminRepository
	logger zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(repo repository.AdminRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		repo:   repo,
		logger: logger.With().Str("service", "admin").Logger(),
	}
}

func (s *adminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.repo.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return ok, nil
}

// Bootstrap registers the configured user IDs as superadmins.
func (s *adminService) Bootstrap(ctx context.Context, userIDs []int64) error {
	for _, id := range userIDs {
		if err := s.repo.Upsert(ctx, &model.Admin{UserID: id, IsSuperadmin: true}); err != nil {
			return fmt.Errorf("failed to bootstrap admin %d: %w", id, err)
		}
	}

	if len(userIDs) > 0 {
		s.logger.Info().Int("count", len(userIDs)).Msg("admins bootstrapped")
	}

	return nil
}

func (s *adminService) List(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
