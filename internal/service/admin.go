package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// AdminService guards destructive maintenance operations.
type AdminService struct {
	store  repository.Resetter
	token  string // "" disables the check
	logger *slog.Logger
}

func NewAdminService(store repository.Resetter, token string, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, token: token, logger: logger}
}

// ClearDatabase drops every table and recreates the empty schema.
//
// When an admin token is configured the caller must present it; otherwise
// the operation is open, which is only acceptable for local development.
func (s *AdminService) ClearDatabase(ctx context.Context, presented string) error {
	if s.token != "" && subtle.ConstantTimeCompare([]byte(s.token), []byte(presented)) != 1 {
		s.logger.Warn("clear database rejected: bad admin token")
		return apperror.Forbidden("admin token required")
	}

	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("clearing database: %w", err)
	}

	s.logger.Warn("database cleared")
	return nil
}
