package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scribeworks/backend/config"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/utils"
)

// EnsureRoot seeds the root super_agent from bootstrap config when no
// super_agent exists yet. Every later registration hangs off this node via
// reference codes. No-op when bootstrap email is unset.
func EnsureRoot(ctx context.Context, repo *Repository, cfg config.BootstrapConfig, logger *zap.Logger) error {
	if cfg.Email == "" {
		return nil
	}
	n, err := repo.CountByRole(ctx, models.RoleSuperAgent)
	if err != nil {
		return fmt.Errorf("count super agents: %w", err)
	}
	if n > 0 {
		return nil
	}
	if cfg.Password == "" {
		return errors.New("BOOTSTRAP_PASSWORD required to seed the root super agent")
	}
	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	user, _, err := repo.Create(ctx, CreateUserParams{
		Email:        cfg.Email,
		PasswordHash: hash,
		FullName:     cfg.FullName,
		Role:         models.RoleSuperAgent,
		ParentID:     nil,
		Level:        1,
		SuperAgentID: nil, // root points at itself
	})
	if err != nil {
		return fmt.Errorf("seed root super agent: %w", err)
	}
	logger.Info("seeded root super agent", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return nil
}
