// internal/service/auth/admin_create.go
package auth

import (
	"context"
	"fmt"

	"mattepass-service/internal/domain/auth"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// adminBootstrapLockKey serializes first-admin creation across instances.
const adminBootstrapLockKey int64 = 0x6d61646d696e

// CreateFirstAdmin creates an admin account only while no admin exists
func (s *AuthService) CreateFirstAdmin(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error) {
	user, err := s.newUser(req, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.db.LockKeyWithTx(ctx, tx, adminBootstrapLockKey); err != nil {
			return err
		}

		count, err := s.userRepo.CountByRoleWithTx(ctx, tx, auth.RoleAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: an admin already exists", xerrors.ErrForbidden)
		}

		return s.userRepo.CreateWithTx(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("first admin created",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)
	info := user.Info()
	return &info, nil
}

// EnsureAdmin creates the configured admin on startup when none exists
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		s.logger.Info("admin bootstrap credentials not configured, skipping")
		return nil
	}

	_, err := s.CreateFirstAdmin(ctx, &auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if xerrors.Is(err, xerrors.ErrForbidden) {
		s.logger.Info("admin already exists, skipping creation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to ensure admin: %w", err)
	}
	return nil
}
