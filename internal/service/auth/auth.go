// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/pkg/clock"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/jwt"
	"mattepass-service/internal/pkg/session"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error
}

type UserRepository interface {
	Create(ctx context.Context, u *auth.User) error
	CreateWithTx(ctx context.Context, tx pgx.Tx, u *auth.User) error
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]auth.User, error)
	CountByRoleWithTx(ctx context.Context, tx pgx.Tx, role auth.Role) (int64, error)
	UpdateRole(ctx context.Context, id int64, role auth.Role) error
}

type AuthService struct {
	db             Transactor
	userRepo       UserRepository
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	clock          clock.Clock
	bcryptCost     int
	logger         *zap.Logger
}

func NewAuthService(
	db Transactor,
	userRepo UserRepository,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	clk clock.Clock,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		db:             db,
		userRepo:       userRepo,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		clock:          clk,
		bcryptCost:     bcrypt.DefaultCost,
		logger:         logger,
	}
}

// ========== Registration ==========

// Register creates a client account
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error) {
	return s.createUser(ctx, req, auth.RoleClient)
}

// RegisterVendor creates a vendor account on behalf of an admin
func (s *AuthService) RegisterVendor(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error) {
	return s.createUser(ctx, req, auth.RoleVendor)
}

func (s *AuthService) createUser(ctx context.Context, req *auth.RegisterRequest, role auth.Role) (*auth.UserInfo, error) {
	user, err := s.newUser(req, role)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(role)),
	)
	info := user.Info()
	return &info, nil
}

func (s *AuthService) newUser(req *auth.RegisterRequest, role auth.Role) (*auth.User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &auth.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}, nil
}

func validateRegistration(req *auth.RegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(username) > 80 {
		return fmt.Errorf("%w: username must be 3 to 80 characters", xerrors.ErrInvalidInput)
	}
	if !strings.Contains(req.Email, "@") {
		return fmt.Errorf("%w: email is invalid", xerrors.ErrInvalidInput)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", xerrors.ErrInvalidInput)
	}
	return nil
}

// ========== Login ==========

// Login authenticates by username and password and opens a session
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Username)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: login attempts exceeded, try again in 15 minutes", xerrors.ErrRateLimited)
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", xerrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials (attempts remaining: %d)", xerrors.ErrUnauthorized, remaining)
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Username); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	return s.openSession(ctx, user, req.IPAddress, req.UserAgent)
}

func (s *AuthService) openSession(ctx context.Context, user *auth.User, ipAddress, userAgent string) (*auth.LoginResponse, error) {
	token, jti, err := s.jwtManager.Generator.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	ttl := s.jwtManager.Generator.Ttl
	now := s.clock.Now()
	sess := &session.SessionData{
		JTI:            jti,
		UserID:         user.ID,
		Username:       user.Username,
		Role:           string(user.Role),
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
	if err := s.sessionManager.CreateSession(ctx, sess, ttl); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("ip", ipAddress),
	)

	return &auth.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		ExpiresAt:   sess.ExpiresAt,
		User:        user.Info(),
	}, nil
}

// ========== Logout ==========

// Logout drops the session behind the token and blacklists its jti until it would have expired
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.sessionManager.InvalidateSession(ctx, claims.UserID, claims.ID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Sub(s.clock.Now()); left > ttl {
			ttl = left
		}
	}
	if err := s.sessionManager.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// ValidateToken verifies the signature and checks the token still has a live session
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if blacklisted {
		return nil, xerrors.ErrSessionExpired
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UserID, claims.ID); err != nil {
		if xerrors.Is(err, session.ErrSessionNotFound) {
			return nil, xerrors.ErrSessionExpired
		}
		return nil, err
	}
	return claims, nil
}

// ========== Profile ==========

// GetProfile returns the user's public information
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*auth.UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := user.Info()
	return &info, nil
}

// ========== Vendor and Admin Management ==========

// ListVendors lists vendor accounts
func (s *AuthService) ListVendors(ctx context.Context) ([]auth.UserInfo, error) {
	users, err := s.userRepo.ListByRole(ctx, auth.RoleVendor)
	if err != nil {
		return nil, err
	}
	out := make([]auth.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, users[i].Info())
	}
	return out, nil
}

// PromoteToAdmin grants the admin role to an existing user
func (s *AuthService) PromoteToAdmin(ctx context.Context, userID, promotedBy int64) (*auth.UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == auth.RoleAdmin {
		info := user.Info()
		return &info, nil
	}

	if err := s.userRepo.UpdateRole(ctx, userID, auth.RoleAdmin); err != nil {
		return nil, err
	}
	user.Role = auth.RoleAdmin

	// live tokens still carry the old role claim
	if err := s.sessionManager.InvalidateAllUserSessions(ctx, userID); err != nil {
		s.logger.Error("failed to drop sessions after promotion",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	s.logger.Info("user promoted to admin",
		zap.Int64("user_id", userID),
		zap.Int64("promoted_by", promotedBy),
	)
	info := user.Info()
	return &info, nil
}
