// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mattepass-service/internal/authorization"
	"mattepass-service/internal/cache"
	"mattepass-service/internal/config"
	adminHandler "mattepass-service/internal/handlers/admin"
	authHandler "mattepass-service/internal/handlers/auth"
	codeHandler "mattepass-service/internal/handlers/code"
	planHandler "mattepass-service/internal/handlers/plan"
	subscriptionHandler "mattepass-service/internal/handlers/subscription"
	vendorHandler "mattepass-service/internal/handlers/vendor"
	"mattepass-service/internal/middleware"
	"mattepass-service/internal/pkg/clock"
	"mattepass-service/internal/pkg/jwt"
	"mattepass-service/internal/pkg/session"
	"mattepass-service/internal/repository/postgres"
	authUsecase "mattepass-service/internal/service/auth"
	planUsecase "mattepass-service/internal/service/plan"
	"mattepass-service/internal/service/quota"
	reportUsecase "mattepass-service/internal/service/report"
	subscriptionUsecase "mattepass-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	infra      *Infra
	httpServer *http.Server
}

func NewServer(cfg *config.AppConfig, logger *zap.Logger) *Server {
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Start wires every component and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	ctx := context.Background()
	logger := s.logger

	infra, err := Connect(ctx, s.cfg, logger)
	if err != nil {
		return err
	}
	s.infra = infra

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT())
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(infra.Redis)
	rateLimiter := session.NewRateLimiter(infra.Redis)

	// ----- Access Policy -----
	policy, err := authorization.NewPolicy()
	if err != nil {
		return fmt.Errorf("failed to load access policy: %w", err)
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(infra.Pool)
	userRepo := postgres.NewUserRepository(infra.Pool)
	planRepo := postgres.NewPlanRepository(infra.Pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(infra.Pool)
	paymentRepo := postgres.NewPaymentRepository(infra.Pool)
	dailyCodeRepo := postgres.NewDailyCodeRepository(infra.Pool)
	redemptionRepo := postgres.NewRedemptionRepository(infra.Pool)
	planCache := cache.NewPlanCache(infra.Redis, s.cfg.PlanCacheTTL)

	// ----- Services (Usecases) -----
	clk := clock.System()
	authService := authUsecase.NewAuthService(
		dbWrapper,
		userRepo,
		jwtManager,
		sessionManager,
		rateLimiter,
		clk,
		logger,
	)
	planService := planUsecase.NewPlanService(planRepo, planCache, logger)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		dbWrapper,
		subscriptionRepo,
		paymentRepo,
		planRepo,
		clk,
		logger,
	)
	issuer := quota.NewIssuer(dbWrapper, subscriptionRepo, planRepo, dailyCodeRepo, redemptionRepo, logger)
	accountant := quota.NewAccountant(dbWrapper, subscriptionRepo, planRepo, userRepo, dailyCodeRepo, redemptionRepo, logger)
	reportService := reportUsecase.NewReportService(redemptionRepo, userRepo, clk, logger)

	// ----- Initialize Admin -----
	if err := s.initializeAdmin(authService); err != nil {
		logger.Error("failed to initialize admin", zap.Error(err))
		// Don't fail startup, just log the error
	}

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authService, subscriptionService, logger),
		PlanHandler:         planHandler.NewPlanHandler(planService, logger),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService, logger),
		CodeHandler:         codeHandler.NewCodeHandler(issuer, accountant, reportService, clk, logger),
		VendorHandler:       vendorHandler.NewVendorHandler(reportService),
		AdminHandler:        adminHandler.NewAdminHandler(authService, reportService, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(authService, policy),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	// ----- Router -----
	SetupRouter(s.engine, s.cfg.MetricsPath, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.infra != nil {
		s.infra.Close()
	}
	return err
}

// initializeAdmin creates the configured admin if no admin exists
func (s *Server) initializeAdmin(authService *authUsecase.AuthService) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return authService.EnsureAdmin(ctx, s.cfg.AdminUsername, s.cfg.AdminEmail, s.cfg.AdminPassword)
}
