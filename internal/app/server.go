// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notary-service/internal/config"
	"notary-service/internal/db"
	adminHandler "notary-service/internal/handlers/admin"
	authHandler "notary-service/internal/handlers/auth"
	contractHandler "notary-service/internal/handlers/contract"
	dashboardHandler "notary-service/internal/handlers/dashboard"
	notifyHandler "notary-service/internal/handlers/notification"
	"notary-service/internal/jobs"
	"notary-service/internal/middleware"
	"notary-service/internal/obs"
	"notary-service/internal/pkg/crypto"
	"notary-service/internal/pkg/jwt"
	"notary-service/internal/pkg/session"
	"notary-service/internal/repository/postgres"
	authUsecase "notary-service/internal/service/auth"
	contractUsecase "notary-service/internal/service/contract"
	dashboardUsecase "notary-service/internal/service/dashboard"
	"notary-service/internal/service/email"
	licenseUsecase "notary-service/internal/service/license"
	notifyUsecase "notary-service/internal/service/notification"
	regionUsecase "notary-service/internal/service/region"
	settingUsecase "notary-service/internal/service/setting"
	userUsecase "notary-service/internal/service/user"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
)

type Server struct {
	cfg    config.Config
	engine *gin.Engine
	logger *zap.Logger
}

// NewServer loads the configuration written by setup.
func NewServer(configPath string, logger *zap.Logger) (*Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}, nil
}

// Run wires every component and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.cfg
	logger := s.logger

	// ----- PostgreSQL -----
	sqlDB, err := postgres.Open(ctx, postgres.ConnConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Charset:  cfg.DBCharset,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer sqlDB.Close()
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))

	hasher := crypto.NewPasswordHasher(0)
	cipher, err := crypto.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to build field cipher: %w", err)
	}
	gw := postgres.NewGateway(sqlDB, hasher, cipher, logger)

	// ----- Sessions & login throttling -----
	var (
		store    session.Store
		counter  session.Counter
		rdb      redis.UniversalClient
		sweepers []sweeper
	)
	if cfg.RedisAddr != "" {
		rdb, err = db.NewRedisClient(ctx, db.RedisConfig{
			Addresses: []string{cfg.RedisAddr},
			Password:  cfg.RedisPassword,
			PoolSize:  10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
		counter = session.NewRedisCounter(rdb)
		logger.Info("sessions stored in Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		memStore, memCounter := session.NewMemoryStore(), session.NewMemoryCounter(time.Now)
		store, counter = memStore, memCounter
		sweepers = append(sweepers, memStore, memCounter)
		logger.Warn("no Redis address configured, sessions are kept in memory")
	}
	sessionManager := session.NewManager(store, cfg.SessionTimeout(), logger)
	rateLimiter := session.NewRateLimiter(counter)

	// ----- Reset tokens -----
	tokens, err := jwt.Build(jwt.Config{
		Secret:   crypto.DeriveKey("notary password reset token", cfg.EncryptionKey),
		Issuer:   "notary-service",
		Audience: "password-reset",
		TTL:      cfg.ResetTokenTTL(),
	})
	if err != nil {
		return fmt.Errorf("failed to build token manager: %w", err)
	}

	// ----- Email -----
	emailSender := email.NewEmailSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Pass,
		cfg.SMTP.FromName,
		cfg.SMTP.Secure,
		cfg.SystemName,
	)
	emailHelper := authUsecase.NewEmailHelper(emailSender, logger, cfg.BaseURL, cfg.SystemName, cfg.ResetTokenTTL())

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(gw)
	licenseRepo := postgres.NewLicenseRepository(gw)
	accessLogRepo := postgres.NewAccessLogRepository(gw)
	resetRepo := postgres.NewPasswordResetRepository(gw)
	regionRepo := postgres.NewRegionRepository(gw)
	contractRepo := postgres.NewContractRepository(gw)
	notifyRepo := postgres.NewNotificationRepository(gw)
	settingRepo := postgres.NewSettingRepository(gw)
	statsRepo := postgres.NewStatsRepository(gw)

	// ----- Services (Usecases) -----
	authService, err := authUsecase.NewAuthService(
		userRepo,
		accessLogRepo,
		resetRepo,
		hasher,
		sessionManager,
		rateLimiter,
		tokens,
		emailHelper,
		cfg.PasswordMinLength,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to build auth service: %w", err)
	}
	userService := userUsecase.NewUserService(userRepo, licenseRepo, gw, cfg.PasswordMinLength, logger)
	licenseService := licenseUsecase.NewLicenseService(licenseRepo, logger)
	regionService := regionUsecase.NewRegionService(regionRepo)
	settingService := settingUsecase.NewSettingService(settingRepo, logger)
	notifService := notifyUsecase.NewNotificationService(notifyRepo, userRepo, emailHelper, logger)
	contractService := contractUsecase.NewContractService(contractRepo, notifyRepo, logger)
	dashboardService := dashboardUsecase.NewDashboardService(statsRepo, contractService, notifService, logger)

	// ----- Metrics & jobs -----
	metrics := obs.NewMetrics()
	scheduler := jobs.NewScheduler(cfg.Location(), resetRepo, licenseRepo, notifService, contractService, metrics, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	// ----- Pages -----
	pages, err := web.NewRenderer(cfg.SystemName, logger)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	pages.WithUnread(notifService)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(sessionManager, middleware.DefaultCookieName, logger)
	formLimiter := middleware.NewIPRateLimiter(1, 10)
	go sweep(ctx, sweepInterval, logger, append(sweepers, formLimiter)...)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:      authHandler.NewAuthHandler(authService, userService, authMiddleware, pages, metrics, logger),
		AdminHandler:     adminHandler.NewAdminHandler(userService, licenseService, regionService, settingService, accessLogRepo, pages, logger),
		ContractHandler:  contractHandler.NewContractHandler(contractService, userService, pages, logger),
		NotifHandler:     notifyHandler.NewNotificationHandler(notifService, pages, logger),
		DashboardHandler: dashboardHandler.NewDashboardHandler(dashboardService, pages),
		AuthMiddleware:   authMiddleware,
		FormLimiter:      formLimiter,
		Metrics:          metrics,
		Health: func() error {
			hctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return gw.Ping(hctx)
		},
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// sweeper is an in-process table that drops its expired entries on demand.
type sweeper interface {
	Sweep() int
}

func sweep(ctx context.Context, every time.Duration, logger *zap.Logger, targets ...sweeper) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed := 0
			for _, s := range targets {
				removed += s.Sweep()
			}
			if removed > 0 {
				logger.Debug("swept expired in-memory entries", zap.Int("removed", removed))
			}
		}
	}
}
