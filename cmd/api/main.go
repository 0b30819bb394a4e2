package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcredits-platform/internal/audit"
	"callcredits-platform/internal/auth"
	"callcredits-platform/internal/billing"
	"callcredits-platform/internal/config"
	"callcredits-platform/internal/httpapi"
	"callcredits-platform/internal/payment"
	"callcredits-platform/internal/reporting"
	"callcredits-platform/internal/signaling"
	"callcredits-platform/internal/user"
	"callcredits-platform/internal/wallet"
	"callcredits-platform/pkg/logger"
	"callcredits-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	allocator, err := signaling.NewURLAllocator(cfg.Billing.SignalingBaseURL)
	if err != nil {
		log.Error("signaling init failed", "err", err)
		os.Exit(1)
	}

	var limiter billing.ConcurrencyLimiter = billing.NoopLimiter{}
	if cfg.Billing.MaxConcurrentCalls > 0 {
		limiter = billing.NewRedisLimiter(rdb, cfg.Billing.MaxConcurrentCalls, 0)
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	userSvc := user.NewService(user.NewPostgresStore(db))
	walletSvc := wallet.NewService(wallet.NewPostgresStore(db))
	billingSvc := billing.NewService(billing.NewPostgresStore(db), walletSvc, allocator, limiter, auditSvc)
	paymentSvc := payment.NewService(
		payment.NewPostgresStore(db),
		walletSvc,
		userSvc,
		payment.NewSimulatedGateway(cfg.Gateway),
		auditSvc,
		cfg.Gateway.RedirectURL,
	)
	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db))

	h := httpapi.Handlers{
		Auth:     authManager,
		Users:    userSvc,
		Wallets:  walletSvc,
		Payments: paymentSvc,
		Billing:  billingSvc,
		Reports:  reportSvc,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
