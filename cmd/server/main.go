package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fanlore/backend/internal/config"
	"github.com/fanlore/backend/internal/handler"
	"github.com/fanlore/backend/internal/logging"
	"github.com/fanlore/backend/internal/repository"
	"github.com/fanlore/backend/internal/service"
	"github.com/fanlore/backend/pkg/auth"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}

	pool, err := repository.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	donationRepo := repository.NewPgDonationRepository(pool)
	badgeRepo := repository.NewPgBadgeRepository(pool)
	grantRepo := repository.NewPgUserBadgeRepository(pool)

	resolver := service.NewDonorResolver(userRepo)
	entitlements := service.NewEntitlementService(donationRepo, badgeRepo, grantRepo, uuid.NewString)
	webhookService := service.NewWebhookService(service.WebhookConfig{
		VerificationToken: cfg.KofiVerificationToken,
		Freshness:         cfg.WebhookFreshness,
		ClockSkew:         cfg.WebhookClockSkew,
	}, donationRepo, resolver, entitlements)
	sweeper := service.NewSweeperService(grantRepo)
	adminBadgeService := service.NewAdminBadgeService(badgeRepo, grantRepo, userRepo, donationRepo, uuid.NewString)
	adminDonationService := service.NewAdminDonationService(donationRepo, userRepo, entitlements)

	h := handler.New(pool, cfg.FrontendURL)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	adminBadgeHandler := handler.NewAdminBadgeHandler(adminBadgeService, sweeper)
	adminDonationHandler := handler.NewAdminDonationHandler(adminDonationService)

	webhookLimiter := handler.NewRateLimiter(cfg.WebhookRatePerMinute)
	requireAdmin := auth.RequireAdmin(cfg.AdminToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/users/{id}/badges", adminBadgeHandler.UserBadges)

	// Webhook（Ko-fi 側が共有トークンで認証するため、セッション認証はなし）
	mux.Handle("POST /api/webhooks/kofi",
		webhookLimiter.Middleware(http.HandlerFunc(webhookHandler.Kofi)))

	// Admin routes (service-token guard)
	mux.Handle("GET /api/admin/badges", requireAdmin(http.HandlerFunc(adminBadgeHandler.List)))
	mux.Handle("POST /api/admin/badges/award", requireAdmin(http.HandlerFunc(adminBadgeHandler.Award)))
	mux.Handle("POST /api/admin/badges/sweep", requireAdmin(http.HandlerFunc(adminBadgeHandler.Sweep)))
	mux.Handle("GET /api/admin/badges/stats", requireAdmin(http.HandlerFunc(adminBadgeHandler.Stats)))
	mux.Handle("POST /api/admin/grants/{id}/revoke", requireAdmin(http.HandlerFunc(adminBadgeHandler.Revoke)))
	mux.Handle("GET /api/admin/donations/unresolved", requireAdmin(http.HandlerFunc(adminDonationHandler.ListUnresolved)))
	mux.Handle("POST /api/admin/donations/{id}/assign", requireAdmin(http.HandlerFunc(adminDonationHandler.Assign)))
	mux.Handle("POST /api/admin/donations/{id}/status", requireAdmin(http.HandlerFunc(adminDonationHandler.UpdateStatus)))

	// 期限切れ付与の定期スイープ（複数インスタンス同時実行でも安全）
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go service.RunPeriodic(sweepCtx, sweeper, cfg.SweepInterval)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
