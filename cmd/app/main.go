package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelcanvas/internal/config"
	"pixelcanvas/internal/db"
	httpServer "pixelcanvas/internal/http"
	"pixelcanvas/internal/http/handlers"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/payments"
	"pixelcanvas/internal/repository"
	"pixelcanvas/internal/service"
	"pixelcanvas/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

var version = "dev"

// stores is the persistence surface the services need, backed by Postgres or memory.
type stores struct {
	users  service.UserStore
	pixels service.PixelStore
	stats  service.StatsStore
	admin  service.AdminStore
	chat   service.ChatStore
	audit  service.AuditStore
}

func main() {
	cfg := config.Load()
	_ = logger.InitWithFile(cfg.LogLevel, cfg.LogJSON, cfg.LogFile)
	defer logger.Sync()

	service.InitJWT(cfg.JWTSecret)
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := clockwork.NewRealClock()
	checks := map[string]handlers.Pinger{}

	var st stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := repository.NewMemoryStore(clock)
		st = stores{users: mem, pixels: mem, stats: mem, admin: mem, chat: mem, audit: mem}
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		checks["database"] = pool
		statsRepo := repository.NewStatsRepository(pool)
		st = stores{
			users:  repository.NewUserRepository(pool),
			pixels: repository.NewPixelRepository(pool),
			stats:  statsRepo,
			admin:  statsRepo,
			chat:   repository.NewChatRepository(pool),
			audit:  repository.NewAuditRepository(pool),
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := ws.NewHub()
	if rdb := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		relay := ws.NewRedisRelay(rdb, cfg.RealtimeChannel)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				logger.Error("realtime relay stopped", "error", err)
			}
		}()
	}

	var gateway service.PaymentGateway
	if cfg.Stripe.Enabled() {
		gateway = payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		logger.Info("stripe not configured, payment routes disabled")
	}

	prices := service.PriceCatalog{
		Colors60:       cfg.Stripe.PriceColors60,
		Colors120:      cfg.Stripe.PriceColors120,
		ColorsAllMonth: cfg.Stripe.PriceColorsAllMonth,
		Pixels100:      cfg.Stripe.PricePixels100,
	}
	audit := service.NewAuditService(st.audit)

	h := &handlers.Handler{
		Placement:   service.NewPlacementService(st.pixels, hub, clock, cfg.Cooldown),
		Pixels:      st.pixels,
		Leaderboard: service.NewLeaderboardService(st.stats, st.users, clock),
		Users:       service.NewUserService(st.users, audit, cfg.DefaultFreePixels),
		Chat:        service.NewChatService(st.chat, hub),
		Payments:    service.NewPaymentService(st.users, gateway, audit, prices, clock),
		Admin:       service.NewAdminService(st.users, st.admin, audit, clock),
		DevMode:     cfg.DevMode,
		AppVersion:  version,
		Prices:      prices,
	}

	r := httpServer.NewRouter(httpServer.Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler(version, checks, hub.ClientCount),
		Hub:     hub,
		Config:  cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.StorageDriver, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
