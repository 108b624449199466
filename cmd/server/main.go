package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/config"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/logger"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/notify"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/payment"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/pricing"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/router"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/service"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.GoEnv)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Ledger ---
	var store ledger.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		store = ledger.NewPostgresStore(pool, nil)
		log.Info("using postgres ledger")
	} else {
		store = ledger.NewMemoryStore()
		log.Warn("DATABASE_URL not set, orders are kept in memory and lost on restart")
	}

	// --- Sessions + login throttle ---
	var (
		sessions auth.SessionStore
		throttle auth.Throttle
	)
	if cfg.RedisURL != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = auth.NewRedisSessionStore(rdb)
		throttle = auth.NewRedisThrottle(rdb, cfg.LoginMaxCooldown)
		log.Info("using redis sessions")
	} else {
		sessions = auth.NewMemorySessionStore()
		throttle = auth.NewMemoryThrottle(cfg.LoginMaxCooldown)
	}

	pins, err := auth.NewPINVerifier(cfg.AdminPINHash, cfg.AdminPIN)
	if err != nil {
		return fmt.Errorf("admin pin: %w", err)
	}
	gate := auth.NewGate(pins, sessions, throttle, cfg.JWTSecret, cfg.SessionTTL, log.Named("auth"))

	// --- Pricing ---
	snap, err := cfg.PricingSnapshot(time.Now())
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if cfg.PricingFile != "" {
		if snap, err = pricing.LoadFile(cfg.PricingFile); err != nil {
			return fmt.Errorf("pricing file: %w", err)
		}
	}
	prices := pricing.NewSource(snap)
	if cfg.PricingFile != "" {
		if err := pricing.Watch(cfg.PricingFile, prices, log.Named("pricing")); err != nil {
			return fmt.Errorf("watch pricing file: %w", err)
		}
	}

	payments, err := payment.NewGenerator(payment.Payee{VPA: cfg.UPIVPA, Name: cfg.UPIPayeeName})
	if err != nil {
		return fmt.Errorf("payment payee: %w", err)
	}

	// --- Notifications ---
	hub := ws.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	notifiers := notify.Multi{hub}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log.Named("telegram"))
		if err != nil {
			return err
		}
		go tg.Run(ctx)
		notifiers = append(notifiers, tg)
	}

	orders := service.NewOrderService(store, prices, payments, notifiers, log.Named("orders"))

	// --- HTTP ---
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, orders, gate, hub, log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", server.Addr), zap.String("env", cfg.GoEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
