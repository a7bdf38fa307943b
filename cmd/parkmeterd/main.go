// Command parkmeterd starts the parking meter HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhmtalitas/parkmeter/config"
	"github.com/mhmtalitas/parkmeter/internal/auth"
	"github.com/mhmtalitas/parkmeter/internal/clock"
	"github.com/mhmtalitas/parkmeter/internal/limiter"
	"github.com/mhmtalitas/parkmeter/internal/migrate"
	repopg "github.com/mhmtalitas/parkmeter/internal/repository/postgres"
	httpserver "github.com/mhmtalitas/parkmeter/internal/server/http"
	"github.com/mhmtalitas/parkmeter/internal/service"
	storepg "github.com/mhmtalitas/parkmeter/internal/storage/postgres"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	// Flags override the YAML config when set.
	cfgPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address")
	dsn := flag.String("dsn", "", "PostgreSQL DSN")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key")
	accessTTL := flag.Duration("access-ttl", 0, "access token TTL")
	dev := flag.Bool("dev", false, "enable gin debug mode (dev only)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *jwtKey != "" {
		cfg.Auth.SignKey = *jwtKey
	}
	if *accessTTL > 0 {
		cfg.Auth.AccessTTL = *accessTTL
	}

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	if cfg.Auth.SignKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or auth.sign_key)")
	}
	if cfg.Database.DSN == "" {
		logger.Fatal("missing PostgreSQL DSN (--dsn or database.dsn)")
	}

	if !*dev {
		gin.SetMode(gin.ReleaseMode)
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool, shared by the ledger store, repositories, and the limiter
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	accountRepo := repopg.NewAccountRepo(&repopg.DB{Pool: pool})
	ledger := storepg.NewLedgerStore(&storepg.DB{Pool: pool})

	lockoutWindow := time.Duration(cfg.Auth.LockoutMinutes) * time.Minute
	lim := limiter.NewPG(pool, lockoutWindow, cfg.Auth.LockoutMaxFails, lockoutWindow)

	// Services
	signKey := []byte(cfg.Auth.SignKey)
	accountSvc := service.NewAccountService(accountRepo, signKey, cfg.Auth.AccessTTL, lim)
	meterSvc := service.NewMeterService(ledger, auth.Context{}, clock.System{})

	router := httpserver.NewRouter(
		httpserver.NewServer(meterSvc, accountSvc),
		logger,
		httpserver.RouterOptions{
			SignKey:         signKey,
			RateLimitPerSec: cfg.Server.RateLimitPerSec,
			RateBurst:       cfg.Server.RateBurst,
			CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		},
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
