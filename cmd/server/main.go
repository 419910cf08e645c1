// Command server runs the dating backend HTTP API.
//
// Startup order:
//  1. Load .env (best effort) and the environment-driven config
//  2. Configure zerolog (level, optional pretty console output)
//  3. Open SQLite and run migrations
//  4. Bootstrap OpenTelemetry tracing (optional)
//  5. Wire the reply generator, Gin engine, and routes
//  6. Serve until SIGINT/SIGTERM, then drain gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avray/go-dating-backend/internal/config"
	httpapi "github.com/avray/go-dating-backend/internal/http"
	"github.com/avray/go-dating-backend/internal/observability"
	"github.com/avray/go-dating-backend/internal/reply"
	"github.com/avray/go-dating-backend/internal/repo"
	"github.com/avray/go-dating-backend/internal/services"
	"github.com/avray/go-dating-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; production supplies real env vars.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	version = sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	// An empty base URL disables bot replies entirely.
	var gen reply.Generator
	if cfg.Reply.BaseURL != "" {
		gen = &reply.HTTPGenerator{
			BaseURL: cfg.Reply.BaseURL,
			Timeout: cfg.Reply.Timeout,
		}
	}

	// Optional demo data for local development: a bot profile that the
	// reply generator can answer for.
	if sysutil.IsTruthy(os.Getenv("SEED_DEMO")) {
		users := services.NewUserService(db)
		if _, err := users.Register(ctx, "daisy", "Daisy Bot", "bot"); err != nil && !errors.Is(err, services.ErrHandleTaken) {
			log.Warn().Err(err).Msg("seed demo bot")
		}
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, gen, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
