package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reservation-api/internal/config"
	"reservation-api/internal/db"
	"reservation-api/internal/logger"
	"reservation-api/internal/router"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	bootLog := logger.InitLogger("info", true)

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Configuration invalid")
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("env", cfg.Env).Str("db_driver", cfg.DB.Driver).Msg("Starting reservation API")

	ctx := context.Background()

	database, err := db.InitDB(ctx, cfg.DB.Driver, cfg.DB.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database unavailable")
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, database, cfg.DB.Driver); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Msg("Migrations applied")

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = db.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis unavailable")
		}
		defer rdb.Close()
	}

	svc, err := router.NewServices(database, rdb, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Service setup failed")
	}

	if cfg.SeedAdmin() {
		seedAdmin(ctx, svc, cfg, log)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(svc, database, rdb, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("Listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

func seedAdmin(ctx context.Context, svc *router.Services, cfg *config.Config, log zerolog.Logger) {
	created, err := svc.Users.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Admin seed failed")
	}
	if created {
		log.Info().Str("email", cfg.Admin.Email).Msg("Admin account created")
	}
}
