// @title        Member Portal API
// @version      1.0
// @description  Account procedures for the member portal: roster, profile edits and avatar uploads.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/api"
	"github.com/socis/member-portal/internal/api/handler"
	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/core/service"
	"github.com/socis/member-portal/internal/infrastructure/blob"
	"github.com/socis/member-portal/internal/infrastructure/db"
	rediscache "github.com/socis/member-portal/internal/infrastructure/db/redis"
	"github.com/socis/member-portal/internal/infrastructure/queue"
	"github.com/socis/member-portal/internal/pkg/config"
	"github.com/socis/member-portal/pkg/logger"
)

func main() {
	// A local .env is optional; real environments set variables directly.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "cannot read .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.Log.Level,
		Pretty:  cfg.IsDevelopment(),
		Service: "member-portal",
		File: logger.FileOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- User store ---
	users, closeStore, err := db.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore(context.Background()) }()

	health := []handler.Dependency{{Name: cfg.Store.Driver, Pinger: users}}

	// --- Identity cache (optional) ---
	var cache service.IdentityCache
	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = rediscache.NewIdentityCache(rdb, cfg.Redis.CacheTTL)
		health = append(health, handler.Dependency{
			Name:   "redis",
			Pinger: handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("identity cache enabled")
	}

	// --- Blob store ---
	deps := api.Dependencies{
		MaxImageBytes: cfg.Avatar.MaxBytes,
		Log:           log,
	}
	var blobs ports.BlobStore
	switch cfg.Blob.Driver {
	case "memory":
		base := cfg.Blob.PublicURL
		if base == "" {
			base = "http://localhost:" + cfg.Port + "/blobs"
		}
		mem := blob.NewMemoryStore(base)
		deps.Blobs = mem
		blobs = mem
		log.Warn().Msg("avatars are kept in memory and lost on restart")
	default:
		store, err := blob.NewMinIOStore(ctx, blob.MinIOConfig{
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			Bucket:    cfg.Blob.Bucket,
			Region:    cfg.Blob.Region,
			UseSSL:    cfg.Blob.UseSSL,
			PublicURL: cfg.Blob.PublicURL,
		})
		if err != nil {
			return err
		}
		blobs = store
	}
	health = append(health, handler.Dependency{Name: "blobs", Pinger: blobs})

	// --- Background cleanup of orphaned avatars ---
	janitor := queue.NewBlobJanitor(blobs, queue.JanitorConfig{
		Workers:  cfg.Avatar.JanitorWorkers,
		Attempts: cfg.Avatar.JanitorRetries,
		Delay:    cfg.Avatar.JanitorDelay,
	}, logger.Component("janitor"))
	janitor.Start(ctx)

	// --- Services ---
	avatars := service.NewAvatarService(blobs, janitor, service.AvatarConfig{
		DefaultImage: cfg.DefaultImage,
		MaxBytes:     cfg.Avatar.MaxBytes,
		KeyPrefix:    cfg.Avatar.KeyPrefix,
	}, logger.Component("avatars"))
	deps.Users = service.NewUserService(users, avatars, cache, logger.Component("users"))
	deps.Health = health

	e := api.NewRouter(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
