package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"catalog-service/internal/api"
	"catalog-service/internal/auth"
	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/library"
	"catalog-service/internal/logging"
	"catalog-service/internal/media"
	"catalog-service/internal/persist"
	"catalog-service/internal/realtime"
)

func main() {
	if err := run(); err != nil {
		logging.Err(err).Msg("catalog-service: fatal")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	files, err := media.NewFileStore(cfg.Media.UploadDir)
	if err != nil {
		return err
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	deps := library.Deps{
		Store:       store,
		Media:       files,
		StoreName:   cfg.Storage.Backend,
		SeedSamples: cfg.Storage.SeedSamples,
	}
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		deps.Publisher = events.NewPublisher(rdb, cfg.Redis.Channel)
		go func() {
			if err := events.Subscribe(ctx, rdb, cfg.Redis.Channel, hub.Broadcast); err != nil {
				logging.Err(err).Msg("events subscriber stopped")
			}
		}()
	} else {
		logging.Warn().Msg("REDIS_URL not set, catalog events are not published")
	}

	lib := library.New(deps)
	lib.Load(ctx)

	users, err := auth.NewDirectory(auth.DemoCredentials(), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	tokens := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)

	srv := api.NewServer(lib, users, tokens, files, realtime.Handler(hub, cfg.Security.CORSOrigins), api.Options{
		CORSOrigins:    cfg.Security.CORSOrigins,
		RateLimitRPS:   cfg.Security.RateLimitRPS,
		RequestTimeout: cfg.Server.RequestTimeout,
		CookieSecure:   cfg.Auth.CookieSecure,
	})

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", httpSrv.Addr).Str("storage", cfg.Storage.Backend).Msg("catalog-service listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// openStore builds the configured catalog store. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg config.StorageConfig) (library.Store, func(), error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := persist.AutoMigrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return persist.NewPostgres(pool), pool.Close, nil
	case "badger":
		db, err := persist.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return persist.NewBadger(db), func() { _ = db.Close() }, nil
	default:
		return persist.NewJSONFile(cfg.DataFile), func() {}, nil
	}
}
