// Command drivegated serves the file-storage mediation API over a configured
// upstream gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/backend"
	"github.com/drivegate/drivegate/backend/azure"
	"github.com/drivegate/drivegate/backend/s3"
	"github.com/drivegate/drivegate/mocks"
	"github.com/drivegate/drivegate/server"
	"github.com/drivegate/drivegate/upload"
)

const shutdownGrace = 15 * time.Second

type config struct {
	listen      string
	scheme      string
	uploadLimit int64
	sessionTTL  time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		listen:      envOr("DRIVEGATE_LISTEN", ":8080"),
		scheme:      envOr("DRIVEGATE_BACKEND", azure.Scheme),
		uploadLimit: server.DefaultSmallUploadLimit,
		sessionTTL:  upload.DefaultSessionTTL,
	}

	if v := os.Getenv("DRIVEGATE_SMALL_UPLOAD_LIMIT"); v != "" {
		limit, err := units.RAMInBytes(v)
		if err != nil {
			return cfg, fmt.Errorf("parse DRIVEGATE_SMALL_UPLOAD_LIMIT: %w", err)
		}
		cfg.uploadLimit = limit
	}
	if v := os.Getenv("DRIVEGATE_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse DRIVEGATE_SESSION_TTL: %w", err)
		}
		cfg.sessionTTL = ttl
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func buildGateway(ctx context.Context, scheme string) (drivegate.Gateway, error) {
	switch scheme {
	case azure.Scheme:
		return azure.NewGateway(nil)
	case s3.Scheme:
		return s3.NewGateway(ctx, nil)
	case "mem":
		// in-memory gateway for local development, no upstream needed
		return mocks.NewGateway(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", scheme)
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("drivegated failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gateway, err := buildGateway(ctx, cfg.scheme)
	if err != nil {
		return err
	}
	backend.Register(cfg.scheme, gateway)

	store := upload.NewMemoryStore()
	srv := server.New(gateway, store,
		server.WithLogger(logger),
		server.WithSmallUploadLimit(cfg.uploadLimit),
		server.WithSessionTTL(cfg.sessionTTL),
	)

	httpServer := &http.Server{
		Addr:              cfg.listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// expired sessions are rejected on submit; the sweep just frees memory
	go sweepSessions(ctx, store, cfg.sessionTTL, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("drivegated listening",
			zap.String("addr", cfg.listen),
			zap.String("backend", cfg.scheme),
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func sweepSessions(ctx context.Context, store *upload.MemoryStore, ttl time.Duration, logger *zap.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(time.Now()); removed > 0 {
				logger.Info("swept expired upload sessions", zap.Int("removed", removed))
			}
		}
	}
}
