package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/scorepad/internal/config"
	"github.com/park285/scorepad/internal/audit"
	"github.com/park285/scorepad/internal/events"
	"github.com/park285/scorepad/internal/gamestore"
	"github.com/park285/scorepad/internal/httpapi"
	"github.com/park285/scorepad/internal/msgcat"
	"github.com/park285/scorepad/internal/obslog"
	"github.com/park285/scorepad/internal/service/game"
)

func main() {
	if err := appcfg.LoadDotEnv(".env"); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv("scorepad"); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := gamestore.Connect(cctx, cfg.RedisURL,
		gamestore.WithTTL(cfg.GameTTL()),
		gamestore.WithOpTimeout(cfg.StoreTimeout()),
	)
	cancel()
	if err != nil {
		logger.Fatal("game store init error", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message catalog init error", zap.Error(err))
	}

	svc := game.NewService(store, logger)

	// Audit trail (optional)
	if cfg.DatabaseURL != "" {
		repo, err := audit.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("audit repo init error", zap.Error(err))
		}
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(sctx)
		scancel()
		if err != nil {
			logger.Fatal("audit schema error", zap.Error(err))
		}
		svc.AttachRecorder(repo)
		defer func() { _ = repo.Close() }()
	}

	// Change notifications (optional)
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, cfg.NATSToken, cfg.NATSSubjectPrefix)
		if err != nil {
			logger.Fatal("nats connect error", zap.Error(err))
		}
		svc.AttachPublisher(pub)
		defer pub.Close()
	}

	srv := httpapi.New(svc, catalog, httpapi.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AdminTokenHeader: cfg.AdminTokenHeader,
		SessionIDHeader:  cfg.SessionIDHeader,
		MaxBodyBytes:     cfg.MaxBodyBytes,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("http_serve_error", zap.Error(err))
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
}
