package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/comments-service/config"
	"github.com/cwrk-planet/comments-service/internal/app/session"
	"github.com/cwrk-planet/comments-service/internal/pg"
	"github.com/cwrk-planet/comments-service/internal/postgres"
	"github.com/cwrk-planet/comments-service/internal/service"
	"github.com/cwrk-planet/comments-service/internal/sqlite"
	httpx "github.com/cwrk-planet/comments-service/internal/transport/http"
	httpmw "github.com/cwrk-planet/comments-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/comments-service/internal/transport/ws"
	"github.com/cwrk-planet/comments-service/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting comments-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "driver", cfg.Storage.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- storage ---
	var repo service.MessageRepo
	var closeStore func()
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		repo = store
		closeStore = func() { _ = store.Close() }
	default:
		pool, err := pg.NewPool(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		pgRepo := postgres.NewMessageRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		repo = pgRepo
		closeStore = pool.Close
	}
	defer closeStore()

	// --- services ---
	msgSvc := service.NewMessageService(repo)

	var sessions session.Client
	if cfg.Session.BaseURL != "" {
		sessions, err = session.New(session.Options{
			BaseURL: cfg.Session.BaseURL,
			Timeout: cfg.SessionTimeout(),
		})
		if err != nil {
			log.Fatalf("session client: %v", err)
		}
	}

	// --- WS Hub & Server ---
	hub := ws.NewHub(cfg.SweepInterval())
	go hub.Run(ctx)
	wsServer := ws.NewServer(hub, cfg.WS.SendBuffer)

	// --- HTTP ---
	handler := httpx.NewHandler(msgSvc, hub)
	router := httpx.NewRouter(httpx.RouterDeps{
		Handler:        handler,
		WSServer:       wsServer,
		Auth:           httpmw.Auth(sessions, cfg.Session.Required),
		RateLimit:      httpmw.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	cancel() // останавливает sweep и закрывает live-соединения
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
