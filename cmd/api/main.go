package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CivicMesh/app/internal/cache"
	"github.com/CivicMesh/app/internal/config"
	"github.com/CivicMesh/app/internal/filter"
	"github.com/CivicMesh/app/internal/gateway"
	"github.com/CivicMesh/app/internal/media"
	"github.com/CivicMesh/app/internal/post"
	"github.com/CivicMesh/app/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig   func() config.Config
	connectRedis func(config.Config) *redis.Client
	notify       func(chan<- os.Signal, ...os.Signal)
	run          func(context.Context, config.Config, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:   config.Load,
		connectRedis: connectRedis,
		notify:       signal.Notify,
		run:          Run,
	}
}

func connectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func realMain(deps mainDeps) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})))

	cfg := deps.loadConfig()
	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, rdb, signals, nil); err != nil {
		slog.Error("server exited", "err", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run wires the sync service together, warms the cache, and serves until a
// termination signal arrives.
func Run(ctx context.Context, cfg config.Config, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	log := slog.Default()

	resolver := media.NewResolver(cfg.UpstreamURL, cfg.UpstreamAPIKey)
	norm := post.NewNormalizer(resolver)

	mock, err := gateway.NewMock(cfg, norm)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: time.Duration(cfg.UploadTimeoutMs) * time.Millisecond}
	session := gateway.NewSession(cfg, rdb, httpClient, log)
	uploader := media.NewUploader(cfg.UpstreamURL, resolver, session, httpClient)
	live := gateway.NewLive(cfg, norm, uploader, session, httpClient, log)
	gw := gateway.New(func() bool { return cfg.UseMockData }, mock, live)

	posts := cache.NewStore(gw, log)
	filters := filter.NewCoordinator()

	// Warm sync so the first read is populated; a failure is not fatal, the
	// view layer re-triggers on focus.
	warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := posts.Refresh(warmCtx, true); err != nil {
		log.Warn("warm sync failed", "err", err)
	}
	cancel()

	srv := server.NewServer(cfg, gw, posts, filters)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
