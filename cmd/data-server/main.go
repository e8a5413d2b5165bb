package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/map-area-select/internal/areaevents"
	"github.com/mohammed-shakir/map-area-select/internal/cache/areacache"
	"github.com/mohammed-shakir/map-area-select/internal/cache/redisstore"
	"github.com/mohammed-shakir/map-area-select/internal/core/config"
	"github.com/mohammed-shakir/map-area-select/internal/core/health"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
	"github.com/mohammed-shakir/map-area-select/internal/core/server"
	"github.com/mohammed-shakir/map-area-select/internal/dataserver"
	"github.com/mohammed-shakir/map-area-select/internal/logger"
	h3mapper "github.com/mohammed-shakir/map-area-select/internal/mapper/h3"
	"github.com/mohammed-shakir/map-area-select/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "data-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting data server",
		"addr", cfg.Addr,
		"version", Version,
		"h3_res", cfg.H3Res,
		"cache", cfg.Cache.Enabled,
		"kafka", cfg.Events.Brokers != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{Checks: map[string]health.Checker{}}
	var cache dataserver.Cache
	if cfg.Cache.Enabled {
		var remote areacache.Remote
		if cfg.Cache.RedisAddr != "" {
			rc, err := redisstore.New(ctx, cfg.Cache.RedisAddr,
				redisstore.WithDialTimeout(cfg.Cache.OpTimeout*4),
				redisstore.WithReadTimeout(cfg.Cache.OpTimeout),
				redisstore.WithWriteTimeout(cfg.Cache.OpTimeout))
			if err != nil {
				appLog.Error("redis setup failed", "addr", cfg.Cache.RedisAddr, "err", err)
				return 1
			}
			defer func() { _ = rc.Close() }()
			remote = rc
			deps.Checks["redis"] = rc
		}
		cache = areacache.New(appLog, areacache.Config{
			Size:      cfg.Cache.Size,
			TTL:       cfg.Cache.TTL,
			OpTimeout: cfg.Cache.OpTimeout,
		}, remote)
	}

	var events dataserver.Events
	if brokers := cfg.Events.BrokerList(); len(brokers) > 0 {
		pub, err := areaevents.NewPublisher(appLog, brokers, cfg.Events.Topic, cfg.Events.QueueSize)
		if err != nil {
			appLog.Error("kafka setup failed", "brokers", cfg.Events.Brokers, "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Warn("kafka close", "err", err)
			}
		}()
		events = pub
	}

	deps.Handler = dataserver.New(appLog, h3mapper.New(cfg.H3MaxCells), cfg.H3Res, cache, events)

	if os.Getenv("METRICS_ENABLED") == "true" {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    envOr("METRICS_ADDR", ":9090"),
			Path:    envOr("METRICS_PATH", "/metrics"),
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		deps.Metrics = p.Handler()
		go serveMetrics(ctx, appLog, p)
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func serveMetrics(ctx context.Context, appLog *slog.Logger, p *metrics.Provider) {
	mux := http.NewServeMux()
	mux.Handle(p.Path(), p.Handler())
	srv := &http.Server{
		Addr:              p.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	appLog.Info("metrics listening", "addr", p.Addr(), "path", p.Path())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("metrics server exited", "err", err)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
