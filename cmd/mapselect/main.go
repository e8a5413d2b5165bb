package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/mohammed-shakir/map-area-select/internal/core/config"
	"github.com/mohammed-shakir/map-area-select/internal/core/httpclient"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
	"github.com/mohammed-shakir/map-area-select/internal/datafetch"
	"github.com/mohammed-shakir/map-area-select/internal/logger"
	"github.com/mohammed-shakir/map-area-select/internal/tui"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	// the terminal belongs to the UI, so logs go to a file
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file %s: %v\n", cfg.LogFile, err)
			return 1
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "mapselect",
	}, out)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting mapselect",
		"version", Version,
		"api_host", cfg.API.Host,
		"api_port", cfg.API.Port,
		"lat", cfg.Viewport.Lat,
		"lng", cfg.Viewport.Lng,
		"zoom", cfg.Viewport.Zoom)

	fetcher, err := datafetch.New(appLog, httpclient.NewOutbound(cfg.API.FetchTimeout), datafetch.Config{
		Host:      cfg.API.Host,
		Port:      cfg.API.Port,
		Precision: cfg.API.Precision,
	})
	if err != nil {
		appLog.Error("invalid data service config", "err", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		appLog.Error("create screen", "err", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		appLog.Error("init screen", "err", err)
		return 1
	}
	defer screen.Fini()

	app, err := tui.New(screen, fetcher, tui.Config{
		Viewport: cfg.Viewport,
		CellPxW:  cfg.CellPxW,
		CellPxH:  cfg.CellPxH,
	}, appLog)
	if err != nil {
		appLog.Error("tui setup failed", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		appLog.Error("ui exited with error", "err", err)
		return 1
	}
	appLog.Info("mapselect stopped")
	return 0
}
