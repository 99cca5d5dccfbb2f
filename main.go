package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/router"
	_ "github.com/SayaAndy/image-gallery/internal/router/handlers"
)

var configPath = flag.String("c", "config.yaml", "Path to the configuration file (in YAML format)")

func main() {
	flag.Parse()

	cfg, err := config.InitConfig(*configPath)
	if err != nil {
		slog.Error("fail to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetLogLoggerLevel(cfg.LogLevel)
	slog.Info("starting image gallery server...")

	r, err := router.NewRouter(cfg)
	if err != nil {
		slog.Error("fail to initialize router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err = r.InitRoutes(); err != nil {
		slog.Error("fail to initialize routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals

		slog.Info("shutting down image gallery server...")
		if err := r.Close(); err != nil {
			slog.Error("fail to shutdown gracefully", slog.String("error", err.Error()))
		}
	}()

	if err = r.Listen(cfg.Listen); err != nil {
		slog.Error("fail to serve", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
