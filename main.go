package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tickflow/config"
	"tickflow/internal/bus"
	"tickflow/internal/channel"
	"tickflow/internal/feed"
	"tickflow/internal/hub"
	"tickflow/internal/metrics"
	"tickflow/internal/normalizer"
	"tickflow/internal/registry"
	"tickflow/internal/status"
	"tickflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tickflow.Name,
		"version": cfg.Tickflow.Version,
	}).Info("starting tickflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Logging.Report || strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if cfg.Metrics.Enabled {
		metrics.Init(cfg.Metrics.Addr)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
		interval := cfg.Metrics.CloudWatch.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		metrics.StartCloudWatchPublisher(ctx, interval)
	}

	channels := channel.NewChannels(cfg.Channels.RawBuffer)
	defer channels.Close()
	channels.StartStatsReporting(ctx, 30*time.Second)

	events := bus.New(cfg.Bus.Buffer)
	tracker := status.NewTracker()

	norm := normalizer.New(cfg, channels, events)
	if err := norm.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start normalizer")
		os.Exit(1)
	}

	manager := feed.NewManager(cfg, channels, tracker, norm)
	if err := manager.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start feed manager")
		os.Exit(1)
	}

	subs := registry.New(manager)
	broadcaster := hub.New(cfg, events, subs)
	go broadcaster.Run(ctx)

	server := hub.NewServer(cfg, broadcaster, tracker)
	server.Start()

	go tracker.StartReporting(ctx, events, 10*time.Second)

	// Initial subscription set; normally supplied by the persistence layer.
	for _, entry := range cfg.Subscriptions {
		subs.Subscribe(entry.Symbol, entry.Exchanges)
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("hub server shutdown failed")
	}

	log.Info("stopping feed manager")
	manager.Stop()

	cancel()

	log.Info("stopping normalizer")
	norm.Stop()

	events.Close()
	log.Info("tickflow stopped")
}
