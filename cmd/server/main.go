package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/config"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/enrich"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/favicon"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/handlers"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/metrics"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/middleware"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/processor"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/query"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
	"github.com/guillaumegarcia13/umami-sessions-service/pkg/logger"
)

func main() {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"port":        cfg.Server.Port,
	}).Info("Starting umami sessions service")

	exclusions, err := config.LoadExclusions(cfg.Exclusions.File)
	if err != nil {
		log.WithError(err).Fatal("Failed to load exclusions seed")
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	sessionRegistry := registry.NewSessionRegistry(exclusions.SessionEntries())
	websiteRegistry := registry.NewWebsiteRegistry(exclusions.Websites.Excluded, exclusions.Websites.Whitelist)

	var cache favicon.Cache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("Invalid Redis URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		cache = favicon.NewRedisCache(client, cfg.Favicon.CacheTTL, log)
		log.Info("Favicon cache backed by Redis")
	} else {
		cache = favicon.NewMemoryCache(cfg.Favicon.CacheTTL)
		log.Info("Favicon cache backed by process memory")
	}

	umamiClient := umami.NewClient(umami.ClientConfig{
		BaseURL:     cfg.Umami.BaseURL,
		APIKey:      cfg.Umami.APIKey,
		WebsiteID:   cfg.Umami.WebsiteID,
		Timeout:     cfg.Umami.Timeout,
		Retries:     cfg.Umami.Retries,
		LogPayloads: cfg.Umami.LogPayloads,
	}, m, log)

	proc := processor.New(m, log)
	enricher := enrich.New(umamiClient, log)
	orchestrator := query.New(umamiClient, proc, enricher, processor.Options{
		MinSessionDuration:     cfg.Processing.MinSessionDuration,
		FilterBots:             cfg.Processing.FilterBots,
		FilterCrawlers:         cfg.Processing.FilterCrawlers,
		ValidateRequiredFields: cfg.Processing.ValidateRequiredFields,
		LogFilteredRecords:     cfg.Processing.LogFilteredRecords,
		LogProcessingStats:     cfg.Processing.LogProcessingStats,
	}, query.Scope{
		WebsiteID: cfg.Umami.WebsiteID,
		PageSize:  cfg.Processing.PageSize,
	}, log)
	defer orchestrator.Close()

	prober := favicon.NewHTTPProber(cfg.Favicon.ProbeTimeout)
	resolver := favicon.NewResolver(cache, websiteRegistry, prober, m, log)

	router := mux.NewRouter()
	handlers.New(orchestrator, sessionRegistry, websiteRegistry, resolver, cache, promRegistry, log).Register(router)

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: middleware.Chain(router,
			middleware.RequestID,
			middleware.RequestLogger(log),
			middleware.Recovery(log),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
