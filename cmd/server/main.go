// Package main provides the chatgate server entry point.
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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/yuchenlin/chatgate-go/internal/bot"
	"github.com/yuchenlin/chatgate-go/internal/buildinfo"
	"github.com/yuchenlin/chatgate-go/internal/config"
	"github.com/yuchenlin/chatgate-go/internal/credential"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/modules/help"
	"github.com/yuchenlin/chatgate-go/internal/modules/settings"
	"github.com/yuchenlin/chatgate-go/internal/modules/status"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/ratelimit"
	"github.com/yuchenlin/chatgate-go/internal/sentry"
	"github.com/yuchenlin/chatgate-go/internal/storage"
	"github.com/yuchenlin/chatgate-go/internal/webhook"
)

const greeting = "Welcome! Send /help to see what I can do."

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithOptions(cfg.LogLevel, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log.WithField("version", buildinfo.Short()).Info("Starting chatgate server")

	// Initialize error tracking
	if err := sentry.Initialize(sentry.Config{
		Enabled:     cfg.SentryEnabled,
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Short(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize sentry, error tracking disabled")
	}

	// Connect to the delivery log
	db, err := storage.New(cfg.SQLitePath(), cfg.DeliveryRetention)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).
		WithField("retention", cfg.DeliveryRetention).
		Info("Delivery log connected")

	// Create Prometheus registry with runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)

	// Provider API client, shared by the dispatcher and the credential
	// manager (the client implements the token grant).
	client := outbound.NewClient(
		cfg.ProviderBaseURL,
		cfg.ChannelID,
		cfg.ChannelSecret,
		cfg.Gateway.CredentialTTL,
		cfg.Gateway.SendTimeout,
	)

	creds := credential.NewManager(credential.ManagerConfig{
		Issuer:      client,
		MaxAttempts: cfg.Gateway.CredentialMaxAttempts,
		Logger:      log,
		Metrics:     m,
	})

	channelLimiter := ratelimit.NewChannelLimiter(
		cfg.Gateway.PlanLimits.Capacity,
		cfg.Gateway.PlanLimits.Window,
		cfg.Gateway.RateMaxWait,
	)
	log.WithField("plan", string(cfg.Gateway.Plan)).
		WithField("capacity", cfg.Gateway.PlanLimits.Capacity).
		WithField("window", cfg.Gateway.PlanLimits.Window).
		Info("Outbound rate limiter configured")

	userLimiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:  cfg.Gateway.UserRateLimitBurst,
		RefillRate: cfg.Gateway.UserRateLimitRefillPerSec,
	})
	defer userLimiter.Stop()

	dispatcher := outbound.NewDispatcher(outbound.DispatcherConfig{
		API:                 client,
		Credentials:         creds,
		Limiter:             channelLimiter,
		Store:               db,
		Logger:              log,
		Metrics:             m,
		BaseDelay:           cfg.Gateway.SendBaseDelay,
		MaxDelay:            cfg.Gateway.SendMaxDelay,
		MaxAttempts:         cfg.Gateway.SendMaxAttempts,
		MinReplyTokenLength: cfg.Gateway.MinReplyTokenLength,
	})

	// Command registry
	commandRegistry := bot.NewRegistry()
	for _, h := range []bot.Handler{
		help.New(commandRegistry),
		status.New(db, channelLimiter),
		settings.New(db),
	} {
		if err := commandRegistry.Register(h); err != nil {
			log.WithError(err).Error("Failed to register command")
			os.Exit(1)
		}
	}

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:    commandRegistry,
		Greeting:    greeting,
		UserLimiter: userLimiter,
		Logger:      log,
		Metrics:     m,
	})

	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		Secret:              []byte(cfg.ChannelSecret),
		Processor:           processor,
		Sender:              dispatcher,
		MaxEvents:           cfg.Gateway.MaxEventsPerWebhook,
		MaxMessagesPerReply: cfg.Gateway.MaxMessagesPerReply,
		EventTimeout:        cfg.Gateway.EventTimeout,
		Logger:              log,
		Metrics:             m,
	})
	log.Info("Webhook handler created")

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(sentryMiddleware())

	setupRoutes(router, cfg, webhookHandler, db, registry)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	group, groupCtx := errgroup.WithContext(jobCtx)
	group.Go(func() error {
		sweepDeliveries(groupCtx, db, log)
		return nil
	})

	// Start server
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	// Stop accepting requests, then drain in-flight event processing.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := webhookHandler.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Timeout draining event workers")
	}

	cancelJobs()
	if err := group.Wait(); err != nil {
		log.WithError(err).Warn("Background jobs exited with error")
	}

	sentry.Flush(2 * time.Second)

	if err := db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}

	log.Info("Server stopped")
}
