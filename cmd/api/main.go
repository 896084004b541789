// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/agent"
	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/config"
	"github.com/bookline-ai/booking-agent/internal/dialog"
	"github.com/bookline-ai/booking-agent/internal/events"
	"github.com/bookline-ai/booking-agent/internal/handler"
	"github.com/bookline-ai/booking-agent/internal/intent"
	"github.com/bookline-ai/booking-agent/internal/middleware"
	"github.com/bookline-ai/booking-agent/internal/session"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
	"github.com/bookline-ai/booking-agent/pkg/logger"
	"github.com/bookline-ai/booking-agent/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting booking agent")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "booking-agent", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS when configured; booking events are optional.
	var eventsClient *events.Client
	var publisher events.Publisher
	if cfg.NATSURL != "" {
		eventsClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer eventsClient.Close()

		streamManager := events.NewStreamManager(eventsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		publisher = streamManager
	} else {
		log.Info("NATS_URL not set, booking events disabled")
	}

	// Intent analysis client
	analyzer, err := intent.NewClient(intent.Provider(cfg.IntentProvider), intentAPIKey(cfg), cfg.IntentModel)
	if err != nil {
		log.Fatal("failed to create intent client", zap.Error(err))
	}
	log.Info("intent client ready", zap.String("provider", analyzer.Name()))

	// Calendar engine with the eventing decorator on its booking side
	engine := calendar.NewMemoryEngine(calendar.Policy{
		Open:        cfg.OpenAt,
		Close:       cfg.CloseAt,
		Granularity: cfg.SlotGranularity,
		Workdays:    cfg.Workdays,
	})
	booker := events.NewPublishingBooker(engine, publisher, log)

	// Dialogue state machine
	parser := timeparse.NewRuleParser()
	dialogRouter, err := dialog.NewRouter(engine, booker, parser, dialog.Options{
		DefaultDuration: cfg.SlotGranularity,
	}, log)
	if err != nil {
		log.Fatal("failed to build dialog router", zap.Error(err))
	}

	// Booking agent
	store := session.NewMemoryStore()
	bookingAgent := agent.New(store, analyzer, dialogRouter, agent.Config{
		IntentTimeout: cfg.IntentTimeout,
		HistoryLimit:  cfg.SessionHistoryLimit,
	}, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient)
	chatHandler := handler.NewChatHandler(bookingAgent, middleware.NewRequestValidator(), log)
	availabilityHandler := handler.NewAvailabilityHandler(engine, parser, cfg.SlotGranularity, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Service and health endpoints
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Conversational API
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)
		r.Get("/chat/{session_id}/history", chatHandler.History)
		r.Get("/availability/{date}", availabilityHandler.Get)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func intentAPIKey(cfg *config.Config) string {
	switch intent.Provider(cfg.IntentProvider) {
	case intent.ProviderAnthropic:
		return cfg.AnthropicAPIKey
	case intent.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	default:
		return ""
	}
}
