// Package main is the entry point for the API server.
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

	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/config"
	"github.com/telivi-ai/knowledge-assistant/internal/handler"
	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	natsclient "github.com/telivi-ai/knowledge-assistant/internal/nats"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
	"github.com/telivi-ai/knowledge-assistant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var log *logger.Logger
	var err error
	if cfg.Development() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "knowledge-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Event log; nil interfaces keep the router from seeing typed nils
	var (
		sink       service.EventSink = service.NopSink{}
		activity   handler.ActivitySource
		readiness  handler.Checker
		natsClient *natsclient.Client
		eventLog   *natsclient.EventLog
	)
	if cfg.EventLogEnabled() {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			Name:     "knowledge-assistant",
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}

		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = natsclient.EnsureStream(ensureCtx, natsClient.JetStream())
		cancel()
		if err != nil {
			natsClient.Close()
			log.Fatal("failed to ensure stream", zap.Error(err))
		}

		eventLog = natsclient.NewEventLog(natsClient, log)
		sink, activity, readiness = eventLog, eventLog, natsClient
	} else {
		log.Info("event log disabled, NATS_URL not set")
	}

	responder := llm.NewResponder(llm.Provider(cfg.DefaultLLM), map[llm.Provider]string{
		llm.ProviderAnthropic: cfg.AnthropicAPIKey,
		llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
	}, cfg.LLMModel, log)
	log.Info("reply generation configured", zap.String("responder", responder.Name()))

	// Initialize services
	workspaces := service.NewWorkspaces(service.WorkspaceConfig{
		Responder:     responder,
		Sink:          sink,
		ReplyDelay:    cfg.ReplyDelay,
		ReplyDelaySet: true,
		ReplyTimeout:  cfg.ReplyTimeout,
		Logger:        log,
	})
	directory := service.NewDirectory(
		service.WithDirectorySink(sink),
		service.WithDirectoryLogger(log),
		service.WithActor(middleware.GetUserID),
	)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:            log,
		Workspaces:        workspaces,
		Directory:         directory,
		Analytics:         service.NewAnalytics(),
		Activity:          activity,
		NATS:              readiness,
		AuthEnabled:       cfg.AuthEnabled,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	workspacesClosed := closeOnShutdown(server, workspaces)

	// Start server in goroutine
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.ServerPort),
			zap.Bool("auth_enabled", cfg.AuthEnabled),
			zap.Bool("event_log", cfg.EventLogEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
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

	// Scheduled replies are cancelled with their workspaces; their last
	// events must reach the log before it closes.
	select {
	case <-workspacesClosed:
	case <-shutdownCtx.Done():
		log.Warn("workspaces did not close before the shutdown deadline")
	}
	if eventLog != nil {
		eventLog.Close()
	}
	if natsClient != nil {
		natsClient.Close()
	}

	log.Info("server stopped")
}

// closeOnShutdown closes every workspace once server.Shutdown starts, so
// open event streams end instead of holding Shutdown until its deadline.
// The returned channel is closed when the workspaces are.
func closeOnShutdown(server *http.Server, workspaces *service.Workspaces) <-chan struct{} {
	done := make(chan struct{})
	server.RegisterOnShutdown(func() {
		workspaces.Close()
		close(done)
	})
	return done
}
