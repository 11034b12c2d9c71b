package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timelyagent/timely/internal/callstore"
	"github.com/timelyagent/timely/internal/config"
	"github.com/timelyagent/timely/internal/google"
	"github.com/timelyagent/timely/internal/instrumentation"
	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
	"github.com/timelyagent/timely/internal/ratelimit"
	"github.com/timelyagent/timely/internal/server"
	"github.com/timelyagent/timely/internal/telephony"
)

// Completion API admission limits. The request rate matches the vendor's
// published limit; the token budget keeps long transcripts from burning
// through the per-minute allowance in a single burst.
const (
	completionMaxRequests   = 50
	completionRequestWindow = time.Second
	completionTokenBudget   = 100000
	completionTokenWindow   = time.Minute
)

// HTTP server timeouts for the main API listener.
const (
	serverReadTimeout       = 30 * time.Second
	serverReadHeaderTimeout = 10 * time.Second
	serverWriteTimeout      = 120 * time.Second
	serverIdleTimeout       = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		httpAddr       string
		metricsEnabled bool
		metricsAddr    string
		webDir         string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant backend server",
		Long: `Start the HTTP backend for the calling assistant.

The server exposes the Google OAuth flow, the email and calendar context
endpoints, call initiation, the voice vendor webhook, and the status and
summary polling endpoints. Prometheus metrics are served on a dedicated
port.

Configuration is read from the environment (a .env file is honored for
local development). Required variables:
  LLAMA_API_URL, LLAMA_API_KEY
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL
  ELEVENLABS_API_KEY, ELEVENLABS_AGENT_ID, ELEVENLABS_PHONE_NUMBER_ID
  SESSION_SECRET`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debugMode, httpAddr, metricsEnabled, metricsAddr, webDir)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP server address. Can also use HTTP_ADDR env var. Default: "+config.DefaultHTTPAddr)
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address. Can also use METRICS_ADDR env var. Default: "+config.DefaultMetricsAddr)
	cmd.Flags().StringVar(&webDir, "web-dir", "web", "Directory with the static front end. Ignored when it does not exist.")

	return cmd
}

func runServe(debugMode bool, httpAddr string, metricsEnabled bool, metricsAddr, webDir string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(debugMode)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if httpAddr == "" {
		httpAddr = cfg.HTTPAddr
	}
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, "timely", version, metricsEnabled)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	limiter := ratelimit.NewTokenLimiter(
		completionMaxRequests, completionRequestWindow,
		completionTokenBudget, completionTokenWindow,
	)
	completer, err := llm.NewClient(llm.Config{
		Endpoint: cfg.LlamaAPIURL,
		APIKey:   cfg.LlamaAPIKey,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	caller, err := telephony.NewClient(telephony.Config{
		APIKey:        cfg.ElevenLabsAPIKey,
		AgentID:       cfg.ElevenLabsAgentID,
		PhoneNumberID: cfg.ElevenLabsPhoneNumberID,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create voice client: %w", err)
	}

	store := callstore.New(logger)
	defer store.Close()
	if err := metrics.RegisterActiveCallsGauge(func() int64 {
		return int64(store.Len())
	}); err != nil {
		return fmt.Errorf("failed to register call gauge: %w", err)
	}

	srv, err := server.NewServer(server.Config{
		Sessions:  server.NewSessionManager(cfg.SessionSecret),
		OAuth:     google.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Completer: completer,
		Caller:    caller,
		Store:     store,
		Metrics:   metrics,
		Logger:    logger,
		WebDir:    webDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           srv.Handler(),
		ReadTimeout:       serverReadTimeout,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	var metricsServer *server.MetricsServer
	if metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting server", slog.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}

	srv.Health().SetShuttingDown()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	logger.Info("server stopped")
	return nil
}
