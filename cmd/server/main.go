package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/beckn-intent/internal/api"
	"github.com/avvvet/beckn-intent/internal/backend"
	"github.com/avvvet/beckn-intent/internal/config"
	"github.com/avvvet/beckn-intent/internal/llm"
	"github.com/avvvet/beckn-intent/internal/memory"
	"github.com/avvvet/beckn-intent/internal/messaging"
	"github.com/avvvet/beckn-intent/internal/network"
	"github.com/avvvet/beckn-intent/internal/pipeline"
	"github.com/avvvet/beckn-intent/internal/registry"
	"github.com/avvvet/beckn-intent/internal/schema"
	"github.com/avvvet/beckn-intent/internal/transport"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	logger.Info().Msg("starting beckn-intent service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Fatal().Msg("OPENAI_API_KEY environment variable is required")
	}
	logger.Info().
		Str("service", cfg.ServiceName).
		Str("nats", cfg.NatsURL).
		Str("model", cfg.OpenAIModel).
		Msg("configuration loaded")

	// Read-only network registry and request schemas
	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load network registry")
	}
	logger.Info().Int("domains", len(reg.Domains)).Msg("registry loaded")

	schemas, err := schema.Load(cfg.SchemaDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load schemas")
	}

	// Session store
	redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisStore.Close()
	sessions := memory.NewManager(redisStore, logger)
	defer sessions.Close()
	logger.Info().Msg("session store ready")

	// LLM provider
	provider, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// Outbound capabilities
	netClient := network.NewClient(cfg.NetworkTimeout, logger)

	var sender messaging.Sender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber, cfg.NetworkTimeout, logger)
	} else {
		logger.Warn().Msg("no messaging credentials, outbound messages will only be logged")
		sender = messaging.NewLogSender(logger)
	}

	// Pipeline
	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewClassifier(provider, logger),
		schemas,
		pipeline.NewEnvelopeBuilder(reg, cfg.BapID, cfg.BapURI, logger),
		pipeline.NewComposer(provider, logger),
		pipeline.NewNarrator(provider, logger),
		pipeline.NewProfileExtractor(provider, logger),
		netClient,
		sessions,
		logger,
	)

	// NATS transport
	natsTransport, err := transport.NewNATSTransport(cfg, orchestrator, sender, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize NATS transport")
	}
	defer natsTransport.Close()

	if err := natsTransport.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start NATS transport")
	}

	// Operator webhook API
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendToken, netClient, logger)
	handlers := api.NewHandlers(backendClient, sender, cfg.DefaultRecipient, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("webhook API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("webhook API failed")
		}
	}()

	logger.Info().Str("subject", cfg.NatsRequestSubject).Msg("beckn-intent service is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("webhook API shutdown error")
	}
	if err := natsTransport.Close(); err != nil {
		logger.Warn().Err(err).Msg("NATS shutdown error")
	}
	if err := sessions.Close(); err != nil {
		logger.Warn().Err(err).Msg("session store shutdown error")
	}

	logger.Info().Msg("beckn-intent service stopped")
}
