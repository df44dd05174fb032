// Command server runs the ERNI building-agents HTTP service: six
// conversational specialists behind a guarded, supervised turn
// orchestrator.
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

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"

	"github.com/erni-gruppe/building-agents/config"
	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/guardrail"
	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/inference/anthropic"
	"github.com/erni-gruppe/building-agents/inference/openai"
	"github.com/erni-gruppe/building-agents/internal/metrics"
	"github.com/erni-gruppe/building-agents/logging"
	"github.com/erni-gruppe/building-agents/orchestrator"
	"github.com/erni-gruppe/building-agents/ratelimit"
	"github.com/erni-gruppe/building-agents/run"
	"github.com/erni-gruppe/building-agents/server"
	"github.com/erni-gruppe/building-agents/session"
	"github.com/erni-gruppe/building-agents/specialist"
	"github.com/erni-gruppe/building-agents/supervisor"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Format:  cfg.LogFormat,
		Output:  os.Stdout,
		Service: "building-agents",
	})
	logger.Info("server.starting", "environment", cfg.Environment, "provider", cfg.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mainClient, guardrailClient := buildClients(cfg)

	cache := guardrail.NewVerdictCache(cfg.GuardrailCacheSize, cfg.GuardrailCacheTTL)
	registry, err := specialist.NewERNIRegistry(guardrailClient, cache,
		func(o *specialist.ERNIOptions) { o.Logger = logger })
	if err != nil {
		return fmt.Errorf("build specialist registry: %w", err)
	}

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	collector := metrics.New()

	runner := run.NewRunner(registry, mainClient, func(o *run.Options) { o.Logger = logger })
	o := orchestrator.New(registry, runner, store, func(o *orchestrator.Options) {
		sup := supervisor.DefaultOptions()
		sup.Timeout = cfg.ExecutionTimeout
		o.Supervisor = sup
		o.Logger = logger
		o.Metrics = collector
	})

	limiter := ratelimit.NewLimiter(ctx, func(lo *ratelimit.Options) {
		lo.RequestsPerMinute = cfg.RateLimitPerMinute
		lo.Burst = cfg.RateLimitBurst
		lo.Logger = logger
	})

	srv := server.New(o, registry, mainClient, func(so *server.Options) {
		so.Logger = logger
		so.Metrics = collector
		so.Limiter = limiter
		so.CORSOrigins = cfg.CORSOrigins
		so.Environment = cfg.Environment
		so.ConfigCheck = cfg.Validate
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server.shutdown.started")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server.shutdown.complete")
	return nil
}

// buildClients creates the main specialist client and the guardrail
// classifier client for the configured provider.
func buildClients(cfg config.Config) (inference.Client, inference.Client) {
	if cfg.Provider == config.ProviderAnthropic {
		main := anthropic.NewClient(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Model = anthropicsdk.Model(cfg.Model)
		})
		classifier := anthropic.NewClient(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Model = anthropicsdk.Model(cfg.GuardrailModel)
			o.Temperature = 0
		})
		return main, classifier
	}

	main := openai.NewClient(func(o *openai.Options) {
		o.APIKey = cfg.OpenAIAPIKey
		o.Model = cfg.Model
	})
	classifier := openai.NewClient(func(o *openai.Options) {
		o.APIKey = cfg.OpenAIAPIKey
		o.Model = cfg.GuardrailModel
		o.Temperature = 0
	})
	return main, classifier
}

// buildStore creates the configured conversation store and a cleanup
// function for process shutdown.
func buildStore(cfg config.Config) (core.ConversationStore, func(), error) {
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		store, err := session.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() { store.Close() }, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		return session.NewRedisStore(client), func() { client.Close() }, nil

	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
