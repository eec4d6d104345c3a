// Package main implements the MediSense API server: the HTTP surface of the
// medical Q&A assistant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MediSenseAI/medisense-mvp/engine/rag"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
	"github.com/MediSenseAI/medisense-mvp/pkg/config"
	"github.com/MediSenseAI/medisense-mvp/pkg/embed"
	"github.com/MediSenseAI/medisense-mvp/pkg/events"
	"github.com/MediSenseAI/medisense-mvp/pkg/llm"
	"github.com/MediSenseAI/medisense-mvp/pkg/mid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Upstream clients ---
	embedClient := embed.NewClient(embed.Config{
		BaseURL: cfg.Embedder.BaseURL,
		APIKey:  cfg.EmbedAPIKey(),
		Model:   cfg.Embedder.Model,
		Timeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	llmClient := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLMAPIKey(),
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: float32(cfg.LLM.Temperature),
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	// --- Build RAG service ---
	opts := rag.DefaultOptions()
	opts.MatchThreshold = cfg.RAG.MatchThreshold
	opts.MatchCount = cfg.RAG.MatchCount
	opts.MinQuestionRunes = cfg.RAG.MinQuestionRunes
	opts.EmbedTimeout = time.Duration(cfg.Embedder.TimeoutSecs) * time.Second
	opts.LLMTimeout = time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	ragSvc := rag.New(embedClient, vectorStore, llmClient, opts, logger)

	// --- Optional query telemetry ---
	publisher, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer publisher.Close()
	if publisher.Enabled() {
		logger.Info("query telemetry enabled", "url", cfg.NATS.URL)
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/rag", handleRAG(ragSvc, publisher, logger))
	mux.HandleFunc("POST /api/embed", handleEmbed(embedClient, logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.Server.CORSOrigin),
		mid.OTel("medisense-api"),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	return srv.Shutdown(shutCtx)
}
