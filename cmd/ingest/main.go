// Command ingest loads a pre-embedded forum Q&A dataset (JSON array) into
// the Qdrant collection used by the API server. One-shot: run it, read the
// summary, done.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/MediSenseAI/medisense-mvp/engine/ingest"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
	"github.com/MediSenseAI/medisense-mvp/pkg/config"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

func main() {
	var (
		file       = flag.String("file", "data/forum_with_embeddings.json", "JSON array of forum records with embeddings")
		configPath = flag.String("config", "config.yaml", "path to YAML config")
	)
	flag.Parse()

	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	vs, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		log.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer vs.Close()

	if err := vs.EnsureCollection(ctx, cfg.Qdrant.Dims); err != nil {
		log.Error("ensure collection failed", "err", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", cfg.Qdrant.Collection, "dims", cfg.Qdrant.Dims)

	// Count records up front so the bar has a total.
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Error("read dataset failed", "file", *file, "err", err)
		os.Exit(1)
	}
	var records []domain.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Error("decode dataset failed", "file", *file, "err", err)
		os.Exit(1)
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("ingesting forum Q&A"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	loader := ingest.NewLoader(ingest.Deps{
		Store:    vs,
		Dims:     cfg.Qdrant.Dims,
		Logger:   log,
		Progress: func() { bar.Add(1) },
	})

	sum := loader.Load(ctx, records)
	bar.Finish()

	log.Info("ingestion complete",
		"inserted", sum.Inserted,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"total", len(records),
	)
	if sum.Failed > 0 || sum.Skipped > 0 {
		os.Exit(1)
	}
}
