// Package ingest bulk-loads a pre-embedded forum Q&A dataset into the
// vector store. Rows are inserted one at a time; a failed row is logged and
// skipped, never retried, and never halts the batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
	"github.com/google/uuid"
)

// Upserter is the vector-store write surface the loader needs.
type Upserter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the loader.
type Deps struct {
	Store  Upserter
	Dims   int // expected embedding dimensionality; 0 disables the check
	Logger *slog.Logger
	// Progress, if set, is called once per processed record.
	Progress func()
}

// Summary reports the outcome of one bulk load.
type Summary struct {
	Inserted int
	Skipped  int // failed validation
	Failed   int // store insert failed
}

// Loader runs the one-shot bulk load.
type Loader struct {
	deps Deps
}

// NewLoader creates a Loader.
func NewLoader(deps Deps) *Loader {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Loader{deps: deps}
}

// LoadFile reads a JSON array of forum records and loads them into the store.
func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	var records []domain.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return Summary{}, fmt.Errorf("ingest: decode %s: %w", path, err)
	}

	return l.Load(ctx, records), nil
}

// Load inserts records sequentially. Each record gets a fresh UUID; invalid
// records are skipped, insert errors are logged and counted but do not stop
// the batch.
func (l *Loader) Load(ctx context.Context, records []domain.QARecord) Summary {
	var sum Summary
	for _, rec := range records {
		if ctx.Err() != nil {
			l.deps.Logger.Warn("ingest interrupted", "inserted", sum.Inserted)
			break
		}

		if l.deps.Progress != nil {
			l.deps.Progress()
		}

		if err := domain.ValidateForumRecord(rec, l.deps.Dims); err != nil {
			l.deps.Logger.Warn("ingest record skipped", "err", err)
			sum.Skipped++
			continue
		}

		vr := semantic.VectorRecord{
			ID:              uuid.NewString(),
			PatientQuestion: rec.PatientQuestion,
			DoctorResponse:  rec.DoctorResponse,
			Symptoms:        rec.Symptoms,
			Embedding:       rec.Embedding,
		}
		if err := l.deps.Store.Upsert(ctx, []semantic.VectorRecord{vr}); err != nil {
			l.deps.Logger.Error("ingest insert failed", "question", truncate(rec.PatientQuestion, 40), "err", err)
			sum.Failed++
			continue
		}

		l.deps.Logger.Debug("ingested", "question", truncate(rec.PatientQuestion, 40))
		sum.Inserted++
	}
	return sum
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
