package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/MediSenseAI/medisense-mvp/engine/rag"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
	"github.com/MediSenseAI/medisense-mvp/pkg/events"
)

// Error answers shown to the user when a stage hard-fails. Part of the wire
// contract; the chat UI displays them verbatim.
const (
	storeFailureAnswer  = "Error: database vector search failed."
	internalErrorAnswer = "An internal error occurred. Please try again later."
)

// ragQuerier is the slice of the RAG service the handler needs.
type ragQuerier interface {
	Query(ctx context.Context, question string) (*rag.Response, error)
}

// embedder is the slice of the embedding client the handler needs.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ragRequest is the JSON body for POST /api/rag. Question is RawMessage so a
// non-string value is routed to the clarify branch rather than failing the
// body decode.
type ragRequest struct {
	Question json.RawMessage `json:"question"`
}

// ragResponse is the JSON response for POST /api/rag. SupabaseError keeps the
// field name the deployed chat UI already parses for store failures.
type ragResponse struct {
	Results       []semantic.SearchResult `json:"results"`
	Answer        string                  `json:"answer"`
	SupabaseError string                  `json:"supabaseError,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleRAG(svc ragQuerier, pub *events.Publisher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req ragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			observeQuery(r.Context(), pub, domain.OutcomeBadRequest, 0, 0, start)
			writeJSON(w, http.StatusInternalServerError, ragResponse{
				Results: []semantic.SearchResult{},
				Answer:  internalErrorAnswer,
				Error:   "invalid request body",
			})
			return
		}

		// A missing, null, or non-string question is invalid input, not a
		// system error: the empty string falls through validation to the
		// clarify response.
		var question string
		if len(req.Question) > 0 {
			_ = json.Unmarshal(req.Question, &question)
		}
		runes := utf8.RuneCountInString(question)

		resp, err := svc.Query(r.Context(), question)
		if err != nil {
			var storeErr *rag.StoreError
			if errors.As(err, &storeErr) {
				logger.Error("vector search failed", "err", err)
				observeQuery(r.Context(), pub, domain.OutcomeStoreError, runes, 0, start)
				writeJSON(w, http.StatusInternalServerError, ragResponse{
					Results:       []semantic.SearchResult{},
					Answer:        storeFailureAnswer,
					SupabaseError: storeErr.Unwrap().Error(),
				})
				return
			}

			logger.Error("rag query failed", "err", err)
			observeQuery(r.Context(), pub, domain.OutcomeEmbedError, runes, 0, start)
			writeJSON(w, http.StatusInternalServerError, ragResponse{
				Results: []semantic.SearchResult{},
				Answer:  internalErrorAnswer,
				Error:   err.Error(),
			})
			return
		}

		observeQuery(r.Context(), pub, resp.Outcome, runes, len(resp.Results), start)
		writeJSON(w, http.StatusOK, ragResponse{Results: resp.Results, Answer: resp.Answer})
	}
}

// embedRequest uses RawMessage so a non-string text value is a 400, not a
// decode panic or silent coercion.
type embedRequest struct {
	Text json.RawMessage `json:"text"`
}

func handleEmbed(emb embedder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "`text` must be a string"})
			return
		}
		var text string
		if err := json.Unmarshal(req.Text, &text); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "`text` must be a string"})
			return
		}

		vector, err := emb.Embed(r.Context(), text)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyText) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "`text` must be a string"})
				return
			}
			logger.Error("embed failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string][]float32{"embedding": vector})
	}
}

// observeQuery records metrics and, when telemetry is enabled, publishes a
// QueryEvent. Never fails the request.
func observeQuery(ctx context.Context, pub *events.Publisher, outcome string, runes, matches int, start time.Time) {
	elapsed := time.Since(start)
	ragRequests.WithLabelValues(outcome).Inc()
	ragDuration.Observe(elapsed.Seconds())
	pub.Emit(ctx, domain.QueryEventSubject, domain.QueryEvent{
		QuestionRunes: runes,
		Outcome:       outcome,
		Matches:       matches,
		DurationMS:    elapsed.Milliseconds(),
		At:            time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
