// Package rag orchestrates the Retrieval-Augmented Generation pipeline.
// It validates a user question, embeds it, searches the forum corpus for
// similar Q&A pairs, builds a grounded prompt, and calls the completion
// service for the final answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
)

// Embedder maps text to its embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector store's similarity search.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, threshold float32, limit int) ([]semantic.SearchResult, error)
}

// Completer abstracts the chat-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures the RAG pipeline behaviour.
type Options struct {
	MatchThreshold   float32
	MatchCount       int
	MinQuestionRunes int

	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	LLMTimeout    time.Duration

	// User-visible texts for the soft branches.
	ClarifyAnswer  string
	NoMatchAnswer  string
	FallbackAnswer string
}

// Localized user-visible defaults. These are part of the wire contract the
// chat clients display verbatim.
const (
	DefaultClarifyAnswer = "โปรดระบุคำถามทางการแพทย์หรือสุขภาพที่ชัดเจนเพื่อให้ฉันสามารถช่วยเหลือคุณได้ค่ะ\n(Please enter a clear medical or health-related question so I can assist you.)"

	DefaultNoMatchAnswer = "ขออภัย ฉันไม่พบข้อมูลที่เกี่ยวข้องในฐานข้อมูล กรุณาระบุคำถามทางการแพทย์หรือสุขภาพเพิ่มเติมค่ะ\n(Sorry, I could not find related info in the database. Please provide a more detailed medical or health-related question.)"

	DefaultFallbackAnswer = "Sorry, the medical assistant cannot answer at the moment."
)

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MatchThreshold:   0.5,
		MatchCount:       3,
		MinQuestionRunes: domain.MinQuestionRunes,
		EmbedTimeout:     15 * time.Second,
		SearchTimeout:    5 * time.Second,
		LLMTimeout:       60 * time.Second,
		ClarifyAnswer:    DefaultClarifyAnswer,
		NoMatchAnswer:    DefaultNoMatchAnswer,
		FallbackAnswer:   DefaultFallbackAnswer,
	}
}

// Response is the shaped result of one RAG request. Results always reflects
// what the matcher returned, even when the answer is a fallback.
type Response struct {
	Results []semantic.SearchResult `json:"results"`
	Answer  string                  `json:"answer"`
	Outcome string                  `json:"-"`
}

// EmbedError is a hard failure of the embedding stage.
type EmbedError struct{ Err error }

func (e *EmbedError) Error() string { return fmt.Sprintf("rag: embed query: %v", e.Err) }
func (e *EmbedError) Unwrap() error { return e.Err }

// StoreError is a hard failure of the vector search stage. It is surfaced
// distinctly from "no matches", which is a soft branch.
type StoreError struct{ Err error }

func (e *StoreError) Error() string { return fmt.Sprintf("rag: vector search: %v", e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Service is the RAG orchestration service.
type Service struct {
	embed  Embedder
	search Searcher
	llm    Completer
	opts   Options
	logger *slog.Logger
}

// New creates a RAG Service.
func New(embed Embedder, search Searcher, llm Completer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinQuestionRunes <= 0 {
		opts.MinQuestionRunes = domain.MinQuestionRunes
	}
	return &Service{embed: embed, search: search, llm: llm, opts: opts, logger: logger}
}

// Query runs the full pipeline for one question. Each external call is made
// exactly once, in order, under its own timeout. Soft branches (short
// question, no matches, completion failure) return a Response with a nil
// error; hard failures return *EmbedError or *StoreError.
func (s *Service) Query(ctx context.Context, question string) (*Response, error) {
	question = strings.TrimSpace(question)
	s.logger.Info("rag query start", "question_runes", utf8.RuneCountInString(question))

	// 1. Validate. A too-short question touches no external dependency.
	if err := domain.ValidateQuestion(question, s.opts.MinQuestionRunes); err != nil {
		s.logger.Info("rag question rejected", "err", err)
		return &Response{Results: []semantic.SearchResult{}, Answer: s.opts.ClarifyAnswer, Outcome: domain.OutcomeClarify}, nil
	}

	// 2. Embed the question.
	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancelEmbed()
	vector, err := s.embed.Embed(embedCtx, question)
	if err != nil {
		return nil, &EmbedError{Err: err}
	}

	// 3. Similarity search.
	searchCtx, cancelSearch := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancelSearch()
	results, err := s.search.Search(searchCtx, vector, s.opts.MatchThreshold, s.opts.MatchCount)
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	s.logger.Info("rag search done", "matches", len(results))

	// No context means no generation.
	if len(results) == 0 {
		return &Response{Results: []semantic.SearchResult{}, Answer: s.opts.NoMatchAnswer, Outcome: domain.OutcomeNoMatch}, nil
	}

	// 4. Compose and complete. A completion failure never breaks the
	// request: the user still gets the fallback text and the matches.
	prompt := BuildPrompt(question, results)

	llmCtx, cancelLLM := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancelLLM()
	answer, err := s.llm.Complete(llmCtx, prompt)
	if err != nil {
		s.logger.Warn("rag completion failed, using fallback", "err", err)
		return &Response{Results: results, Answer: s.opts.FallbackAnswer, Outcome: domain.OutcomeFallback}, nil
	}

	return &Response{Results: results, Answer: answer, Outcome: domain.OutcomeOK}, nil
}
