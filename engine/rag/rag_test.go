package rag

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
)

// --- mocks ---

type mockEmbedder struct {
	vec    []float32
	err    error
	calls  int
	lastIn string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	m.lastIn = text
	return m.vec, m.err
}

type mockSearcher struct {
	results       []semantic.SearchResult
	err           error
	calls         int
	lastThreshold float32
	lastLimit     int
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, threshold float32, limit int) ([]semantic.SearchResult, error) {
	m.calls++
	m.lastThreshold = threshold
	m.lastLimit = limit
	return m.results, m.err
}

type mockCompleter struct {
	answer     string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.answer, m.err
}

func newService(e *mockEmbedder, s *mockSearcher, c *mockCompleter) *Service {
	return New(e, s, c, DefaultOptions(), slog.Default())
}

var twoResults = []semantic.SearchResult{
	{ID: "r1", Similarity: 0.92, PatientQuestion: "Is type 2 diabetes reversible?", DoctorResponse: "With weight loss and diet changes, remission is possible."},
	{ID: "r2", Similarity: 0.71, PatientQuestion: "What are early diabetes symptoms?", DoctorResponse: "Increased thirst, frequent urination, fatigue."},
}

// --- tests ---

func TestQuery_ShortQuestionSkipsPipeline(t *testing.T) {
	e, s, c := &mockEmbedder{}, &mockSearcher{}, &mockCompleter{}
	svc := newService(e, s, c)

	resp, err := svc.Query(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != DefaultClarifyAnswer {
		t.Errorf("expected clarification answer, got %q", resp.Answer)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
	if resp.Outcome != domain.OutcomeClarify {
		t.Errorf("unexpected outcome %q", resp.Outcome)
	}
	if e.calls != 0 || s.calls != 0 || c.calls != 0 {
		t.Errorf("no dependency may be touched: embed=%d search=%d llm=%d", e.calls, s.calls, c.calls)
	}
}

func TestQuery_WhitespacePaddedShortQuestion(t *testing.T) {
	e, s, c := &mockEmbedder{}, &mockSearcher{}, &mockCompleter{}
	svc := newService(e, s, c)

	resp, err := svc.Query(context.Background(), "   hello    ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != DefaultClarifyAnswer {
		t.Errorf("expected clarification answer, got %q", resp.Answer)
	}
	if e.calls != 0 {
		t.Error("trimmed 5-rune question must not be embedded")
	}
}

func TestQuery_Success(t *testing.T) {
	e := &mockEmbedder{vec: []float32{0.1, 0.2}}
	s := &mockSearcher{results: twoResults}
	c := &mockCompleter{answer: "Diabetes is a chronic condition affecting blood sugar."}
	svc := newService(e, s, c)

	resp, err := svc.Query(context.Background(), "What is diabetes?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != c.answer {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Outcome != domain.OutcomeOK {
		t.Errorf("unexpected outcome %q", resp.Outcome)
	}
	if e.lastIn != "What is diabetes?" {
		t.Errorf("expected trimmed question to be embedded, got %q", e.lastIn)
	}
	if s.lastThreshold != 0.5 || s.lastLimit != 3 {
		t.Errorf("expected threshold 0.5 / limit 3, got %f / %d", s.lastThreshold, s.lastLimit)
	}
}

func TestQuery_NoMatchesSkipsLLM(t *testing.T) {
	e := &mockEmbedder{vec: []float32{0.1}}
	s := &mockSearcher{results: nil}
	c := &mockCompleter{answer: "should not run"}
	svc := newService(e, s, c)

	resp, err := svc.Query(context.Background(), "What is diabetes?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != DefaultNoMatchAnswer {
		t.Errorf("expected no-match answer, got %q", resp.Answer)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
	if c.calls != 0 {
		t.Error("no-context must imply no-generation")
	}
}

func TestQuery_EmbedError(t *testing.T) {
	e := &mockEmbedder{err: errors.New("model load failed")}
	s, c := &mockSearcher{}, &mockCompleter{}
	svc := newService(e, s, c)

	_, err := svc.Query(context.Background(), "What is diabetes?")
	var ee *EmbedError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EmbedError, got %v", err)
	}
	if s.calls != 0 || c.calls != 0 {
		t.Error("search and completion must not run after embed failure")
	}
}

func TestQuery_StoreError(t *testing.T) {
	e := &mockEmbedder{vec: []float32{0.1}}
	s := &mockSearcher{err: errors.New("qdrant unreachable")}
	c := &mockCompleter{}
	svc := newService(e, s, c)

	_, err := svc.Query(context.Background(), "What is diabetes?")
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StoreError, got %v", err)
	}
	if got := se.Unwrap().Error(); got != "qdrant unreachable" {
		t.Errorf("store message must be preserved, got %q", got)
	}
	if c.calls != 0 {
		t.Error("completion must not run after store failure")
	}
}

func TestQuery_LLMFailureFallsBack(t *testing.T) {
	e := &mockEmbedder{vec: []float32{0.1}}
	s := &mockSearcher{results: twoResults}
	c := &mockCompleter{err: errors.New("api down")}
	svc := newService(e, s, c)

	resp, err := svc.Query(context.Background(), "What is diabetes?")
	if err != nil {
		t.Fatalf("completion failure must not fail the request: %v", err)
	}
	if resp.Answer != DefaultFallbackAnswer {
		t.Errorf("expected fallback answer, got %q", resp.Answer)
	}
	if len(resp.Results) != 2 {
		t.Errorf("search results must be preserved, got %d", len(resp.Results))
	}
	if resp.Outcome != domain.OutcomeFallback {
		t.Errorf("unexpected outcome %q", resp.Outcome)
	}
}

func TestQuery_PromptReachesCompleter(t *testing.T) {
	e := &mockEmbedder{vec: []float32{0.1}}
	s := &mockSearcher{results: twoResults[:1]}
	c := &mockCompleter{answer: "ok"}
	svc := newService(e, s, c)

	if _, err := svc.Query(context.Background(), "What is diabetes?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BuildPrompt("What is diabetes?", twoResults[:1])
	if c.lastPrompt != want {
		t.Errorf("prompt mismatch:\ngot:  %q\nwant: %q", c.lastPrompt, want)
	}
}
