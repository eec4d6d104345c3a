// Package domain defines core domain types, sentinel errors, and validation
// for the MediSense pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

import "time"

// QARecord is a stored forum entry: one patient question with the doctor's
// answer and the question's embedding vector. Records are written once by
// the ingestion utility and never mutated by the serving path.
type QARecord struct {
	ID              string    `json:"id"`
	PatientQuestion string    `json:"patient_question"`
	DoctorResponse  string    `json:"doctor_response"`
	Symptoms        []string  `json:"symptoms,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

// ChatMessage is a single turn in the chat client's session-local transcript.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// QueryEvent is the telemetry record published after each RAG request.
// It carries no question text, only shape and outcome.
type QueryEvent struct {
	QuestionRunes int       `json:"question_runes"`
	Outcome       string    `json:"outcome"`
	Matches       int       `json:"matches"`
	DurationMS    int64     `json:"duration_ms"`
	At            time.Time `json:"at"`
}

// Query outcomes as reported in QueryEvent and request metrics.
const (
	OutcomeOK         = "ok"
	OutcomeClarify    = "clarify"
	OutcomeNoMatch    = "no_match"
	OutcomeFallback   = "fallback"
	OutcomeEmbedError = "embed_error"
	OutcomeStoreError = "store_error"
	OutcomeBadRequest = "bad_request"
)

// QueryEventSubject is the NATS subject for QueryEvent telemetry.
const QueryEventSubject = "medisense.rag.query"

// DefaultEmbeddingDims is the dimensionality of the sentence-transformer
// family the forum corpus was embedded with.
const DefaultEmbeddingDims = 384
