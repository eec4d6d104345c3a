package domain

import (
	"strings"
	"unicode/utf8"
)

// MinQuestionRunes is the minimum trimmed question length accepted by the
// RAG pipeline. Questions may be Thai, so length is counted in runes.
const MinQuestionRunes = 6

// ValidateQuestion checks a user question before any embedding or search
// work is done. minRunes <= 0 falls back to MinQuestionRunes.
func ValidateQuestion(question string, minRunes int) error {
	if minRunes <= 0 {
		minRunes = MinQuestionRunes
	}
	trimmed := strings.TrimSpace(question)
	if utf8.RuneCountInString(trimmed) < minRunes {
		return NewValidationError("question", trimmed, ErrQuestionTooShort)
	}
	return nil
}

// ValidateForumRecord checks a QARecord before ingestion. dims > 0 also
// enforces the embedding dimensionality.
func ValidateForumRecord(rec QARecord, dims int) error {
	if strings.TrimSpace(rec.PatientQuestion) == "" {
		return NewValidationError("patient_question", rec.PatientQuestion, ErrEmptyQuestion)
	}
	if strings.TrimSpace(rec.DoctorResponse) == "" {
		return NewValidationError("doctor_response", rec.DoctorResponse, ErrEmptyResponse)
	}
	if len(rec.Embedding) == 0 {
		return NewValidationError("embedding", "", ErrBadEmbedding)
	}
	if dims > 0 && len(rec.Embedding) != dims {
		return NewValidationError("embedding", rec.PatientQuestion, ErrBadEmbedding)
	}
	return nil
}
