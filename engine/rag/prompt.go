package rag

import (
	"fmt"
	"strings"

	"github.com/MediSenseAI/medisense-mvp/engine/semantic"
)

const promptInstruction = "Based on the context and your knowledge, provide a clear, safe, and helpful answer. If context is insufficient, explain what more information is needed."

// BuildPrompt formats retrieved Q&A pairs and the user's question into a
// single completion prompt. Pairs are numbered in input order, which is the
// matcher's similarity-descending order. Callers must not pass an empty
// result set; the orchestrator short-circuits before composing.
func BuildPrompt(question string, results []semantic.SearchResult) string {
	pairs := make([]string, len(results))
	for i, r := range results {
		pairs[i] = fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, r.PatientQuestion, i+1, r.DoctorResponse)
	}

	var b strings.Builder
	b.WriteString("Here are similar medical Q&A from a trusted forum:\n")
	b.WriteString(strings.Join(pairs, "\n\n"))
	b.WriteString("\n\nUser's question: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(promptInstruction)
	return b.String()
}
