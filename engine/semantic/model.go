package semantic

// SearchResult is a stored Q&A record annotated with its query-time cosine
// similarity. The similarity is transient and never persisted.
type SearchResult struct {
	ID              string   `json:"id"`
	Similarity      float32  `json:"similarity"`
	PatientQuestion string   `json:"patient_question"`
	DoctorResponse  string   `json:"doctor_response"`
	Symptoms        []string `json:"symptoms,omitempty"`
}

// VectorRecord is a single pre-embedded forum entry to store in Qdrant.
type VectorRecord struct {
	ID              string
	PatientQuestion string
	DoctorResponse  string
	Symptoms        []string
	Embedding       []float32
}
