package models

// Question is one entry of the static question bank: a prompt for the
// learner plus the ground-truth answer the classifier scores against.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// KnowledgeChunk is an excerpt of reference material stored in the vector
// index. Write-once at seeding time, read-only during serving.
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}
