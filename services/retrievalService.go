package services

import (
	"context"
	"log"
	"strings"
	"time"
)

// GlobalCollection is the fixed knowledge store collection queried for
// grounding context on every turn.
const GlobalCollection = "global"

const (
	defaultTopK      = 3
	retrievalTimeout = 10 * time.Second
)

// Embedder turns text into an embedding vector. Satisfied by the langchaingo
// embeddings.Embedder used in production wiring.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore answers nearest-neighbor queries over a named collection.
type VectorStore interface {
	Query(ctx context.Context, collection string, embedding []float32, k int) ([]string, error)
}

// RetrievalService turns a learner utterance into grounding context text.
type RetrievalService struct {
	embedder Embedder
	store    VectorStore
	topK     int
}

func NewRetrievalService(embedder Embedder, store VectorStore) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		topK:     defaultTopK,
	}
}

// GetContext embeds the utterance, queries the global collection and joins
// the retrieved passages with blank lines, preserving store order. Any
// embedding or store failure degrades to empty context: no grounding is
// never an error for the caller.
func (s *RetrievalService) GetContext(ctx context.Context, utterance string) string {
	if strings.TrimSpace(utterance) == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	var passages []string
	err := withRetry(ctx, "retrieval", func() error {
		embedding, err := s.embedder.EmbedQuery(ctx, utterance)
		if err != nil {
			return err
		}

		passages, err = s.store.Query(ctx, GlobalCollection, embedding, s.topK)
		return err
	})
	if err != nil {
		log.Printf("[WARN] Retrieval unavailable, continuing with empty context: %v", err)
		return ""
	}

	if len(passages) == 0 {
		log.Printf("[INFO] No grounding passages found for utterance")
		return ""
	}

	log.Printf("[INFO] Retrieved %d grounding passages", len(passages))
	return strings.Join(passages, "\n\n")
}
