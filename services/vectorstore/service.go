package vectorstore

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tutorbot/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service stores reference-material chunks in a Pinecone index. Each logical
// collection maps to a namespace within the index.
type Service struct {
	client    *pinecone.Client
	indexName string
}

func NewService(apiKey, indexName string) (*Service, error) {
	log.Printf("[INFO] Initializing vector store service for index %s", indexName)

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	return &Service{
		client:    pc,
		indexName: indexName,
	}, nil
}

func (s *Service) connect(ctx context.Context, collection string) (*pinecone.IndexConnection, error) {
	idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	return idxConn, nil
}

// Upsert writes chunks into the collection, idempotently by chunk id.
func (s *Service) Upsert(ctx context.Context, collection string, chunks []models.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	idxConn, err := s.connect(ctx, collection)
	if err != nil {
		return err
	}

	vectors := make([]*pinecone.Vector, 0, len(chunks))
	for _, chunk := range chunks {
		metadata, err := structpb.NewStruct(map[string]any{
			"text": chunk.Text,
		})
		if err != nil {
			return fmt.Errorf("failed to create metadata struct for chunk %s: %w", chunk.ID, err)
		}

		embedding := chunk.Embedding
		vectors = append(vectors, &pinecone.Vector{
			Id:       chunk.ID,
			Values:   &embedding,
			Metadata: metadata,
		})
	}

	if _, err := idxConn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	log.Printf("[INFO] Upserted %d chunks into collection %s", len(vectors), collection)
	return nil
}

// Query returns the texts of the k nearest chunks, nearest first. A missing
// or empty collection yields an empty result, not an error.
func (s *Service) Query(ctx context.Context, collection string, embedding []float32, k int) ([]string, error) {
	idxConn, err := s.connect(ctx, collection)
	if err != nil {
		return nil, err
	}

	result, err := idxConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Namespace not found") {
			log.Printf("[WARN] Collection %s does not exist, returning no chunks", collection)
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	texts := make([]string, 0, len(result.Matches))
	for _, match := range result.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		metadata := match.Vector.Metadata.AsMap()
		if text, ok := metadata["text"].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}

	return texts, nil
}
