package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tutorbot/config"
	"tutorbot/models"
	"tutorbot/services"
	"tutorbot/services/vectorstore"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// chunkWords is the chunk size for reference material. Roughly a few
// paragraphs, small enough for several chunks to fit into one turn prompt.
const chunkWords = 600

func main() {
	log.Printf("[INFO] Starting corpus seeding process")

	if len(os.Args) < 2 {
		log.Fatal("[ERROR] Usage: seedcorpus <file-or-directory>...")
	}

	cfg := config.Load()

	if cfg.PineconeAPIKey == "" {
		log.Fatal("[ERROR] PINECONE_API_KEY environment variable is required")
	}

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("[ERROR] OPENAI_API_KEY environment variable is required")
	}

	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create OpenAI client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create embedder: %v", err)
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.PineconeAPIKey,
	})
	if err != nil {
		log.Fatalf("[ERROR] Failed to create Pinecone client: %v", err)
	}

	if err := ensurePineconeIndex(pc, cfg.PineconeIndexName); err != nil {
		log.Fatalf("[ERROR] Failed to ensure Pinecone index: %v", err)
	}

	store, err := vectorstore.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName)
	if err != nil {
		log.Fatalf("[ERROR] Failed to initialize vector store: %v", err)
	}

	files, err := collectFiles(os.Args[1:])
	if err != nil {
		log.Fatalf("[ERROR] Failed to collect corpus files: %v", err)
	}

	log.Printf("[INFO] Found %d corpus files", len(files))

	ctx := context.Background()
	for i, path := range files {
		log.Printf("[INFO] Processing file %d/%d: %s", i+1, len(files), path)

		if err := processFile(ctx, path, embedder, store); err != nil {
			log.Printf("[ERROR] Failed to process file %s: %v", path, err)
			continue
		}

		log.Printf("[INFO] Successfully processed file %s", path)
	}

	log.Printf("[INFO] Corpus seeding process completed successfully")
}

func ensurePineconeIndex(pc *pinecone.Client, indexName string) error {
	ctx := context.Background()

	indexes, err := pc.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == indexName {
			log.Printf("[INFO] Index %s already exists", indexName)
			return nil
		}
	}

	log.Printf("[INFO] Creating Pinecone index: %s", indexName)
	dimension := int32(1536) // OpenAI ada-002 embedding dimension
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"environment": "development", "project": "tutorbot-corpus"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status.Ready {
			log.Printf("[INFO] Index %s is ready", indexName)
			break
		}
		log.Printf("[INFO] Waiting for index %s to be ready...", indexName)
		time.Sleep(10 * time.Second)
	}

	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".txt", ".md":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	return files, nil
}

func processFile(ctx context.Context, path string, embedder embeddings.Embedder, store *vectorstore.Service) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	texts := chunkByWords(string(content), chunkWords)
	if len(texts) == 0 {
		log.Printf("[INFO] No chunks created for file %s", path)
		return nil
	}
	log.Printf("[INFO] Created %d chunks for file %s", len(texts), path)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	chunks := make([]models.KnowledgeChunk, 0, len(texts))

	for i, text := range texts {
		log.Printf("[INFO] Generating embedding for chunk %d/%d", i+1, len(texts))

		embedding, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i+1, err)
		}

		chunks = append(chunks, models.KnowledgeChunk{
			ID:        fmt.Sprintf("%s_chunk_%d", base, i),
			Text:      text,
			Embedding: embedding,
		})
	}

	if err := store.Upsert(ctx, services.GlobalCollection, chunks); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return nil
}

// chunkByWords splits text into chunks of at most size words, preserving
// word order and dropping blank chunks.
func chunkByWords(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}
