package main

import (
	"fmt"
	"log"
	"net/http"

	"tutorbot/config"
	"tutorbot/db"
	"tutorbot/handlers"
	"tutorbot/services"
	"tutorbot/services/agent"
	"tutorbot/services/llm"
	"tutorbot/services/vectorstore"

	"github.com/gorilla/mux"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL environment variable is required")
	}

	if cfg.PineconeAPIKey == "" {
		log.Fatal("PINECONE_API_KEY environment variable is required")
	}

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	if cfg.AnthropicAPIKey == "" {
		log.Fatal("ANTHROPIC_API_KEY environment variable is required")
	}

	sessionRepo, err := db.NewPostgresSessionRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize session database: %v", err)
	}
	defer sessionRepo.Close()

	turnLogRepo, err := db.NewPostgresTurnLogRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize turn log database: %v", err)
	}
	defer turnLogRepo.Close()

	store, err := vectorstore.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}

	embedderLLM, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(embedderLLM)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	questionBank, err := services.NewQuestionBankService(cfg.QuestionBankPath)
	if err != nil {
		log.Fatalf("Failed to load question bank: %v", err)
	}

	completer := llm.NewAnthropicCompleter(cfg.AnthropicAPIKey)
	retrievalService := services.NewRetrievalService(embedder, store)
	classifierService := services.NewClassifierService(completer)
	agentService := agent.NewService(agent.NewOpenAIProvider(cfg.OpenAIAPIKey))

	sessionService := services.NewSessionService(sessionRepo, turnLogRepo, questionBank,
		retrievalService, classifierService, agentService, completer)

	chatHandler := handlers.NewChatHandler(sessionService)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(jsonMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	chatHandler.RegisterRoutes(router)
	sessionHandler.RegisterRoutes(router)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s\n", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
