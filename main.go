// CampusQuery is a university-document question-answering service: it
// chunks and embeds local documents into a vector index, answers queries
// from retrieved context, and falls back to the model's own knowledge when
// the documents cannot support an answer.
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"campusquery/internal/api"
	"campusquery/internal/cache"
	"campusquery/internal/chunker"
	"campusquery/internal/config"
	"campusquery/internal/embeddings"
	"campusquery/internal/llm"
	"campusquery/internal/loader"
	"campusquery/internal/pipeline"
	"campusquery/internal/storage"
)

func main() {
	log.Println("Starting CampusQuery...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	responseCache, err := cache.New(cfg.Documents.CacheDir, cfg.Limits.CacheMaxEntries)
	if err != nil {
		log.Fatal("Failed to initialize response cache:", err)
	}

	vectorStore, err := storage.NewSQLiteVectorStore(cfg.Documents.IndexPath)
	if err != nil {
		log.Fatal("Failed to initialize vector store:", err)
	}
	defer func() {
		if err := vectorStore.Close(); err != nil {
			log.Printf("Error closing vector store: %v", err)
		}
	}()

	embedder := embeddings.NewEmbedder(cfg.Services.Ollama, cfg.Limits.MaxRetries)
	safeClient := llm.NewSafeClient(
		llm.NewOllamaClient(cfg.Services.Ollama),
		responseCache,
		cfg.Limits.CallsPerMinute,
		cfg.Limits.MaxRetries,
		cfg.RetryBaseDelay(),
	)

	generator := pipeline.NewAnswerGenerator(safeClient, pipeline.NewAdequacyGate(cfg.Retrieval.MinAnswerLength))

	p := pipeline.New(
		loader.New(),
		chunker.New(
			chunker.WithChunkSize(cfg.Chunking.Size),
			chunker.WithOverlap(cfg.Chunking.Overlap),
		),
		embedder,
		vectorStore,
		generator,
		responseCache,
		pipeline.Options{
			DocumentsDir: cfg.Documents.Dir,
			TopK:         cfg.Retrieval.TopK,
			ContextDocs:  cfg.Retrieval.ContextDocs,
		},
	)
	p.Start()

	server := api.NewServer(p, cfg.Documents.Dir)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		TLSConfig:    cfg.GetTLSConfig(),
	}

	log.Printf("Server starting on %s", addr)
	if cfg.Server.TLS.Enabled {
		err = httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil {
		log.Printf("Failed to start server: %v", err)
	}
}
