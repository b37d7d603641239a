package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/config"
	"github.com/xiaot623/gogo/harness/internal/harness"
	"github.com/xiaot623/gogo/harness/internal/hub"
	"github.com/xiaot623/gogo/harness/internal/logging"
	"github.com/xiaot623/gogo/harness/internal/policy"
	"github.com/xiaot623/gogo/harness/internal/prompts"
	"github.com/xiaot623/gogo/harness/internal/repository"
	"github.com/xiaot623/gogo/harness/internal/research"
	"github.com/xiaot623/gogo/harness/internal/service"
	"github.com/xiaot623/gogo/harness/internal/tools"
	transport "github.com/xiaot623/gogo/harness/internal/transport/http"
	"github.com/xiaot623/gogo/harness/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	now := time.Now()
	logFile, err := logging.Setup(cfg.LogDir, now)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	frontendSink, err := logging.NewFrontendSink(cfg.LogDir, now)
	if err != nil {
		log.Fatalf("Failed to set up frontend log: %v", err)
	}

	log.Printf("Starting test harness...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Model: %s (search: %s)", cfg.Model, cfg.SearchModel)
	log.Printf("LLM URL: %s", cfg.LLMBaseURL)
	log.Printf("API key: %s", cfg.MaskedAPIKey())
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()
	svc := service.New(db)

	// Initialize LLM client
	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.APIKey, cfg.LLMTimeout,
		llm.WithRetry(cfg.LLMMaxRetries, cfg.LLMRetryBackoff))

	// Initialize policy engine and tools
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}
	registry := tools.NewRegistry(policyEngine)
	researchEngine := research.NewEngine(llmClient, cfg.SearchModel, cfg.ResearchMaxResults)
	if err := registry.Register(research.Declaration, researchEngine.Execute); err != nil {
		log.Fatalf("Failed to register research tool: %v", err)
	}

	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	// Initialize hub
	connectionHub := hub.NewHub()
	go connectionHub.Run(ctx)

	wsServer := ws.NewServer(cfg, connectionHub, harness.Deps{
		Model:     harness.Model{Client: llmClient, Name: cfg.Model, Temperature: cfg.Temperature},
		Prompts:   catalog,
		Tools:     registry,
		Store:     svc,
		MaxTasks:  cfg.MaxTasks,
		TaskPause: harness.DefaultTaskPause,
	})

	server := transport.NewServer(svc, connectionHub, frontendSink, wsServer.HandleWebSocket)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	log.Printf("Server started on port %d (WebSocket at /ws)", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down test harness...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}
	stop()

	log.Println("Test harness stopped")
}
