package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/driftnote/driftnote-agent/internal/adapters/entitlement"
	httpadapter "github.com/driftnote/driftnote-agent/internal/adapters/http"
	"github.com/driftnote/driftnote-agent/internal/adapters/llm"
	"github.com/driftnote/driftnote-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/driftnote/driftnote-agent/internal/adapters/storage/sqlite"
	"github.com/driftnote/driftnote-agent/internal/app/chat"
	"github.com/driftnote/driftnote-agent/internal/app/journal"
	"github.com/driftnote/driftnote-agent/internal/app/quota"
	"github.com/driftnote/driftnote-agent/internal/app/retrieval"
	"github.com/driftnote/driftnote-agent/internal/app/session"
	"github.com/driftnote/driftnote-agent/internal/config"
	"github.com/driftnote/driftnote-agent/internal/domain"
	"github.com/driftnote/driftnote-agent/internal/observability"
)

var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "driftnote-api",
		Usage:   "Driftnote conversation and journal service",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "HTTP listen port", EnvVars: []string{"DRIFTNOTE_PORT"}},
			&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: sqlite|memory", EnvVars: []string{"DRIFTNOTE_STORAGE_BACKEND"}},
			&cli.StringFlag{Name: "data-dir", Usage: "Base directory for the sqlite database", EnvVars: []string{"DRIFTNOTE_DATA_DIR"}},
			&cli.BoolFlag{Name: "mock-llm", Usage: "Use the scripted mock LLM", EnvVars: []string{"DRIFTNOTE_USE_MOCK_LLM"}},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := observability.Logger()

	// CLI flags win over env-derived config.
	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}
	if c.IsSet("storage-backend") {
		cfg.StorageBackend = c.String("storage-backend")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("mock-llm") {
		cfg.UseMockLLM = c.Bool("mock-llm")
	}

	// LLM: mock or Vertex
	var (
		llmClient domain.LLMClient
		err       error
	)
	if cfg.UseMockLLM {
		logger.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		logger.Info("using Vertex LLM client", "project", cfg.GCPProjectID, "model", cfg.ModelName)
		llmClient, err = llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return fmt.Errorf("initializing Vertex LLM client: %w", err)
		}
	}

	// Storage: sqlite or memory
	var (
		messageStore domain.MessageStore
		entryStore   domain.EntryStore
		stateStore   domain.StateStore
	)
	switch cfg.StorageBackend {
	case "memory":
		logger.Info("using in-memory storage")
		messageStore = memory.NewMessageStore()
		entryStore = memory.NewEntryStore()
		stateStore = memory.NewStateStore()
	default:
		logger.Info("using sqlite storage", "data_dir", cfg.DataDir)
		store, err := sqlitestore.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("initializing sqlite store: %w", err)
		}
		defer store.Close()

		// one store, three interfaces
		messageStore = store
		entryStore = store
		stateStore = store
	}

	entitlements := entitlement.NewStatic(cfg.Subscribed)
	retriever := retrieval.NewAgent(entryStore, nil)

	surfaces := make(map[domain.Surface]*chat.Orchestrator)
	for _, sf := range []struct {
		surface domain.Surface
		limit   int
	}{
		{domain.SurfaceChat, 0},
		{domain.SurfaceReflections, cfg.ReflectionsDailyLimit},
	} {
		anchor, err := session.Load(ctx, stateStore, sf.surface, nil)
		if err != nil {
			return fmt.Errorf("loading session anchor for %s: %w", sf.surface, err)
		}

		surface := sf.surface
		orch, err := chat.New(ctx, chat.Config{
			Surface:        surface,
			LLM:            llmClient,
			Messages:       messageStore,
			Anchor:         anchor,
			Retriever:      retriever,
			Gate:           quota.NewGate(stateStore, entitlements, surface, sf.limit, nil),
			SystemPrompt:   func(now domain.Timestamp) string { return llm.SystemPrompt(surface, now) },
			RetrievalDelay: cfg.RetrievalDelay,
		})
		if err != nil {
			return fmt.Errorf("initializing %s orchestrator: %w", surface, err)
		}
		surfaces[surface] = orch
	}

	handler := httpadapter.NewServer(surfaces, journal.NewService(entryStore))

	addr := ":" + cfg.Port
	logger.Info("driftnote API listening", "addr", addr)
	return http.ListenAndServe(addr, handler)
}
